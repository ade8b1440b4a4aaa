package dataset

import (
	"math"

	"github.com/montanaflynn/stats"

	"geodiff/domain/core"
	"geodiff/domain/expr"
)

// FilterByExpression removes genes that fail the expression-breadth
// threshold: a gene is kept iff its value exceeds the global median of the
// whole matrix in at least minSamples samples. Returns the filtered matrix
// and the mask for auditability.
//
// Monotonic in minSamples: raising the threshold never keeps more genes.
// minSamples larger than the sample count yields an all-false mask; the
// engine rejects the resulting empty matrix, not this function.
func FilterByExpression(m *expr.Matrix, minSamples int) (*expr.Matrix, expr.FilterMask, error) {
	if minSamples < 1 {
		return nil, nil, core.NewSchemaError("filter", "minimum sample count must be >= 1")
	}

	flat := m.FiniteValues(make([]float64, 0, len(m.Genes)*len(m.Samples)))
	if len(flat) == 0 {
		return nil, nil, core.NewSchemaError("filter", "matrix has no finite values")
	}
	median, err := stats.Median(flat)
	if err != nil {
		return nil, nil, core.NewSchemaError("filter", "global median: "+err.Error())
	}

	mask := make(expr.FilterMask, len(m.Genes))
	for i, row := range m.Values {
		expressed := 0
		for _, v := range row {
			if !math.IsNaN(v) && v > median {
				expressed++
			}
		}
		mask[i] = expressed >= minSamples
	}

	return m.Subset(mask), mask, nil
}
