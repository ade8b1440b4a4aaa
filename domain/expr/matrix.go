package expr

import (
	"fmt"
	"math"

	"geodiff/domain/core"
)

// Matrix is the canonical expression data object for all downstream
// computation: genes as rows, samples as columns. Values may contain NaN;
// computations that cannot tolerate gaps handle them explicitly.
type Matrix struct {
	Genes   []string    // row identifiers (probe IDs), unique
	Samples []string    // column identifiers (sample IDs), unique
	Values  [][]float64 // rows align with Genes, columns with Samples
}

// FilterMask marks, per gene, whether it survived the expression filter.
// Derived data; never persisted.
type FilterMask []bool

// Kept returns the number of true entries.
func (m FilterMask) Kept() int {
	n := 0
	for _, keep := range m {
		if keep {
			n++
		}
	}
	return n
}

// Dims returns (genes, samples).
func (m *Matrix) Dims() (int, int) {
	return len(m.Genes), len(m.Samples)
}

// Row returns the values of gene i. The slice aliases the matrix; callers
// must not mutate it.
func (m *Matrix) Row(i int) []float64 {
	return m.Values[i]
}

// Column copies the values of sample j into a fresh slice.
func (m *Matrix) Column(j int) []float64 {
	col := make([]float64, len(m.Values))
	for i, row := range m.Values {
		col[i] = row[j]
	}
	return col
}

// Validate checks internal consistency: value rows align with gene IDs,
// every row has one value per sample, and identifiers are unique.
func (m *Matrix) Validate() error {
	if len(m.Values) != len(m.Genes) {
		return core.NewDimensionError("matrix", "value row", len(m.Values), len(m.Genes))
	}
	for i, row := range m.Values {
		if len(row) != len(m.Samples) {
			return core.NewSchemaError("matrix",
				fmt.Sprintf("row %d has %d values, expected %d", i, len(row), len(m.Samples)))
		}
	}
	seen := make(map[string]struct{}, len(m.Genes))
	for _, id := range m.Genes {
		if _, dup := seen[id]; dup {
			return core.NewSchemaError("matrix", fmt.Sprintf("duplicate gene id %q", id))
		}
		seen[id] = struct{}{}
	}
	cols := make(map[string]struct{}, len(m.Samples))
	for _, id := range m.Samples {
		if _, dup := cols[id]; dup {
			return core.NewSchemaError("matrix", fmt.Sprintf("duplicate sample id %q", id))
		}
		cols[id] = struct{}{}
	}
	return nil
}

// Subset returns a new matrix containing only the genes marked true in the
// mask. The value rows are shared, not copied; stages treat matrices as
// immutable.
func (m *Matrix) Subset(mask FilterMask) *Matrix {
	out := &Matrix{
		Genes:   make([]string, 0, mask.Kept()),
		Samples: m.Samples,
		Values:  make([][]float64, 0, mask.Kept()),
	}
	for i, keep := range mask {
		if keep {
			out.Genes = append(out.Genes, m.Genes[i])
			out.Values = append(out.Values, m.Values[i])
		}
	}
	return out
}

// FiniteValues appends every non-NaN, non-Inf value in the matrix to dst and
// returns it. Used by the filter to compute the global median.
func (m *Matrix) FiniteValues(dst []float64) []float64 {
	for _, row := range m.Values {
		for _, v := range row {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				dst = append(dst, v)
			}
		}
	}
	return dst
}

// HasGaps reports whether any value in the matrix is NaN.
func (m *Matrix) HasGaps() bool {
	for _, row := range m.Values {
		for _, v := range row {
			if math.IsNaN(v) {
				return true
			}
		}
	}
	return false
}
