package engine

import (
	"sort"

	"geodiff/domain/core"
	"geodiff/domain/diffexpr"
)

// BuildDesign constructs the two-column one-hot design matrix from the
// normalized sample labels. Columns are ordered alphabetically, which pins
// the contrast sign: the contrast is always Columns[0] - Columns[1]
// ("Normal" - "Tumor" for the canonical labels).
func BuildDesign(labels []string) (*diffexpr.Design, error) {
	seen := make(map[string]struct{})
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	distinct := make([]string, 0, len(seen))
	for l := range seen {
		distinct = append(distinct, l)
	}
	sort.Strings(distinct)
	if len(distinct) != 2 {
		return nil, core.NewLabelError(distinct)
	}

	d := &diffexpr.Design{
		Columns: [2]string{distinct[0], distinct[1]},
		Rows:    make([][2]float64, len(labels)),
	}
	for i, l := range labels {
		if l == d.Columns[0] {
			d.Rows[i][0] = 1
		} else {
			d.Rows[i][1] = 1
		}
	}

	// Full rank requires at least one sample per group.
	sizes := d.GroupSizes()
	for k, n := range sizes {
		if n == 0 {
			return nil, core.NewSingularDesignError(d.Columns[k], 0)
		}
	}
	return d, nil
}

// groupIndex flattens the design into a per-sample column index, the form
// the per-gene fits consume.
func groupIndex(d *diffexpr.Design) []int {
	idx := make([]int, d.SampleCount())
	for i, row := range d.Rows {
		if row[1] == 1 {
			idx[i] = 1
		}
	}
	return idx
}
