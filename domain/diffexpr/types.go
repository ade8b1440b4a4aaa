package diffexpr

import (
	"math"
	"sort"
)

// Design is the samples x 2 one-hot group design matrix.
// INVARIANT: exactly one 1 per row - groups are mutually exclusive and
// exhaustive. Columns are ordered alphabetically by normalized label, which
// fixes the contrast sign: the contrast is always Columns[0] - Columns[1].
type Design struct {
	Columns [2]string    // group labels, alphabetical
	Rows    [][2]float64 // one row per sample
}

// SampleCount returns the number of design rows.
func (d *Design) SampleCount() int { return len(d.Rows) }

// GroupSizes returns the number of samples assigned to each column.
func (d *Design) GroupSizes() [2]int {
	var n [2]int
	for _, row := range d.Rows {
		if row[0] == 1 {
			n[0]++
		}
		if row[1] == 1 {
			n[1]++
		}
	}
	return n
}

// Fit holds the per-gene weighted least-squares output over the filtered
// matrix: coefficient estimates per design column, residual variance, and
// the covariance factors needed to scale any contrast of the coefficients.
type Fit struct {
	Genes   []string
	Columns [2]string
	Coef    [][2]float64 // per-gene coefficient estimates
	Sigma2  []float64    // per-gene residual variance
	DF      []float64    // per-gene residual degrees of freedom
	Cov     [][3]float64 // per-gene (X'WX)^-1, packed [c00, c01, c11]
	Weights []float64    // per-sample array weights used for the fit
	Iter    int          // array-weight iterations until convergence
}

// ContrastFit is the single group contrast (Columns[0] - Columns[1]) formed
// from a Fit: per-gene effect size plus the unscaled standard error of the
// contrast.
type ContrastFit struct {
	Genes    []string
	Name     string // e.g. "Normal-Tumor"
	Effect   []float64
	Sigma2   []float64
	DF       []float64
	Unscaled []float64 // sqrt(c' (X'WX)^-1 c) per gene
}

// Result is one row of the terminal contrast table.
type Result struct {
	GeneID    string
	Accession string
	Title     string
	LogFC     float64 // effect size, Columns[0] - Columns[1]
	T         float64 // moderated t-statistic
	P         float64
	AdjP      float64 // Benjamini-Hochberg adjusted
	LogOdds   float64 // B statistic
}

// Table is the terminal engine output, sorted ascending by p-value.
type Table struct {
	Contrast string
	DFPrior  float64
	S2Prior  float64
	Rows     []Result
}

// Cutoffs are the caller-supplied significance thresholds for summary
// counting. Common choices are 0.01 and 0.05 for P; neither is
// authoritative, so both stay parameters.
type Cutoffs struct {
	P     float64 // p-value threshold
	LogFC float64 // absolute effect-size threshold
}

// Summary counts results below/within/above the cutoffs.
type Summary struct {
	Down      int
	Unchanged int
	Up        int
}

// SortByP orders rows ascending by p-value, breaking ties by gene ID so the
// ordering is deterministic. Rows whose fit produced no p-value sort last.
func (t *Table) SortByP() {
	key := func(r Result) float64 {
		if math.IsNaN(r.P) {
			return math.Inf(1)
		}
		return r.P
	}
	sort.SliceStable(t.Rows, func(i, j int) bool {
		pi, pj := key(t.Rows[i]), key(t.Rows[j])
		if pi != pj {
			return pi < pj
		}
		return t.Rows[i].GeneID < t.Rows[j].GeneID
	})
}

// Summarize counts up/down/unchanged rows at the given cutoffs. A row is
// "up" when p < cut.P and LogFC >= cut.LogFC, "down" when p < cut.P and
// LogFC <= -cut.LogFC, otherwise unchanged.
func (t *Table) Summarize(cut Cutoffs) Summary {
	var s Summary
	for _, r := range t.Rows {
		switch {
		case r.P < cut.P && r.LogFC >= cut.LogFC:
			s.Up++
		case r.P < cut.P && r.LogFC <= -cut.LogFC:
			s.Down++
		default:
			s.Unchanged++
		}
	}
	return s
}

// LookupAccession returns every row whose accession matches. The common case
// is exactly one row; an absent accession yields an empty slice.
func (t *Table) LookupAccession(accession string) []Result {
	var out []Result
	for _, r := range t.Rows {
		if r.Accession == accession {
			out = append(out, r)
		}
	}
	return out
}

// Top returns the first n rows of the table (the table is kept sorted by
// p-value). n larger than the table returns every row.
func (t *Table) Top(n int) []Result {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}
