package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"geodiff/domain/expr"
)

// SampleCorrelation computes the sample-by-sample Pearson correlation
// matrix. Gaps are tolerated: each pair is computed over the genes where
// both samples have a value (pairwise-complete), and a pair with fewer than
// two shared observations gets NaN.
func SampleCorrelation(m *expr.Matrix) [][]float64 {
	_, nSamples := m.Dims()
	out := make([][]float64, nSamples)
	for i := range out {
		out[i] = make([]float64, nSamples)
	}

	cols := make([][]float64, nSamples)
	for j := 0; j < nSamples; j++ {
		cols[j] = m.Column(j)
	}

	for a := 0; a < nSamples; a++ {
		out[a][a] = 1
		for b := a + 1; b < nSamples; b++ {
			r := pairwiseCorrelation(cols[a], cols[b])
			out[a][b] = r
			out[b][a] = r
		}
	}
	return out
}

func pairwiseCorrelation(x, y []float64) float64 {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}
