package analysis

import (
	"math"

	"github.com/montanaflynn/stats"

	"geodiff/domain/expr"
	"geodiff/domain/geo"
)

// SampleSummary is the five-number summary of one sample's expression
// values, the input of the per-sample boxplot.
type SampleSummary struct {
	ID     string
	Group  string
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
	Mean   float64
}

// SummarizeSamples computes descriptive statistics for every sample column.
// Gaps are dropped before summarizing.
func SummarizeSamples(m *expr.Matrix, samples []geo.Sample) []SampleSummary {
	out := make([]SampleSummary, 0, len(m.Samples))
	for j, id := range m.Samples {
		col := m.Column(j)
		finite := col[:0]
		for _, v := range col {
			if !math.IsNaN(v) {
				finite = append(finite, v)
			}
		}
		s := SampleSummary{ID: id}
		if j < len(samples) {
			s.Group = samples[j].Group
		}
		if len(finite) > 0 {
			s.Min, _ = stats.Min(finite)
			s.Max, _ = stats.Max(finite)
			s.Median, _ = stats.Median(finite)
			s.Mean, _ = stats.Mean(finite)
			s.Q1, _ = stats.Percentile(finite, 25)
			s.Q3, _ = stats.Percentile(finite, 75)
		}
		out = append(out, s)
	}
	return out
}
