package engine

import (
	"math"
	"sort"
)

// AdjustBH computes Benjamini-Hochberg adjusted p-values (false discovery
// rate control). NaN p-values pass through as NaN and do not count toward
// the number of tests.
func AdjustBH(p []float64) []float64 {
	type indexed struct {
		p   float64
		pos int
	}
	valid := make([]indexed, 0, len(p))
	for i, v := range p {
		if !math.IsNaN(v) {
			valid = append(valid, indexed{p: v, pos: i})
		}
	}
	n := len(valid)

	adj := make([]float64, len(p))
	for i := range adj {
		adj[i] = math.NaN()
	}
	if n == 0 {
		return adj
	}

	sort.Slice(valid, func(i, j int) bool { return valid[i].p < valid[j].p })

	// Step-up: cumulative minimum from the largest rank down.
	running := 1.0
	for i := n - 1; i >= 0; i-- {
		q := valid[i].p * float64(n) / float64(i+1)
		if q < running {
			running = q
		}
		adj[valid[i].pos] = running
	}
	return adj
}
