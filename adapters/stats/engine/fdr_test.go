package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjustBH_KnownValues(t *testing.T) {
	// Worked example: p * n/rank with the step-up cumulative minimum.
	p := []float64{0.01, 0.04, 0.03, 0.005}
	adj := AdjustBH(p)
	require.Len(t, adj, 4)

	assert.InDelta(t, 0.02, adj[3], 1e-12)  // 0.005*4/1
	assert.InDelta(t, 0.02, adj[0], 1e-12)  // 0.01*4/2
	assert.InDelta(t, 0.04, adj[2], 1e-12)  // 0.03*4/3
	assert.InDelta(t, 0.04, adj[1], 1e-12)  // 0.04*4/4
}

func TestAdjustBH_PreservesRankOrder(t *testing.T) {
	p := []float64{0.2, 0.001, 0.05, 0.9, 0.3, 0.0001}
	adj := AdjustBH(p)
	for i := range p {
		for j := range p {
			if p[i] < p[j] {
				assert.LessOrEqual(t, adj[i], adj[j])
			}
		}
	}
}

func TestAdjustBH_CappedAtOne(t *testing.T) {
	adj := AdjustBH([]float64{0.5, 0.8, 0.99, 1.0})
	for _, q := range adj {
		assert.LessOrEqual(t, q, 1.0)
	}
}

func TestAdjustBH_NaNPassthrough(t *testing.T) {
	p := []float64{0.02, math.NaN(), 0.01}
	adj := AdjustBH(p)

	assert.True(t, math.IsNaN(adj[1]))
	// NaN entries do not count toward n: two tests, not three.
	assert.InDelta(t, 0.02, adj[2], 1e-12) // 0.01*2/1 = 0.02
	assert.InDelta(t, 0.02, adj[0], 1e-12) // 0.02*2/2 = 0.02
}

func TestAdjustBH_AllNaN(t *testing.T) {
	adj := AdjustBH([]float64{math.NaN(), math.NaN()})
	for _, q := range adj {
		assert.True(t, math.IsNaN(q))
	}
}
