package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geodiff/domain/expr"
)

func testMatrix() *expr.Matrix {
	// Five 9s and five 1s among the finite values, so the global median is 5.
	return &expr.Matrix{
		Genes:   []string{"g1", "g2", "g3", "g4"},
		Samples: []string{"a", "b", "c"},
		Values: [][]float64{
			{9, 9, 9},                   // above in 3 samples
			{9, 9, 1},                   // above in 2 samples
			{1, 1, 1},                   // above in none
			{1, math.NaN(), math.NaN()}, // above in none
		},
	}
}

func TestFilterByExpression_MaskMatchesThreshold(t *testing.T) {
	m := testMatrix()
	filtered, mask, err := FilterByExpression(m, 2)
	require.NoError(t, err)

	assert.Equal(t, []bool{true, true, false, false}, []bool(mask))
	assert.Equal(t, 2, mask.Kept())
	assert.Equal(t, []string{"g1", "g2"}, filtered.Genes)
	assert.Equal(t, m.Samples, filtered.Samples)
}

func TestFilterByExpression_MonotonicInThreshold(t *testing.T) {
	m := testMatrix()
	prev := len(m.Genes) + 1
	for k := 1; k <= 4; k++ {
		_, mask, err := FilterByExpression(m, k)
		require.NoError(t, err)
		assert.LessOrEqual(t, mask.Kept(), prev, "kept count must not grow with k")
		prev = mask.Kept()
	}
}

func TestFilterByExpression_ThresholdBeyondSamples(t *testing.T) {
	m := testMatrix()
	filtered, mask, err := FilterByExpression(m, len(m.Samples)+1)
	require.NoError(t, err)
	assert.Equal(t, 0, mask.Kept())

	nGenes, nSamples := filtered.Dims()
	assert.Equal(t, 0, nGenes)
	assert.Equal(t, len(m.Samples), nSamples)
}

func TestFilterByExpression_InputUntouched(t *testing.T) {
	m := testMatrix()
	_, _, err := FilterByExpression(m, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, len(m.Genes))
	assert.Equal(t, 9.0, m.Values[0][0])
}
