package engine

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mathext"

	"geodiff/domain/core"
	"geodiff/domain/diffexpr"
	"geodiff/internal/testkit"
)

func TestTrigamma_KnownValues(t *testing.T) {
	// trigamma(1) = pi^2/6, trigamma(0.5) = pi^2/2.
	assert.InDelta(t, math.Pi*math.Pi/6, trigamma(1), 1e-9)
	assert.InDelta(t, math.Pi*math.Pi/2, trigamma(0.5), 1e-9)
	// Recurrence: trigamma(x) = trigamma(x+1) + 1/x^2.
	assert.InDelta(t, trigamma(3.7), trigamma(4.7)+1/(3.7*3.7), 1e-10)
	assert.True(t, math.IsNaN(trigamma(-1)))
}

func TestTrigammaInverse_RoundTrip(t *testing.T) {
	for _, y := range []float64{0.3, 1, 2.5, 10, 100} {
		x := trigamma(y)
		assert.InDelta(t, y, trigammaInverse(x), 1e-5, "roundtrip at y=%v", y)
	}
}

func TestFitFDist_RecoversCommonVariance(t *testing.T) {
	// Identical variances: zero spread in the log variances, so the prior
	// df is infinite and the scale is the bias-corrected common value.
	n := 50
	sigma2 := make([]float64, n)
	df := make([]float64, n)
	for i := range sigma2 {
		sigma2[i] = 2.0
		df[i] = 10
	}
	df0, s0sq, err := fitFDist(sigma2, df)
	require.NoError(t, err)
	assert.True(t, math.IsInf(df0, 1))
	want := math.Exp(math.Log(2.0) - mathext.Digamma(5) + math.Log(5))
	assert.InDelta(t, want, s0sq, 1e-9)
}

func TestEBayes_ShrinksTowardPrior(t *testing.T) {
	m, labels := testkit.Matrix(testkit.Options{Genes: 150, PerGroup: 4, DEGenes: 10, Seed: 19})
	d, err := BuildDesign(labels)
	require.NoError(t, err)
	fit, err := FitLinearModel(context.Background(), m, d, unitWeights(len(labels)), 2)
	require.NoError(t, err)

	cf := Contrast(fit)
	mod, err := EBayes(cf)
	require.NoError(t, err)

	require.Greater(t, mod.S2Prior, 0.0)
	for i, s2 := range cf.Sigma2 {
		post := mod.S2Post[i]
		lo := math.Min(s2, mod.S2Prior)
		hi := math.Max(s2, mod.S2Prior)
		assert.GreaterOrEqual(t, post, lo-1e-12, "gene %d", i)
		assert.LessOrEqual(t, post, hi+1e-12, "gene %d", i)
		assert.GreaterOrEqual(t, mod.DFTotal[i], cf.DF[i])
	}
}

func TestEBayes_PValuesAndOrdering(t *testing.T) {
	m, labels := testkit.Matrix(testkit.Options{Genes: 150, PerGroup: 5, DEGenes: 12, Shift: 3, Seed: 23})
	d, err := BuildDesign(labels)
	require.NoError(t, err)
	fit, err := FitLinearModel(context.Background(), m, d, unitWeights(len(labels)), 2)
	require.NoError(t, err)

	mod, err := EBayes(Contrast(fit))
	require.NoError(t, err)

	meanNullP, meanDEP := 0.0, 0.0
	for i, p := range mod.P {
		require.False(t, math.IsNaN(p), "gene %d", i)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		if i < 12 {
			meanDEP += p / 12
		} else {
			meanNullP += p / float64(len(mod.P)-12)
		}
	}
	assert.Less(t, meanDEP, 0.01, "planted genes must test far smaller than null genes")
	assert.Greater(t, meanNullP, 0.1)

	// B tracks |t|: the strongest t-statistic carries the highest log-odds.
	best := 0
	for i := range mod.T {
		if math.Abs(mod.T[i]) > math.Abs(mod.T[best]) {
			best = i
		}
	}
	for i := range mod.LogOdds {
		assert.GreaterOrEqual(t, mod.LogOdds[best], mod.LogOdds[i])
	}
}

func TestEBayes_PropagatesUnusableGenes(t *testing.T) {
	cf := &diffexpr.ContrastFit{
		Genes:    []string{"g1", "g2", "g3"},
		Effect:   []float64{1, math.NaN(), 0.5},
		Sigma2:   []float64{0.5, math.NaN(), 0.8},
		DF:       []float64{4, 0, 4},
		Unscaled: []float64{0.7, 0.7, 0.7},
	}
	mod, err := EBayes(cf)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(mod.P[0]))
	assert.True(t, math.IsNaN(mod.P[1]))
	assert.True(t, math.IsNaN(mod.LogOdds[1]))
	assert.False(t, math.IsNaN(mod.P[2]))
}

func TestEBayes_EmptyInput(t *testing.T) {
	_, err := EBayes(&diffexpr.ContrastFit{})
	require.Error(t, err)
	assert.True(t, core.IsEmptyInputError(err))
}
