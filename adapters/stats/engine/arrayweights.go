package engine

import (
	"context"
	"math"

	"geodiff/domain/diffexpr"
	"geodiff/domain/expr"
)

// WeightOptions bounds the array-weight iteration.
type WeightOptions struct {
	MaxIter int     // iteration cap
	Tol     float64 // fixed-point convergence tolerance on max weight change
	Floor   float64 // lowest weight a sample can receive
	Ceiling float64 // highest weight a sample can receive
}

// DefaultWeightOptions mirrors the pipeline defaults.
func DefaultWeightOptions() WeightOptions {
	return WeightOptions{MaxIter: 10, Tol: 1e-6, Floor: 0.1, Ceiling: 10}
}

// ArrayWeights estimates one quality weight per sample, down-weighting
// samples whose residual variance is atypical relative to the gene-wise
// fits. The procedure is a fixed-point iteration: fit all genes with the
// current weights, measure each sample's mean squared standardized residual,
// set the new weight to its inverse (normalized to mean 1, clamped into
// [Floor, Ceiling]), and repeat until the weights stop moving or MaxIter is
// reached.
//
// The result is deterministic for identical inputs: no randomness, fixed
// iteration order, and fixed clamping. Returned weights are always finite
// and positive.
func ArrayWeights(ctx context.Context, m *expr.Matrix, d *diffexpr.Design, opt WeightOptions) ([]float64, int, error) {
	nGenes, nSamples := m.Dims()
	groups := groupIndex(d)

	w := make([]float64, nSamples)
	for j := range w {
		w[j] = 1
	}
	if nGenes == 0 {
		return w, 0, nil
	}

	next := make([]float64, nSamples)
	spread := make([]float64, nSamples)
	count := make([]int, nSamples)

	iter := 0
	for ; iter < opt.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, iter, err
		}

		for j := range spread {
			spread[j] = 0
			count[j] = 0
		}

		// Accumulate squared standardized residuals per sample across all
		// gene fits. Genes without a usable variance contribute nothing.
		for i := 0; i < nGenes; i++ {
			gf := fitGene(m.Row(i), groups, w)
			if !gf.ok || !(gf.sigma2 > 1e-12) {
				continue
			}
			row := m.Row(i)
			for j, v := range row {
				if math.IsNaN(v) {
					continue
				}
				r := v - gf.beta[groups[j]]
				spread[j] += r * r / gf.sigma2
				count[j]++
			}
		}

		// Inverse-spread weights, normalized so the mean weight is 1.
		sumInv := 0.0
		for j := range next {
			if count[j] == 0 || !(spread[j] > 0) {
				next[j] = 1
			} else {
				next[j] = float64(count[j]) / spread[j]
			}
			sumInv += next[j]
		}
		mean := sumInv / float64(nSamples)
		delta := 0.0
		for j := range next {
			nw := clamp(next[j]/mean, opt.Floor, opt.Ceiling)
			if diff := math.Abs(nw - w[j]); diff > delta {
				delta = diff
			}
			next[j] = nw
		}
		copy(w, next)

		if delta <= opt.Tol {
			iter++
			break
		}
	}
	return w, iter, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
