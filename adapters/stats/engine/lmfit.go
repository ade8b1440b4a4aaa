package engine

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"geodiff/domain/diffexpr"
	"geodiff/domain/expr"
)

// geneFit is the weighted least-squares solution for one gene.
type geneFit struct {
	beta   [2]float64
	cov    [3]float64 // (X'WX)^-1 packed [c00, c01, c11]
	sigma2 float64
	df     float64
	ok     bool
}

// fitGene solves the weighted two-group model for one gene. Because the
// design columns are mutually exclusive indicators, X'WX is diagonal and the
// solution reduces to weighted group means. Samples with NaN expression are
// skipped, so the effective design can differ per gene.
func fitGene(y []float64, groups []int, w []float64) geneFit {
	var sw, swy [2]float64
	n := 0
	for i, v := range y {
		if math.IsNaN(v) {
			continue
		}
		g := groups[i]
		sw[g] += w[i]
		swy[g] += w[i] * v
		n++
	}
	if sw[0] <= 0 || sw[1] <= 0 {
		return geneFit{}
	}

	var f geneFit
	f.ok = true
	f.beta[0] = swy[0] / sw[0]
	f.beta[1] = swy[1] / sw[1]
	f.cov = [3]float64{1 / sw[0], 0, 1 / sw[1]}
	f.df = float64(n - 2)

	rss := 0.0
	for i, v := range y {
		if math.IsNaN(v) {
			continue
		}
		r := v - f.beta[groups[i]]
		rss += w[i] * r * r
	}
	if f.df > 0 {
		f.sigma2 = rss / f.df
	} else {
		f.sigma2 = math.NaN()
	}
	return f
}

// FitLinearModel fits one weighted linear model per gene of the filtered
// matrix. The per-gene solves are independent, so they run on a bounded
// worker pool with index-addressed output slots; results are identical to a
// sequential pass.
func FitLinearModel(ctx context.Context, m *expr.Matrix, d *diffexpr.Design, weights []float64, workers int) (*diffexpr.Fit, error) {
	nGenes, _ := m.Dims()
	groups := groupIndex(d)

	fit := &diffexpr.Fit{
		Genes:   m.Genes,
		Columns: d.Columns,
		Coef:    make([][2]float64, nGenes),
		Sigma2:  make([]float64, nGenes),
		DF:      make([]float64, nGenes),
		Cov:     make([][3]float64, nGenes),
		Weights: weights,
	}

	if workers < 1 {
		workers = runtime.NumCPU()
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	chunk := (nGenes + workers - 1) / workers
	for start := 0; start < nGenes; start += chunk {
		start := start
		end := start + chunk
		if end > nGenes {
			end = nGenes
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				gf := fitGene(m.Row(i), groups, weights)
				if !gf.ok {
					fit.Coef[i] = [2]float64{math.NaN(), math.NaN()}
					fit.Sigma2[i] = math.NaN()
					fit.DF[i] = 0
					continue
				}
				fit.Coef[i] = gf.beta
				fit.Sigma2[i] = gf.sigma2
				fit.DF[i] = gf.df
				fit.Cov[i] = gf.cov
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fit, nil
}

// Contrast forms the single group contrast Columns[0] - Columns[1] from a
// fitted model: effect size per gene plus the unscaled standard error
// sqrt(c' (X'WX)^-1 c) for c = (1, -1).
func Contrast(fit *diffexpr.Fit) *diffexpr.ContrastFit {
	n := len(fit.Genes)
	cf := &diffexpr.ContrastFit{
		Genes:    fit.Genes,
		Name:     fit.Columns[0] + "-" + fit.Columns[1],
		Effect:   make([]float64, n),
		Sigma2:   fit.Sigma2,
		DF:       fit.DF,
		Unscaled: make([]float64, n),
	}
	for i := range fit.Genes {
		cf.Effect[i] = fit.Coef[i][0] - fit.Coef[i][1]
		c := fit.Cov[i]
		cf.Unscaled[i] = math.Sqrt(c[0] - 2*c[1] + c[2])
	}
	return cf
}
