package engine

import (
	"context"

	"geodiff/domain/core"
	"geodiff/domain/diffexpr"
	"geodiff/domain/expr"
	"geodiff/internal"
)

// Engine runs the differential-expression stages in order: design, array
// weights, per-gene weighted fits, the single group contrast, and
// empirical-Bayes moderation with FDR adjustment. Inputs are immutable; the
// only output is the sorted contrast table plus the fit for diagnostics.
type Engine struct {
	log       *internal.Logger
	weightOpt WeightOptions
	workers   int
}

// New creates an engine. workers bounds the fitting pool.
func New(log *internal.Logger, weightOpt WeightOptions, workers int) *Engine {
	return &Engine{
		log:       log.WithPrefix("engine"),
		weightOpt: weightOpt,
		workers:   workers,
	}
}

// Run executes the engine over the filtered matrix. labels are the
// normalized group labels aligned with the matrix samples.
//
// Fails with EmptyInputError when the filter left zero genes and with
// SingularDesignError when a design column has no samples; both checks
// happen before any fitting starts.
func (e *Engine) Run(ctx context.Context, m *expr.Matrix, labels []string) (*diffexpr.Table, *diffexpr.Fit, error) {
	nGenes, nSamples := m.Dims()
	if nGenes == 0 {
		return nil, nil, core.NewEmptyInputError("engine", nSamples)
	}
	if len(labels) != nSamples {
		return nil, nil, core.NewDimensionError("engine", "label", len(labels), nSamples)
	}

	design, err := BuildDesign(labels)
	if err != nil {
		return nil, nil, err
	}
	sizes := design.GroupSizes()
	e.log.Info("design %s=%d vs %s=%d over %d genes",
		design.Columns[0], sizes[0], design.Columns[1], sizes[1], nGenes)

	weights, iters, err := ArrayWeights(ctx, m, design, e.weightOpt)
	if err != nil {
		return nil, nil, err
	}
	e.log.Info("array weights converged after %d iterations", iters)

	fit, err := FitLinearModel(ctx, m, design, weights, e.workers)
	if err != nil {
		return nil, nil, err
	}
	fit.Iter = iters

	contrast := Contrast(fit)
	moderated, err := EBayes(contrast)
	if err != nil {
		return nil, nil, err
	}
	e.log.Debug("prior df=%.2f s2=%.4f", moderated.DFPrior, moderated.S2Prior)

	adj := AdjustBH(moderated.P)

	table := &diffexpr.Table{
		Contrast: contrast.Name,
		DFPrior:  moderated.DFPrior,
		S2Prior:  moderated.S2Prior,
		Rows:     make([]diffexpr.Result, nGenes),
	}
	for i := 0; i < nGenes; i++ {
		table.Rows[i] = diffexpr.Result{
			GeneID:  contrast.Genes[i],
			LogFC:   contrast.Effect[i],
			T:       moderated.T[i],
			P:       moderated.P[i],
			AdjP:    adj[i],
			LogOdds: moderated.LogOdds[i],
		}
	}
	table.SortByP()
	return table, fit, nil
}
