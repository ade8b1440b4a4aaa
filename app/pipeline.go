package app

import (
	"context"

	"geodiff/adapters/geo"
	"geodiff/adapters/report"
	"geodiff/adapters/stats/engine"
	"geodiff/domain/diffexpr"
	domaingeo "geodiff/domain/geo"
	"geodiff/domain/run"
	"geodiff/internal"
	"geodiff/internal/analysis"
	"geodiff/internal/dataset"
	"geodiff/ports"
)

// Params configures one pipeline run.
type Params struct {
	Accession   domaingeo.Accession
	MinSamples  int
	LabelPrefix string
	Cutoffs     diffexpr.Cutoffs
	TopN        int
	OutDir      string
}

// Outcome is the terminal result of a run: the sorted contrast table joined
// with gene metadata, the summary counts, the run manifest, and the rendered
// artifact paths.
type Outcome struct {
	Table     *diffexpr.Table
	Summary   diffexpr.Summary
	Manifest  *run.Manifest
	Artifacts *report.Artifacts
}

// Pipeline composes the five stages into one batch run. Each stage consumes
// the previous stage's immutable output; the first failure aborts the run
// with no partial results.
type Pipeline struct {
	fetcher  ports.DatasetFetcher
	recorder ports.RunRecorder
	engine   *engine.Engine
	reporter *report.Writer
	log      *internal.Logger
}

// NewPipeline wires the pipeline from its collaborators. recorder and
// reporter may be nil, in which case the run is not persisted or rendered
// (used by lookups and tests that only need the table).
func NewPipeline(fetcher ports.DatasetFetcher, recorder ports.RunRecorder, eng *engine.Engine, reporter *report.Writer, log *internal.Logger) *Pipeline {
	return &Pipeline{
		fetcher:  fetcher,
		recorder: recorder,
		engine:   eng,
		reporter: reporter,
		log:      log.WithPrefix("pipeline"),
	}
}

// Run executes fetch, preprocess, filter, engine, and reporting in order.
func (p *Pipeline) Run(ctx context.Context, params Params) (*Outcome, error) {
	manifest := run.New(params.Accession, params.MinSamples, params.Cutoffs)

	path, err := p.fetcher.Fetch(ctx, params.Accession)
	if err != nil {
		return nil, err
	}

	raw, err := geo.ParseSOFT(path)
	if err != nil {
		return nil, err
	}
	p.log.Info("parsed %s: %d genes x %d samples",
		raw.Accession, raw.Table.RowCount(), raw.Table.ColumnCount())

	tables, err := dataset.Preprocess(raw, dataset.Options{LabelPrefix: params.LabelPrefix})
	if err != nil {
		return nil, err
	}

	filtered, mask, err := dataset.FilterByExpression(tables.Matrix, params.MinSamples)
	if err != nil {
		return nil, err
	}
	p.log.Info("filter kept %d of %d genes (min %d samples above global median)",
		mask.Kept(), len(mask), params.MinSamples)

	table, fit, err := p.engine.Run(ctx, filtered, tables.Labels())
	if err != nil {
		return nil, err
	}
	joinGeneMetadata(table, tables.Genes)

	summary := table.Summarize(params.Cutoffs)

	manifest.GenesTotal = len(mask)
	manifest.GenesKept = mask.Kept()
	manifest.Samples = len(tables.Samples)
	manifest.Contrast = table.Contrast
	manifest.WeightIters = fit.Iter
	manifest.DFPrior = table.DFPrior
	manifest.S2Prior = table.S2Prior
	manifest.Up = summary.Up
	manifest.Down = summary.Down
	manifest.Unchanged = summary.Unchanged
	manifest.Finish()

	outcome := &Outcome{Table: table, Summary: summary, Manifest: manifest}

	if p.reporter != nil {
		bundle := &report.Bundle{
			Accession:   raw.Accession,
			Title:       raw.Title,
			Samples:     tables.Samples,
			Matrix:      tables.Matrix,
			Table:       table,
			Cutoffs:     params.Cutoffs,
			Summary:     summary,
			Summaries:   analysis.SummarizeSamples(tables.Matrix, tables.Samples),
			Correlation: analysis.SampleCorrelation(tables.Matrix),
			Manifest:    manifest,
		}
		bundle.PCA, err = analysis.PCA(tables.Matrix)
		if err != nil {
			return nil, err
		}
		outcome.Artifacts, err = p.reporter.Write(bundle)
		if err != nil {
			return nil, err
		}
	}

	if p.recorder != nil {
		if err := p.recorder.RecordRun(ctx, manifest); err != nil {
			return nil, err
		}
	}
	return outcome, nil
}

// joinGeneMetadata fills accession and title on every result row from the
// gene metadata table. Display-only: the engine never reads these fields.
func joinGeneMetadata(table *diffexpr.Table, genes []domaingeo.Gene) {
	byID := make(map[string]domaingeo.Gene, len(genes))
	for _, g := range genes {
		byID[g.ID] = g
	}
	for i := range table.Rows {
		if g, ok := byID[table.Rows[i].GeneID]; ok {
			table.Rows[i].Accession = g.Accession
			table.Rows[i].Title = g.Title
		}
	}
}
