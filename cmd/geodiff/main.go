package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	geoadapter "geodiff/adapters/geo"
	"geodiff/adapters/report"
	"geodiff/adapters/stats/engine"
	"geodiff/app"
	"geodiff/domain/diffexpr"
	"geodiff/domain/geo"
	"geodiff/internal"
	"geodiff/internal/config"
)

func main() {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "geodiff",
		Short: "Differential-expression analysis of GEO GDS datasets",
	}
	rootCmd.AddCommand(
		newFetchCmd(),
		newRunCmd(),
		newLookupCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newFetchCmd() *cobra.Command {
	var cacheDir string

	cmd := &cobra.Command{
		Use:   "fetch [accession]",
		Short: "Download a GDS dataset into the local cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cacheDir != "" {
				cfg.Data.CacheDir = cacheDir
			}
			log := internal.NewDefaultLogger()

			cache, err := geoadapter.OpenCache(cfg.Data.CacheDir)
			if err != nil {
				return err
			}
			defer cache.Close()

			fetcher := geoadapter.NewFetcher(cfg.Geo.BaseURL, cfg.Geo.Timeout, cache, log)
			path, err := fetcher.Fetch(cmd.Context(), geo.Accession(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("cached at %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "cache directory (default from CACHE_DIR)")
	return cmd
}

func newRunCmd() *cobra.Command {
	var (
		cacheDir   string
		outDir     string
		minSamples int
		pCutoff    float64
		lfcCutoff  float64
		topN       int
	)

	cmd := &cobra.Command{
		Use:   "run [accession]",
		Short: "Run the full differential-expression pipeline",
		Long: `Run the full pipeline: download (or reuse the cached copy of) the dataset,
preprocess and filter it, fit weighted per-gene linear models with
empirical-Bayes moderation, and render tables and plots.

Example: geodiff run GDS4382 --min-samples 3 --p-cutoff 0.01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyFlag(&cfg.Data.CacheDir, cacheDir)
			applyFlag(&cfg.Report.OutDir, outDir)
			if cmd.Flags().Changed("min-samples") {
				cfg.Data.MinSamples = minSamples
			}
			if cmd.Flags().Changed("p-cutoff") {
				cfg.Report.PCutoff = pCutoff
			}
			if cmd.Flags().Changed("lfc-cutoff") {
				cfg.Report.LFCCutoff = lfcCutoff
			}
			if cmd.Flags().Changed("top") {
				cfg.Report.TopN = topN
			}

			outcome, cleanup, err := runPipeline(cmd, cfg, geo.Accession(args[0]), true)
			if err != nil {
				return err
			}
			defer cleanup()

			s := outcome.Summary
			fmt.Printf("contrast %s: %d genes tested\n", outcome.Table.Contrast, len(outcome.Table.Rows))
			fmt.Printf("down=%d unchanged=%d up=%d (p<%g, |logFC|>=%g)\n",
				s.Down, s.Unchanged, s.Up, cfg.Report.PCutoff, cfg.Report.LFCCutoff)
			if outcome.Artifacts != nil {
				fmt.Printf("report: %s\n", outcome.Artifacts.ReportHTML)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "cache directory (default from CACHE_DIR)")
	cmd.Flags().StringVar(&outDir, "out", "", "report output directory (default from REPORT_DIR)")
	cmd.Flags().IntVar(&minSamples, "min-samples", 3, "filter threshold: samples a gene must exceed the global median in")
	cmd.Flags().Float64Var(&pCutoff, "p-cutoff", 0.01, "p-value significance threshold for summary counts")
	cmd.Flags().Float64Var(&lfcCutoff, "lfc-cutoff", 1.0, "absolute logFC threshold for summary counts")
	cmd.Flags().IntVar(&topN, "top", 25, "rows shown in the report's ranked table")
	return cmd
}

func newLookupCmd() *cobra.Command {
	var cacheDir string

	cmd := &cobra.Command{
		Use:   "lookup [accession] [gene-accession]",
		Short: "Run the pipeline and print the result row for one gene accession",
		Long: `Run the pipeline (reports are skipped) and print the contrast result for a
single gene accession.

Example: geodiff lookup GDS4382 NM_000784`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyFlag(&cfg.Data.CacheDir, cacheDir)

			outcome, cleanup, err := runPipeline(cmd, cfg, geo.Accession(args[0]), false)
			if err != nil {
				return err
			}
			defer cleanup()

			rows := outcome.Table.LookupAccession(args[1])
			if len(rows) == 0 {
				fmt.Printf("accession %s not present in the result table\n", args[1])
				return nil
			}
			for _, r := range rows {
				fmt.Printf("%s\t%s\tlogFC=%.3f\tt=%.2f\tp=%.3g\tadj.p=%.3g\tB=%.2f\n",
					r.GeneID, r.Accession, r.LogFC, r.T, r.P, r.AdjP, r.LogOdds)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "cache directory (default from CACHE_DIR)")
	return cmd
}

// runPipeline wires the adapters from config and executes one run.
func runPipeline(cmd *cobra.Command, cfg *config.Config, accession geo.Accession, withReport bool) (*app.Outcome, func(), error) {
	log := internal.NewDefaultLogger()

	cache, err := geoadapter.OpenCache(cfg.Data.CacheDir)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { cache.Close() }

	fetcher := geoadapter.NewFetcher(cfg.Geo.BaseURL, cfg.Geo.Timeout, cache, log)
	eng := engine.New(log, engine.WeightOptions{
		MaxIter: cfg.Engine.WeightMaxIter,
		Tol:     cfg.Engine.WeightTol,
		Floor:   cfg.Engine.WeightFloor,
		Ceiling: cfg.Engine.WeightCeiling,
	}, cfg.Engine.Workers)

	var reporter *report.Writer
	if withReport {
		reporter = report.NewWriter(cfg.Report.OutDir, cfg.Report.TopN, log)
	}

	pipeline := app.NewPipeline(fetcher, cache, eng, reporter, log)
	outcome, err := pipeline.Run(cmd.Context(), app.Params{
		Accession:   accession,
		MinSamples:  cfg.Data.MinSamples,
		LabelPrefix: cfg.Data.LabelPrefix,
		Cutoffs:     diffexpr.Cutoffs{P: cfg.Report.PCutoff, LogFC: cfg.Report.LFCCutoff},
		TopN:        cfg.Report.TopN,
		OutDir:      cfg.Report.OutDir,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return outcome, cleanup, nil
}

func applyFlag(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
