package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"geodiff/domain/diffexpr"
	"geodiff/domain/expr"
	"geodiff/domain/geo"
	"geodiff/domain/run"
	"geodiff/internal"
	"geodiff/internal/analysis"
	"geodiff/internal/errors"
)

// Bundle is everything the reporting layer consumes. It is a pure consumer:
// nothing here flows back into the engine.
type Bundle struct {
	Accession   geo.Accession
	Title       string
	Samples     []geo.Sample
	Matrix      *expr.Matrix // preprocessed matrix, pre-filter
	Table       *diffexpr.Table
	Cutoffs     diffexpr.Cutoffs
	Summary     diffexpr.Summary
	Summaries   []analysis.SampleSummary
	Correlation [][]float64
	PCA         *analysis.PCAResult
	Manifest    *run.Manifest
}

// Artifacts lists the rendered output files.
type Artifacts struct {
	TopTableCSV  string
	TopTableXLSX string
	BoxplotPNG   string
	HeatmapPNG   string
	PCAPNG       string
	VolcanoPNG   string
	ReportMD     string
	ReportHTML   string
}

// Writer renders tables and plots into an output directory.
type Writer struct {
	outDir string
	topN   int
	log    *internal.Logger
}

// NewWriter creates a report writer. topN bounds the ranked table shown in
// the Markdown report; the CSV/XLSX exports always carry every row.
func NewWriter(outDir string, topN int, log *internal.Logger) *Writer {
	return &Writer{outDir: outDir, topN: topN, log: log.WithPrefix("report")}
}

// Write renders every artifact. Rendering failures abort with a
// REPORT_ERROR; no partial bookkeeping is kept.
func (w *Writer) Write(b *Bundle) (*Artifacts, error) {
	if err := os.MkdirAll(w.outDir, 0o755); err != nil {
		return nil, errors.ReportError("create report directory", err)
	}

	a := &Artifacts{
		TopTableCSV:  filepath.Join(w.outDir, "toptable.csv"),
		TopTableXLSX: filepath.Join(w.outDir, "toptable.xlsx"),
		BoxplotPNG:   filepath.Join(w.outDir, "boxplot.png"),
		HeatmapPNG:   filepath.Join(w.outDir, "correlation.png"),
		PCAPNG:       filepath.Join(w.outDir, "pca.png"),
		VolcanoPNG:   filepath.Join(w.outDir, "volcano.png"),
		ReportMD:     filepath.Join(w.outDir, "report.md"),
		ReportHTML:   filepath.Join(w.outDir, "report.html"),
	}

	if err := w.writeCSV(a.TopTableCSV, b.Table); err != nil {
		return nil, err
	}
	if err := w.writeXLSX(a.TopTableXLSX, b); err != nil {
		return nil, err
	}
	if err := w.plotBoxplot(a.BoxplotPNG, b.Summaries); err != nil {
		return nil, err
	}
	if err := w.plotHeatmap(a.HeatmapPNG, b.Matrix.Samples, b.Correlation); err != nil {
		return nil, err
	}
	if err := w.plotPCA(a.PCAPNG, b.PCA, b.Samples); err != nil {
		return nil, err
	}
	if err := w.plotVolcano(a.VolcanoPNG, b.Table, b.Cutoffs); err != nil {
		return nil, err
	}
	if err := w.writeReport(a, b); err != nil {
		return nil, err
	}

	w.log.Info("rendered %d artifacts into %s", 8, w.outDir)
	return a, nil
}

func (w *Writer) writeCSV(path string, table *diffexpr.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.ReportError("create toptable.csv", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"gene_id", "accession", "title", "logFC", "t", "P.Value", "adj.P.Val", "B"}); err != nil {
		return errors.ReportError("write toptable.csv header", err)
	}
	for _, r := range table.Rows {
		rec := []string{
			r.GeneID,
			r.Accession,
			r.Title,
			formatFloat(r.LogFC),
			formatFloat(r.T),
			formatFloat(r.P),
			formatFloat(r.AdjP),
			formatFloat(r.LogOdds),
		}
		if err := cw.Write(rec); err != nil {
			return errors.ReportError("write toptable.csv row", err)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush toptable.csv")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
