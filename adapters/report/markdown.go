package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"geodiff/internal/errors"
)

// writeReport renders the Markdown narrative and its HTML version.
func (w *Writer) writeReport(a *Artifacts, b *Bundle) error {
	md := w.buildMarkdown(a, b)
	if err := os.WriteFile(a.ReportMD, []byte(md), 0o644); err != nil {
		return errors.ReportError("write report.md", err)
	}

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: fmt.Sprintf("Differential expression: %s", b.Accession),
		Flags: html.CompletePage,
	})
	out := markdown.ToHTML([]byte(md), p, renderer)
	if err := os.WriteFile(a.ReportHTML, out, 0o644); err != nil {
		return errors.ReportError("write report.html", err)
	}
	return nil
}

func (w *Writer) buildMarkdown(a *Artifacts, b *Bundle) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Differential expression: %s\n\n", b.Accession)
	if b.Title != "" {
		fmt.Fprintf(&sb, "%s\n\n", b.Title)
	}

	m := b.Manifest
	fmt.Fprintf(&sb, "## Run\n\n")
	fmt.Fprintf(&sb, "| | |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Run ID | %s |\n", m.RunID)
	fmt.Fprintf(&sb, "| Contrast | %s |\n", b.Table.Contrast)
	fmt.Fprintf(&sb, "| Samples | %d |\n", m.Samples)
	fmt.Fprintf(&sb, "| Genes (total / kept) | %d / %d |\n", m.GenesTotal, m.GenesKept)
	fmt.Fprintf(&sb, "| Filter min samples | %d |\n", m.MinSamples)
	fmt.Fprintf(&sb, "| Weight iterations | %d |\n", m.WeightIters)
	fmt.Fprintf(&sb, "| Prior df / s2 | %.3f / %.5f |\n", b.Table.DFPrior, b.Table.S2Prior)
	fmt.Fprintf(&sb, "| Runtime | %s |\n\n", m.Duration().Round(time.Millisecond))

	fmt.Fprintf(&sb, "## Significance at p < %g, |logFC| >= %g\n\n", b.Cutoffs.P, b.Cutoffs.LogFC)
	fmt.Fprintf(&sb, "| Down | Unchanged | Up |\n|---|---|---|\n")
	fmt.Fprintf(&sb, "| %d | %d | %d |\n\n", b.Summary.Down, b.Summary.Unchanged, b.Summary.Up)

	fmt.Fprintf(&sb, "## Top %d genes\n\n", w.topN)
	fmt.Fprintf(&sb, "| Gene | Accession | logFC | t | P.Value | adj.P.Val | B |\n")
	fmt.Fprintf(&sb, "|---|---|---|---|---|---|---|\n")
	for _, r := range b.Table.Top(w.topN) {
		fmt.Fprintf(&sb, "| %s | %s | %.3f | %.2f | %.3g | %.3g | %.2f |\n",
			r.GeneID, r.Accession, r.LogFC, r.T, r.P, r.AdjP, r.LogOdds)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Full table: [CSV](%s), [XLSX](%s)\n\n",
		filepath.Base(a.TopTableCSV), filepath.Base(a.TopTableXLSX))

	fmt.Fprintf(&sb, "## Plots\n\n")
	for _, img := range []struct{ title, path string }{
		{"Sample boxplots", a.BoxplotPNG},
		{"Sample correlation", a.HeatmapPNG},
		{"PCA", a.PCAPNG},
		{"Volcano", a.VolcanoPNG},
	} {
		fmt.Fprintf(&sb, "### %s\n\n![%s](%s)\n\n", img.title, img.title, filepath.Base(img.path))
	}
	return sb.String()
}
