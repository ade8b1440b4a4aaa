package report

import (
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"geodiff/domain/diffexpr"
	"geodiff/domain/geo"
	"geodiff/internal/analysis"
	"geodiff/internal/errors"
)

var (
	colorUp      = color.RGBA{R: 202, G: 44, B: 40, A: 255}
	colorDown    = color.RGBA{R: 41, G: 96, B: 181, A: 255}
	colorNeutral = color.RGBA{R: 150, G: 150, B: 150, A: 255}
)

// plotBoxplot renders one box per sample from the precomputed five-number
// summaries. The boxes are rebuilt from the quartiles rather than the raw
// columns to keep the plot layer off the expression matrix.
func (w *Writer) plotBoxplot(path string, summaries []analysis.SampleSummary) error {
	p := plot.New()
	p.Title.Text = "Per-sample expression distribution"
	p.Y.Label.Text = "intensity"

	names := make([]string, 0, len(summaries))
	for i, s := range summaries {
		values := plotter.Values{s.Min, s.Q1, s.Median, s.Q3, s.Max}
		box, err := plotter.NewBoxPlot(vg.Points(8), float64(i), values)
		if err != nil {
			return errors.ReportError("boxplot", err)
		}
		p.Add(box)
		names = append(names, s.ID)
	}
	p.NominalX(names...)

	if err := p.Save(14*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.ReportError("save boxplot.png", err)
	}
	return nil
}

// corrGrid adapts a correlation matrix to the heat-map grid interface.
type corrGrid struct {
	ids  []string
	corr [][]float64
}

func (g corrGrid) Dims() (int, int) { return len(g.ids), len(g.ids) }
func (g corrGrid) X(c int) float64  { return float64(c) }
func (g corrGrid) Y(r int) float64  { return float64(r) }
func (g corrGrid) Z(c, r int) float64 {
	v := g.corr[r][c]
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// plotHeatmap renders the sample-correlation heat map.
func (w *Writer) plotHeatmap(path string, ids []string, corr [][]float64) error {
	p := plot.New()
	p.Title.Text = "Sample correlation"

	pal := moreland.SmoothBlueRed().Palette(255)
	hm := plotter.NewHeatMap(corrGrid{ids: ids, corr: corr}, pal)
	p.Add(hm)

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return errors.ReportError("save correlation.png", err)
	}
	return nil
}

// plotPCA renders the first two principal components, one glyph color per
// group.
func (w *Writer) plotPCA(path string, pca *analysis.PCAResult, samples []geo.Sample) error {
	p := plot.New()
	p.Title.Text = "PCA of samples"
	p.X.Label.Text = "PC1 (" + formatPercent(pca.VarExplained[0]) + ")"
	p.Y.Label.Text = "PC2 (" + formatPercent(pca.VarExplained[1]) + ")"

	groupOf := make(map[string]string, len(samples))
	for _, s := range samples {
		groupOf[s.ID] = s.Group
	}

	byGroup := make(map[string]plotter.XYs)
	var order []string
	for j, id := range pca.SampleIDs {
		g := groupOf[id]
		if _, seen := byGroup[g]; !seen {
			order = append(order, g)
		}
		byGroup[g] = append(byGroup[g], plotter.XY{X: pca.Scores[j][0], Y: pca.Scores[j][1]})
	}

	colors := []color.RGBA{colorDown, colorUp, colorNeutral}
	for i, g := range order {
		sc, err := plotter.NewScatter(byGroup[g])
		if err != nil {
			return errors.ReportError("pca scatter", err)
		}
		sc.GlyphStyle.Color = colors[i%len(colors)]
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add(g, sc)
	}

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.ReportError("save pca.png", err)
	}
	return nil
}

// plotVolcano renders effect size against -log10(p), split into
// up/down/unchanged at the run's cutoffs.
func (w *Writer) plotVolcano(path string, table *diffexpr.Table, cut diffexpr.Cutoffs) error {
	p := plot.New()
	p.Title.Text = "Volcano: " + table.Contrast
	p.X.Label.Text = "logFC"
	p.Y.Label.Text = "-log10(p)"

	var up, down, rest plotter.XYs
	for _, r := range table.Rows {
		if math.IsNaN(r.P) || r.P <= 0 {
			continue
		}
		xy := plotter.XY{X: r.LogFC, Y: -math.Log10(r.P)}
		switch {
		case r.P < cut.P && r.LogFC >= cut.LogFC:
			up = append(up, xy)
		case r.P < cut.P && r.LogFC <= -cut.LogFC:
			down = append(down, xy)
		default:
			rest = append(rest, xy)
		}
	}

	for _, layer := range []struct {
		xys  plotter.XYs
		col  color.RGBA
		name string
	}{
		{rest, colorNeutral, "unchanged"},
		{down, colorDown, "down"},
		{up, colorUp, "up"},
	} {
		if len(layer.xys) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(layer.xys)
		if err != nil {
			return errors.ReportError("volcano scatter", err)
		}
		sc.GlyphStyle.Color = layer.col
		sc.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(sc)
		p.Legend.Add(layer.name, sc)
	}

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.ReportError("save volcano.png", err)
	}
	return nil
}
