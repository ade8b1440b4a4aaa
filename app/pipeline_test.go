package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adaptergeo "geodiff/adapters/geo"
	"geodiff/adapters/report"
	"geodiff/adapters/stats/engine"
	"geodiff/domain/core"
	"geodiff/domain/diffexpr"
	"geodiff/internal"
	"geodiff/internal/testkit"
)

func testLogger() *internal.Logger {
	return internal.NewLogger(internal.LogLevelError)
}

func testEngine() *engine.Engine {
	return engine.New(testLogger(), engine.DefaultWeightOptions(), 2)
}

func testParams() Params {
	return Params{
		Accession:  "GDS9001",
		MinSamples: 3,
		Cutoffs:    diffexpr.Cutoffs{P: 0.01, LogFC: 1.0},
		TopN:       10,
	}
}

func TestPipeline_Run_EndToEnd(t *testing.T) {
	opts := testkit.Options{Genes: 200, PerGroup: 6, DEGenes: 20, Shift: 3, Seed: 41}
	path, err := testkit.WriteSOFT(t.TempDir(), opts)
	require.NoError(t, err)
	fetcher := &testkit.StubFetcher{Path: path}

	p := NewPipeline(fetcher, nil, testEngine(), nil, testLogger())
	out, err := p.Run(context.Background(), testParams())
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.Calls)

	m := out.Manifest
	assert.Equal(t, 200, m.GenesTotal)
	assert.Greater(t, m.GenesKept, 0)
	assert.Less(t, m.GenesKept, m.GenesTotal, "the median filter must drop some genes")
	assert.Equal(t, 12, m.Samples)
	assert.Equal(t, "Normal-Tumor", m.Contrast)
	assert.False(t, m.FinishedAt.IsZero())

	require.Len(t, out.Table.Rows, m.GenesKept)
	top := out.Table.Rows[0]
	assert.NotEmpty(t, top.Accession, "metadata join must fill accessions")
	assert.NotEmpty(t, top.Title)

	assert.Equal(t, m.GenesKept, out.Summary.Up+out.Summary.Down+out.Summary.Unchanged)
	assert.Greater(t, out.Summary.Up+out.Summary.Down, 0, "planted genes should be significant")

	assert.Nil(t, out.Artifacts)
}

func TestPipeline_Run_LookupByAccession(t *testing.T) {
	opts := testkit.Options{Genes: 150, PerGroup: 6, DEGenes: 10, Seed: 43}
	path, err := testkit.WriteSOFT(t.TempDir(), opts)
	require.NoError(t, err)

	p := NewPipeline(&testkit.StubFetcher{Path: path}, nil, testEngine(), nil, testLogger())
	out, err := p.Run(context.Background(), testParams())
	require.NoError(t, err)

	// Present or absent depends on the filter; a present accession maps to
	// exactly one row with its own probe ID.
	for i := 0; i < 150; i++ {
		rows := out.Table.LookupAccession(testkit.AccessionOf(i))
		if len(rows) == 0 {
			continue
		}
		require.Len(t, rows, 1)
		assert.Equal(t, testkit.AccessionOf(i), rows[0].Accession)
	}
	assert.Empty(t, out.Table.LookupAccession("NM_999999"))
}

func TestPipeline_Run_ThreeGroupsFailsBeforeEngine(t *testing.T) {
	opts := testkit.Options{
		Genes:    30,
		PerGroup: 3,
		Seed:     47,
		GroupLabels: []string{
			"sample: Normal", "sample: Tumor", "sample: Borderline",
		},
	}
	path, err := testkit.WriteSOFT(t.TempDir(), opts)
	require.NoError(t, err)

	p := NewPipeline(&testkit.StubFetcher{Path: path}, nil, testEngine(), nil, testLogger())
	_, err = p.Run(context.Background(), testParams())
	require.Error(t, err)
	assert.True(t, core.IsLabelError(err))
}

func TestPipeline_Run_FetchFailureAborts(t *testing.T) {
	fetchErr := core.NewDownloadError("GDS9001", os.ErrDeadlineExceeded)
	p := NewPipeline(&testkit.StubFetcher{Err: fetchErr}, nil, testEngine(), nil, testLogger())
	_, err := p.Run(context.Background(), testParams())
	require.Error(t, err)
	assert.True(t, core.IsDownloadError(err))
}

func TestPipeline_Run_WithReportAndLedger(t *testing.T) {
	opts := testkit.Options{Genes: 120, PerGroup: 5, DEGenes: 12, Shift: 3, Seed: 53}
	dir := t.TempDir()
	path, err := testkit.WriteSOFT(dir, opts)
	require.NoError(t, err)

	cache, err := adaptergeo.OpenCache(filepath.Join(dir, "cache"))
	require.NoError(t, err)
	defer cache.Close()

	outDir := filepath.Join(dir, "out")
	reporter := report.NewWriter(outDir, 10, testLogger())

	p := NewPipeline(&testkit.StubFetcher{Path: path}, cache, testEngine(), reporter, testLogger())
	out, err := p.Run(context.Background(), testParams())
	require.NoError(t, err)

	require.NotNil(t, out.Artifacts)
	for _, artifact := range []string{
		out.Artifacts.TopTableCSV,
		out.Artifacts.TopTableXLSX,
		out.Artifacts.BoxplotPNG,
		out.Artifacts.HeatmapPNG,
		out.Artifacts.PCAPNG,
		out.Artifacts.VolcanoPNG,
		out.Artifacts.ReportMD,
		out.Artifacts.ReportHTML,
	} {
		info, err := os.Stat(artifact)
		require.NoError(t, err, "artifact %s", artifact)
		assert.Greater(t, info.Size(), int64(0))
	}

	runs, err := cache.Runs(context.Background(), "GDS9001")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, out.Manifest.RunID, runs[0].RunID)
}
