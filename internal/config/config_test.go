package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geodiff/internal/errors"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://ftp.ncbi.nlm.nih.gov/geo/datasets", cfg.Geo.BaseURL)
	assert.Equal(t, ".geodiff-cache", cfg.Data.CacheDir)
	assert.Equal(t, 3, cfg.Data.MinSamples)
	assert.Equal(t, "sample: ", cfg.Data.LabelPrefix)
	assert.Equal(t, 10, cfg.Engine.WeightMaxIter)
	assert.Equal(t, 0.01, cfg.Report.PCutoff)
	assert.Equal(t, 1.0, cfg.Report.LFCCutoff)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GEO_ACCESSION", "GDS4382")
	t.Setenv("FILTER_MIN_SAMPLES", "5")
	t.Setenv("P_CUTOFF", "0.05")
	t.Setenv("ENGINE_WORKERS", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "GDS4382", cfg.Data.Accession)
	assert.Equal(t, 5, cfg.Data.MinSamples)
	assert.Equal(t, 0.05, cfg.Report.PCutoff)
	assert.Equal(t, 8, cfg.Engine.Workers)
}

func TestLoad_MalformedNumberFallsBack(t *testing.T) {
	t.Setenv("FILTER_MIN_SAMPLES", "many")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Data.MinSamples)
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]string{
		"FILTER_MIN_SAMPLES": "0",
		"P_CUTOFF":           "1.5",
		"LFC_CUTOFF":         "-1",
		"WEIGHT_FLOOR":       "0",
		"ENGINE_WORKERS":     "0",
	}
	for key, bad := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, bad)
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}
