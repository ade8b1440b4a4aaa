package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geodiff/domain/core"
	"geodiff/domain/geo"
)

func rawTwoGroup() *geo.RawDataset {
	return &geo.RawDataset{
		Accession:    "GDS9001",
		SampleCount:  4,
		FeatureCount: 3,
		Subsets: []geo.Subset{
			{ID: "s1", Description: "sample: Normal", SampleIDs: []string{"GSM1", "GSM2"}},
			{ID: "s2", Description: "sample: Tumor", SampleIDs: []string{"GSM3", "GSM4"}},
		},
		Table: geo.Table{
			SampleIDs: []string{"GSM1", "GSM2", "GSM3", "GSM4"},
			Genes: []geo.Gene{
				{ID: "p1", Accession: "NM_000001"},
				{ID: "p2", Accession: "NM_000002"},
				{ID: "p3", Accession: "NM_000784"},
			},
			Values: [][]float64{
				{1, 2, 3, 4},
				{5, 6, 7, 8},
				{2, 2, math.NaN(), 9},
			},
		},
	}
}

func TestPreprocess_AlignedTables(t *testing.T) {
	tables, err := Preprocess(rawTwoGroup(), Options{})
	require.NoError(t, err)

	nGenes, nSamples := tables.Matrix.Dims()
	assert.Equal(t, len(tables.Samples), nSamples)
	assert.Equal(t, len(tables.Genes), nGenes)
	assert.Equal(t, [2]string{"Normal", "Tumor"}, tables.Groups)
	assert.Equal(t, []string{"Normal", "Normal", "Tumor", "Tumor"}, tables.Labels())

	// Labels were normalized in place, descriptions kept verbatim.
	assert.Equal(t, "sample: Normal", tables.Samples[0].Description)
}

func TestPreprocess_SampleWithoutGroupIsSchemaError(t *testing.T) {
	raw := rawTwoGroup()
	raw.Subsets[1].SampleIDs = []string{"GSM3"} // GSM4 orphaned

	_, err := Preprocess(raw, Options{})
	require.Error(t, err)
	assert.True(t, core.IsSchemaError(err))
}

func TestPreprocess_DimensionMismatchIsSchemaError(t *testing.T) {
	raw := rawTwoGroup()
	raw.FeatureCount = 99

	_, err := Preprocess(raw, Options{})
	require.Error(t, err)
	assert.True(t, core.IsSchemaError(err))
}

func TestPreprocess_MissingAccessionIsSchemaError(t *testing.T) {
	raw := rawTwoGroup()
	raw.Table.Genes[1].Accession = ""

	_, err := Preprocess(raw, Options{})
	require.Error(t, err)
	assert.True(t, core.IsSchemaError(err))
}

func TestPreprocess_ThreeGroupsIsLabelError(t *testing.T) {
	raw := rawTwoGroup()
	raw.Subsets[1].SampleIDs = []string{"GSM3"}
	raw.Subsets = append(raw.Subsets, geo.Subset{
		ID: "s3", Description: "sample: Borderline", SampleIDs: []string{"GSM4"},
	})

	_, err := Preprocess(raw, Options{})
	require.Error(t, err)
	assert.True(t, core.IsLabelError(err))
}

func TestPreprocess_OneGroupIsLabelError(t *testing.T) {
	raw := rawTwoGroup()
	raw.Subsets[0].Description = "sample: Tumor"

	_, err := Preprocess(raw, Options{})
	require.Error(t, err)
	assert.True(t, core.IsLabelError(err))
}

func TestNormalizeLabel_Idempotent(t *testing.T) {
	once := NormalizeLabel("sample: Tumor", DefaultLabelPrefix)
	twice := NormalizeLabel(once, DefaultLabelPrefix)
	assert.Equal(t, "Tumor", once)
	assert.Equal(t, once, twice)
}
