package dataset

import (
	"fmt"
	"sort"
	"strings"

	"geodiff/domain/core"
	"geodiff/domain/expr"
	"geodiff/domain/geo"
)

// DefaultLabelPrefix is the literal prefix GDS subset descriptions carry on
// every group label.
const DefaultLabelPrefix = "sample: "

// Options controls preprocessing.
type Options struct {
	// LabelPrefix is stripped once from every group label. Empty means
	// DefaultLabelPrefix.
	LabelPrefix string
}

// Tables is the aligned output of preprocessing: expression matrix plus the
// two metadata tables, dimensionally consistent by construction.
type Tables struct {
	Matrix  *expr.Matrix
	Samples []geo.Sample
	Genes   []geo.Gene
	Groups  [2]string // distinct normalized labels, alphabetical
}

// Preprocess extracts the three aligned tables from a raw dataset, validates
// dimensional consistency, and normalizes group labels down to exactly two
// categories.
func Preprocess(raw *geo.RawDataset, opts Options) (*Tables, error) {
	prefix := opts.LabelPrefix
	if prefix == "" {
		prefix = DefaultLabelPrefix
	}

	if raw.Table.ColumnCount() == 0 {
		return nil, core.NewSchemaError("preprocess", "raw table has no sample columns")
	}
	if raw.Table.RowCount() == 0 {
		return nil, core.NewSchemaError("preprocess", "raw table has no gene rows")
	}
	if raw.SampleCount > 0 && raw.Table.ColumnCount() != raw.SampleCount {
		return nil, core.NewDimensionError("preprocess", "sample",
			raw.Table.ColumnCount(), raw.SampleCount)
	}
	if raw.FeatureCount > 0 && raw.Table.RowCount() != raw.FeatureCount {
		return nil, core.NewDimensionError("preprocess", "gene",
			raw.Table.RowCount(), raw.FeatureCount)
	}

	// Sample metadata: every sample column must be claimed by a subset,
	// otherwise its group label is missing.
	samples := make([]geo.Sample, 0, raw.Table.ColumnCount())
	for _, id := range raw.Table.SampleIDs {
		group, ok := raw.GroupOf(id)
		if !ok {
			return nil, core.NewSchemaError("preprocess",
				fmt.Sprintf("sample %s has no group label", id))
		}
		samples = append(samples, geo.Sample{
			ID:          id,
			Group:       NormalizeLabel(group, prefix),
			Description: group,
		})
	}

	// Gene metadata: identifier and accession must both be present.
	genes := make([]geo.Gene, 0, raw.Table.RowCount())
	for i, g := range raw.Table.Genes {
		if g.ID == "" {
			return nil, core.NewSchemaError("preprocess",
				fmt.Sprintf("gene row %d missing identifier", i))
		}
		if g.Accession == "" {
			return nil, core.NewSchemaError("preprocess",
				fmt.Sprintf("gene %s missing accession", g.ID))
		}
		genes = append(genes, g)
	}

	matrix := &expr.Matrix{
		Genes:   geneIDs(genes),
		Samples: raw.Table.SampleIDs,
		Values:  raw.Table.Values,
	}
	if err := matrix.Validate(); err != nil {
		return nil, err
	}

	groups, err := distinctGroups(samples)
	if err != nil {
		return nil, err
	}

	return &Tables{Matrix: matrix, Samples: samples, Genes: genes, Groups: groups}, nil
}

// NormalizeLabel strips the prefix once. Idempotent: stripping an already
// normalized label changes nothing.
func NormalizeLabel(label, prefix string) string {
	return strings.TrimPrefix(label, prefix)
}

// Labels returns the normalized group label of every sample, in order.
func (t *Tables) Labels() []string {
	out := make([]string, len(t.Samples))
	for i, s := range t.Samples {
		out[i] = s.Group
	}
	return out
}

// distinctGroups collapses the normalized labels and requires exactly two.
func distinctGroups(samples []geo.Sample) ([2]string, error) {
	seen := make(map[string]struct{})
	for _, s := range samples {
		seen[s.Group] = struct{}{}
	}
	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	if len(labels) != 2 {
		return [2]string{}, core.NewLabelError(labels)
	}
	return [2]string{labels[0], labels[1]}, nil
}

func geneIDs(genes []geo.Gene) []string {
	out := make([]string, len(genes))
	for i, g := range genes {
		out[i] = g.ID
	}
	return out
}
