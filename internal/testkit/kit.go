package testkit

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"geodiff/domain/expr"
	"geodiff/domain/geo"
)

// Options shapes a synthetic GDS dataset. All generation is seeded, so two
// kits with the same options produce byte-identical datasets.
type Options struct {
	Accession string
	Genes     int
	PerGroup  int // samples per group (Normal and Tumor)
	DEGenes   int // genes with a planted group difference
	Shift     float64
	Seed      int64
	// GroupLabels overrides the two subset descriptions; default
	// {"sample: Normal", "sample: Tumor"}. More than two entries spread
	// samples across extra groups, for label-failure tests.
	GroupLabels []string
	MissingRate float64
}

// Defaults fills unset fields with sensible test values.
func (o Options) defaults() Options {
	if o.Accession == "" {
		o.Accession = "GDS9001"
	}
	if o.Genes == 0 {
		o.Genes = 200
	}
	if o.PerGroup == 0 {
		o.PerGroup = 6
	}
	if o.Shift == 0 {
		o.Shift = 3
	}
	if len(o.GroupLabels) == 0 {
		o.GroupLabels = []string{"sample: Normal", "sample: Tumor"}
	}
	return o
}

// AccessionOf returns the synthetic sequence accession of gene i, so tests
// can look up a known row.
func AccessionOf(i int) string {
	return fmt.Sprintf("NM_%06d", i)
}

// SOFT renders a complete synthetic SOFT document.
func SOFT(opts Options) string {
	opts = opts.defaults()
	rng := rand.New(rand.NewSource(opts.Seed))

	nGroups := len(opts.GroupLabels)
	nSamples := opts.PerGroup * nGroups
	sampleIDs := make([]string, nSamples)
	for j := range sampleIDs {
		sampleIDs[j] = fmt.Sprintf("GSM%04d", j+1)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "^DATABASE = GeoMiame\n")
	fmt.Fprintf(&sb, "^DATASET = %s\n", opts.Accession)
	fmt.Fprintf(&sb, "!dataset_title = synthetic two-group expression set\n")
	fmt.Fprintf(&sb, "!dataset_sample_count = %d\n", nSamples)
	fmt.Fprintf(&sb, "!dataset_feature_count = %d\n", opts.Genes)

	for g, label := range opts.GroupLabels {
		ids := sampleIDs[g*opts.PerGroup : (g+1)*opts.PerGroup]
		fmt.Fprintf(&sb, "^SUBSET = %s_%d\n", opts.Accession, g+1)
		fmt.Fprintf(&sb, "!subset_dataset_id = %s\n", opts.Accession)
		fmt.Fprintf(&sb, "!subset_description = %s\n", label)
		fmt.Fprintf(&sb, "!subset_sample_id = %s\n", strings.Join(ids, ","))
		fmt.Fprintf(&sb, "!subset_type = disease state\n")
	}

	fmt.Fprintf(&sb, "^DATASET = %s\n", opts.Accession)
	fmt.Fprintf(&sb, "!dataset_table_begin\n")
	fmt.Fprintf(&sb, "ID_REF\tIDENTIFIER\tDESCRIPTION\t%s\n", strings.Join(sampleIDs, "\t"))

	for i := 0; i < opts.Genes; i++ {
		base := 6 + 4*rng.Float64()
		shift := 0.0
		if i < opts.DEGenes {
			shift = opts.Shift
			if i%2 == 1 {
				shift = -opts.Shift
			}
		}
		fmt.Fprintf(&sb, "probe_%04d_at\t%s\tsynthetic gene %d", i, AccessionOf(i), i)
		for j := 0; j < nSamples; j++ {
			if opts.MissingRate > 0 && rng.Float64() < opts.MissingRate {
				sb.WriteString("\tnull")
				continue
			}
			v := base + 0.4*rng.NormFloat64()
			if j >= opts.PerGroup && nGroups == 2 {
				v += shift // Tumor group carries the planted difference
			}
			fmt.Fprintf(&sb, "\t%.4f", v)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "!dataset_table_end\n")
	return sb.String()
}

// WriteSOFT materializes a synthetic dataset under dir and returns its path.
func WriteSOFT(dir string, opts Options) (string, error) {
	opts = opts.defaults()
	path := filepath.Join(dir, opts.Accession+".soft")
	if err := os.WriteFile(path, []byte(SOFT(opts)), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Matrix builds a synthetic filtered matrix and matching normalized labels,
// for exercising the engine without the loader stages.
func Matrix(opts Options) (*expr.Matrix, []string) {
	opts = opts.defaults()
	rng := rand.New(rand.NewSource(opts.Seed))

	nSamples := 2 * opts.PerGroup
	m := &expr.Matrix{
		Genes:   make([]string, opts.Genes),
		Samples: make([]string, nSamples),
		Values:  make([][]float64, opts.Genes),
	}
	labels := make([]string, nSamples)
	for j := 0; j < nSamples; j++ {
		m.Samples[j] = fmt.Sprintf("GSM%04d", j+1)
		if j < opts.PerGroup {
			labels[j] = "Normal"
		} else {
			labels[j] = "Tumor"
		}
	}
	for i := 0; i < opts.Genes; i++ {
		m.Genes[i] = fmt.Sprintf("probe_%04d_at", i)
		base := 6 + 4*rng.Float64()
		shift := 0.0
		if i < opts.DEGenes {
			shift = opts.Shift
			if i%2 == 1 {
				shift = -opts.Shift
			}
		}
		row := make([]float64, nSamples)
		for j := 0; j < nSamples; j++ {
			row[j] = base + 0.4*rng.NormFloat64()
			if j >= opts.PerGroup {
				row[j] += shift
			}
		}
		m.Values[i] = row
	}
	return m, labels
}

// StubFetcher satisfies ports.DatasetFetcher with a fixed local file.
type StubFetcher struct {
	Path  string
	Err   error
	Calls int
}

func (f *StubFetcher) Fetch(ctx context.Context, accession geo.Accession) (string, error) {
	f.Calls++
	if f.Err != nil {
		return "", f.Err
	}
	return f.Path, nil
}
