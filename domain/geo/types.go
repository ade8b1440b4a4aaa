package geo

// Accession identifies a GEO dataset (e.g. "GDS4382").
type Accession string

// RawDataset is the parsed SOFT representation of a GDS dataset before any
// preprocessing. It mirrors the file: a header block, subset blocks mapping
// sample IDs to group descriptions, and one expression table.
type RawDataset struct {
	Accession    Accession
	Title        string
	SampleCount  int // declared in the header; 0 when absent
	FeatureCount int // declared in the header; 0 when absent
	Subsets      []Subset
	Table        Table
}

// Subset maps a set of sample IDs to one group description, as declared by a
// ^SUBSET block in the SOFT file.
type Subset struct {
	ID          string
	Type        string
	Description string
	SampleIDs   []string
}

// Table is the raw expression table: one row per probe, one value column per
// sample, plus the ID_REF/IDENTIFIER annotation columns.
type Table struct {
	SampleIDs []string
	Genes     []Gene
	Values    [][]float64 // rows align with Genes, columns with SampleIDs; NaN for missing
}

// Sample is the per-sample metadata record. Group is mutated exactly once,
// when the Preprocessor strips the label prefix; after that it is read-only.
type Sample struct {
	ID          string
	Group       string
	Description string // auxiliary, unused by the engine
}

// Gene is the per-gene metadata record. Read-only after load; joined into
// results for display only.
type Gene struct {
	ID        string // probe identifier (ID_REF)
	Accession string // sequence accession (IDENTIFIER), e.g. NM_000784
	Title     string // descriptive title when the table carries one
}

// RowCount returns the number of probes in the raw table.
func (t *Table) RowCount() int { return len(t.Genes) }

// ColumnCount returns the number of sample columns in the raw table.
func (t *Table) ColumnCount() int { return len(t.SampleIDs) }

// GroupOf returns the subset description covering the given sample ID, or
// false when no subset claims it.
func (d *RawDataset) GroupOf(sampleID string) (string, bool) {
	for _, s := range d.Subsets {
		for _, id := range s.SampleIDs {
			if id == sampleID {
				return s.Description, true
			}
		}
	}
	return "", false
}
