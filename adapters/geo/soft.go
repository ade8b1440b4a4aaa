package geo

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"geodiff/domain/core"
	"geodiff/domain/geo"
)

// SOFT line prefixes
const (
	entityDataset = "^DATASET"
	entitySubset  = "^SUBSET"
	tableBegin    = "!dataset_table_begin"
	tableEnd      = "!dataset_table_end"
)

// Annotation column names recognized in the expression table. Every other
// column is treated as a sample column.
const (
	colIDRef      = "ID_REF"
	colIdentifier = "IDENTIFIER"
	colTitle      = "DESCRIPTION"
)

// ParseSOFT reads a GDS SOFT file (plain or gzip, by extension) into a
// RawDataset. Structural problems surface as SchemaError.
func ParseSOFT(path string) (*geo.RawDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.NewSchemaError("soft", fmt.Sprintf("open %s: %v", path, err))
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, core.NewSchemaError("soft", fmt.Sprintf("gzip %s: %v", path, err))
		}
		defer gz.Close()
		r = gz
	}
	return parseSOFT(r)
}

func parseSOFT(r io.Reader) (*geo.RawDataset, error) {
	ds := &geo.RawDataset{}
	var subset *geo.Subset

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<24) // table rows on wide arrays are long

	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, entitySubset):
			if subset != nil {
				ds.Subsets = append(ds.Subsets, *subset)
			}
			subset = &geo.Subset{ID: entityValue(line)}

		case strings.HasPrefix(line, entityDataset):
			if subset != nil {
				ds.Subsets = append(ds.Subsets, *subset)
				subset = nil
			}
			if ds.Accession == "" {
				ds.Accession = geo.Accession(entityValue(line))
			}

		case strings.HasPrefix(line, tableBegin):
			if subset != nil {
				ds.Subsets = append(ds.Subsets, *subset)
				subset = nil
			}
			table, err := parseTable(sc)
			if err != nil {
				return nil, err
			}
			ds.Table = *table

		case strings.HasPrefix(line, "!"):
			key, value := attribute(line)
			if subset != nil {
				applySubsetAttr(subset, key, value)
			} else {
				applyDatasetAttr(ds, key, value)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, core.NewSchemaError("soft", fmt.Sprintf("read: %v", err))
	}
	if subset != nil {
		ds.Subsets = append(ds.Subsets, *subset)
	}

	if ds.Accession == "" {
		return nil, core.NewSchemaError("soft", "no ^DATASET entity found")
	}
	if ds.Table.RowCount() == 0 {
		return nil, core.NewSchemaError("soft", "no expression table found")
	}
	return ds, nil
}

// parseTable consumes the header and data rows between !dataset_table_begin
// and !dataset_table_end.
func parseTable(sc *bufio.Scanner) (*geo.Table, error) {
	if !sc.Scan() {
		return nil, core.NewSchemaError("soft", "table begin marker with no header row")
	}
	header := strings.Split(sc.Text(), "\t")

	idIdx, identIdx, titleIdx := -1, -1, -1
	var sampleIdx []int
	table := &geo.Table{}
	for i, name := range header {
		switch name {
		case colIDRef:
			idIdx = i
		case colIdentifier:
			identIdx = i
		case colTitle:
			titleIdx = i
		default:
			sampleIdx = append(sampleIdx, i)
			table.SampleIDs = append(table.SampleIDs, name)
		}
	}
	if idIdx < 0 {
		return nil, core.NewSchemaError("soft", "table header missing ID_REF column")
	}
	if identIdx < 0 {
		return nil, core.NewSchemaError("soft", "table header missing IDENTIFIER column")
	}
	if len(sampleIdx) == 0 {
		return nil, core.NewSchemaError("soft", "table header has no sample columns")
	}

	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, tableEnd) {
			return table, nil
		}
		fields := strings.Split(line, "\t")
		if len(fields) != len(header) {
			return nil, core.NewSchemaError("soft",
				fmt.Sprintf("table row %d has %d fields, expected %d",
					table.RowCount()+1, len(fields), len(header)))
		}
		gene := geo.Gene{ID: fields[idIdx], Accession: fields[identIdx]}
		if titleIdx >= 0 {
			gene.Title = fields[titleIdx]
		}
		values := make([]float64, len(sampleIdx))
		for k, idx := range sampleIdx {
			values[k] = parseValue(fields[idx])
		}
		table.Genes = append(table.Genes, gene)
		table.Values = append(table.Values, values)
	}
	return nil, core.NewSchemaError("soft", "table not terminated by !dataset_table_end")
}

// parseValue maps the SOFT missing-value spellings to NaN.
func parseValue(s string) float64 {
	switch s {
	case "", "null", "NA", "NaN":
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// entityValue extracts V from "^ENTITY = V".
func entityValue(line string) string {
	if i := strings.Index(line, "="); i >= 0 {
		return strings.TrimSpace(line[i+1:])
	}
	return ""
}

// attribute splits "!key = value".
func attribute(line string) (string, string) {
	body := strings.TrimPrefix(line, "!")
	if i := strings.Index(body, "="); i >= 0 {
		return strings.TrimSpace(body[:i]), strings.TrimSpace(body[i+1:])
	}
	return strings.TrimSpace(body), ""
}

func applyDatasetAttr(ds *geo.RawDataset, key, value string) {
	switch key {
	case "dataset_title":
		ds.Title = value
	case "dataset_sample_count":
		ds.SampleCount, _ = strconv.Atoi(value)
	case "dataset_feature_count":
		ds.FeatureCount, _ = strconv.Atoi(value)
	}
}

func applySubsetAttr(s *geo.Subset, key, value string) {
	switch key {
	case "subset_description":
		s.Description = value
	case "subset_type":
		s.Type = value
	case "subset_sample_id":
		for _, id := range strings.Split(value, ",") {
			if id = strings.TrimSpace(id); id != "" {
				s.SampleIDs = append(s.SampleIDs, id)
			}
		}
	}
}
