package report

import (
	"github.com/xuri/excelize/v2"

	"geodiff/internal/errors"
)

// writeXLSX exports the full ranked table plus a summary sheet.
func (w *Writer) writeXLSX(path string, b *Bundle) error {
	f := excelize.NewFile()
	defer f.Close()

	const tableSheet = "TopTable"
	if err := f.SetSheetName("Sheet1", tableSheet); err != nil {
		return errors.ReportError("rename sheet", err)
	}

	header := []interface{}{"gene_id", "accession", "title", "logFC", "t", "P.Value", "adj.P.Val", "B"}
	if err := setRow(f, tableSheet, 1, header); err != nil {
		return err
	}
	for i, r := range b.Table.Rows {
		row := []interface{}{r.GeneID, r.Accession, r.Title, r.LogFC, r.T, r.P, r.AdjP, r.LogOdds}
		if err := setRow(f, tableSheet, i+2, row); err != nil {
			return err
		}
	}

	const summarySheet = "Summary"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return errors.ReportError("create summary sheet", err)
	}
	rows := [][]interface{}{
		{"accession", string(b.Accession)},
		{"contrast", b.Table.Contrast},
		{"genes tested", len(b.Table.Rows)},
		{"p cutoff", b.Cutoffs.P},
		{"logFC cutoff", b.Cutoffs.LogFC},
		{"down", b.Summary.Down},
		{"unchanged", b.Summary.Unchanged},
		{"up", b.Summary.Up},
		{"prior df", b.Table.DFPrior},
		{"prior s2", b.Table.S2Prior},
	}
	for i, row := range rows {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.ReportError("save toptable.xlsx", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return errors.ReportError("cell coordinates", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return errors.ReportError("write sheet row", err)
	}
	return nil
}
