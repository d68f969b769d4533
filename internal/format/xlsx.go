package format

import (
	"fmt"
	"io"

	"github.com/joacominatel/tabula/internal/table"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// ReadXLSX reads the active sheet of a workbook: first row header, later
// rows zipped positionally, missing trailing cells empty.
func ReadXLSX(name string, r io.Reader) (*table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return xlsxTable(name, f)
}

func readXLSX(name, path string) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return xlsxTable(name, f)
}

func xlsxTable(name string, f *excelize.File) (*table.Table, error) {
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		return nil, fmt.Errorf("xlsx: %w", ErrEmptySource)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("xlsx: %w", ErrEmptySource)
	}
	return table.FromRecords(name, rows[0], rows[1:])
}

// WriteXLSX writes a single-sheet workbook with a bold header row.
func WriteXLSX(w io.Writer, t *table.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, t.NumColumns())
	for i, h := range t.Header() {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if len(header) > 0 {
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("header style: %w", err)
		}
		last, err := excelize.CoordinatesToCellName(len(header), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, "A1", last, style); err != nil {
			return fmt.Errorf("header style: %w", err)
		}
	}

	for i, rec := range t.Records() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
