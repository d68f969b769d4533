package format

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/joacominatel/tabula/internal/table"
)

// ReadCSV parses CSV data: the first record is the header, later records
// map positionally onto it. Every column is str.
func ReadCSV(name string, r io.Reader) (*table.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv: %w", ErrEmptySource)
	}

	for _, rec := range records {
		for _, field := range rec {
			if !utf8.ValidString(field) {
				return nil, errors.New("csv: file is not valid UTF-8")
			}
		}
	}

	return table.FromRecords(name, records[0], records[1:])
}

func readCSVFile(name, path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return ReadCSV(name, f)
}

// WriteCSV writes the header followed by one record per row.
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if t.NumColumns() > 0 {
		if err := cw.Write(t.Header()); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, rec := range t.Records() {
		line := make([]string, len(rec))
		for i, v := range rec {
			line[i] = table.FormatValue(v)
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
