package format

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/joacominatel/tabula/internal/table"
)

const (
	odsMimetype = "application/vnd.oasis.opendocument.spreadsheet"

	nsOffice   = "urn:oasis:names:tc:opendocument:xmlns:office:1.0"
	nsTable    = "urn:oasis:names:tc:opendocument:xmlns:table:1.0"
	nsText     = "urn:oasis:names:tc:opendocument:xmlns:text:1.0"
	nsManifest = "urn:oasis:names:tc:opendocument:xmlns:manifest:1.0"

	// Repeated empty rows and cells are only materialised when followed by
	// content; this bounds what a single repeated run can expand to.
	maxRepeat = 1 << 16
)

const odsManifest = `<?xml version="1.0" encoding="UTF-8"?>
<manifest:manifest xmlns:manifest="` + nsManifest + `" manifest:version="1.2">
 <manifest:file-entry manifest:full-path="/" manifest:version="1.2" manifest:media-type="` + odsMimetype + `"/>
 <manifest:file-entry manifest:full-path="content.xml" manifest:media-type="text/xml"/>
</manifest:manifest>
`

// WriteODS writes a single-sheet OpenDocument spreadsheet.
func WriteODS(w io.Writer, t *table.Table) error {
	zw := zip.NewWriter(w)

	// mimetype must be the first entry and stored uncompressed.
	mt, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return fmt.Errorf("ods mimetype: %w", err)
	}
	if _, err := io.WriteString(mt, odsMimetype); err != nil {
		return fmt.Errorf("ods mimetype: %w", err)
	}

	mf, err := zw.Create("META-INF/manifest.xml")
	if err != nil {
		return fmt.Errorf("ods manifest: %w", err)
	}
	if _, err := io.WriteString(mf, odsManifest); err != nil {
		return fmt.Errorf("ods manifest: %w", err)
	}

	cf, err := zw.Create("content.xml")
	if err != nil {
		return fmt.Errorf("ods content: %w", err)
	}
	if err := writeODSContent(cf, t); err != nil {
		return fmt.Errorf("ods content: %w", err)
	}

	return zw.Close()
}

func writeODSContent(w io.Writer, t *table.Table) error {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<office:document-content xmlns:office="` + nsOffice +
		`" xmlns:table="` + nsTable + `" xmlns:text="` + nsText + `" office:version="1.2">`)
	b.WriteString(`<office:body><office:spreadsheet><table:table table:name="` + sheetName + `">`)

	header := make([]any, t.NumColumns())
	for i, h := range t.Header() {
		header[i] = h
	}
	writeODSRow(&b, header)
	for _, rec := range t.Records() {
		writeODSRow(&b, rec)
	}

	b.WriteString(`</table:table></office:spreadsheet></office:body></office:document-content>`)
	_, err := b.WriteTo(w)
	return err
}

func writeODSRow(b *bytes.Buffer, values []any) {
	b.WriteString("<table:table-row>")
	for _, v := range values {
		text := table.FormatValue(v)
		switch x := v.(type) {
		case int64, float64:
			fmt.Fprintf(b, `<table:table-cell office:value-type="float" office:value="%s">`, text)
		case bool:
			fmt.Fprintf(b, `<table:table-cell office:value-type="boolean" office:boolean-value="%t">`, x)
		default:
			if text == "" {
				b.WriteString("<table:table-cell/>")
				continue
			}
			b.WriteString(`<table:table-cell office:value-type="string">`)
		}
		b.WriteString("<text:p>")
		_ = xml.EscapeText(b, []byte(text))
		b.WriteString("</text:p></table:table-cell>")
	}
	b.WriteString("</table:table-row>")
}

// ReadODS reads the first sheet of an OpenDocument spreadsheet.
func ReadODS(name string, r io.ReaderAt, size int64) (*table.Table, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open ods: %w", err)
	}
	return odsTable(name, &zr.File)
}

func readODS(name, path string) (*table.Table, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open ods: %w", err)
	}
	defer zr.Close()
	return odsTable(name, &zr.File)
}

func odsTable(name string, files *[]*zip.File) (*table.Table, error) {
	var content *zip.File
	for _, f := range *files {
		if f.Name == "content.xml" {
			content = f
			break
		}
	}
	if content == nil {
		return nil, errors.New("ods: content.xml not found")
	}

	rc, err := content.Open()
	if err != nil {
		return nil, fmt.Errorf("ods content: %w", err)
	}
	defer rc.Close()

	rows, err := parseODSSheet(rc)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("ods: %w", ErrEmptySource)
	}
	return table.FromRecords(name, rows[0], rows[1:])
}

// parseODSSheet returns the rows of the first table in content.xml with
// trailing empty cells and rows trimmed.
func parseODSSheet(r io.Reader) ([][]string, error) {
	d := xml.NewDecoder(r)

	inTable := false
	var (
		rows         [][]string
		pendingEmpty int
	)
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse ods: %w", err)
		}

		switch tt := tok.(type) {
		case xml.StartElement:
			switch tt.Name.Local {
			case "table":
				if tt.Name.Space != nsTable {
					continue
				}
				if inTable {
					// nested table inside a cell; not part of the grid
					if err := d.Skip(); err != nil {
						return nil, fmt.Errorf("parse ods: %w", err)
					}
					continue
				}
				inTable = true
			case "table-row":
				if !inTable {
					continue
				}
				row, repeat, err := parseODSRow(d, tt)
				if err != nil {
					return nil, err
				}
				if len(row) == 0 {
					pendingEmpty += repeat
					continue
				}
				if pendingEmpty > maxRepeat {
					pendingEmpty = maxRepeat
				}
				for ; pendingEmpty > 0; pendingEmpty-- {
					rows = append(rows, nil)
				}
				if repeat > maxRepeat {
					repeat = maxRepeat
				}
				for i := 0; i < repeat; i++ {
					rows = append(rows, row)
				}
			}
		case xml.EndElement:
			if inTable && tt.Name.Local == "table" && tt.Name.Space == nsTable {
				return rows, nil
			}
		}
	}
	return rows, nil
}

func parseODSRow(d *xml.Decoder, start xml.StartElement) ([]string, int, error) {
	repeat := repeatAttr(start, "number-rows-repeated")

	var (
		cells        []string
		pendingEmpty int
	)
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, 0, fmt.Errorf("parse ods row: %w", err)
		}
		switch tt := tok.(type) {
		case xml.StartElement:
			if tt.Name.Local != "table-cell" && tt.Name.Local != "covered-table-cell" {
				if err := d.Skip(); err != nil {
					return nil, 0, fmt.Errorf("parse ods row: %w", err)
				}
				continue
			}
			var c odsCell
			if err := d.DecodeElement(&c, &tt); err != nil {
				return nil, 0, fmt.Errorf("parse ods cell: %w", err)
			}
			n := c.repeat
			if n < 1 {
				n = 1
			}
			v := c.cellValue()
			if v == "" {
				pendingEmpty += n
				continue
			}
			if pendingEmpty > maxRepeat {
				pendingEmpty = maxRepeat
			}
			for ; pendingEmpty > 0; pendingEmpty-- {
				cells = append(cells, "")
			}
			if n > maxRepeat {
				n = maxRepeat
			}
			for i := 0; i < n; i++ {
				cells = append(cells, v)
			}
		case xml.EndElement:
			return cells, repeat, nil
		}
	}
}

func repeatAttr(start xml.StartElement, local string) int {
	for _, a := range start.Attr {
		if a.Name.Local == local {
			if n, err := strconv.Atoi(a.Value); err == nil && n > 0 {
				return n
			}
		}
	}
	return 1
}

// odsCell collects a cell's typed attributes and its paragraph text.
type odsCell struct {
	repeat    int
	valueType string
	value     string
	boolValue string
	text      string
}

func (c *odsCell) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	c.repeat = repeatAttr(start, "number-columns-repeated")
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "value-type":
			c.valueType = a.Value
		case "value":
			c.value = a.Value
		case "boolean-value":
			c.boolValue = a.Value
		}
	}

	var b strings.Builder
	paragraphs := 0
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch tt := tok.(type) {
		case xml.StartElement:
			switch tt.Name.Local {
			case "annotation":
				if err := d.Skip(); err != nil {
					return err
				}
				continue
			case "p", "h":
				if paragraphs > 0 {
					b.WriteByte('\n')
				}
				paragraphs++
			case "s":
				b.WriteString(strings.Repeat(" ", repeatAttr(tt, "c")))
			case "tab":
				b.WriteByte('\t')
			case "line-break":
				b.WriteByte('\n')
			}
			depth++
		case xml.EndElement:
			if depth == 0 {
				c.text = b.String()
				return nil
			}
			depth--
		case xml.CharData:
			b.Write(tt)
		}
	}
}

func (c *odsCell) cellValue() string {
	switch c.valueType {
	case "float", "percentage", "currency":
		if c.value != "" {
			return c.value
		}
	case "boolean":
		if c.boolValue != "" {
			return c.boolValue
		}
	}
	return c.text
}
