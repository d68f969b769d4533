package format

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/go-pdf/fpdf"
	pdfread "github.com/ledongthuc/pdf"

	"github.com/joacominatel/tabula/internal/table"
)

const (
	pdfRowHeight = 7.0
	pdfFontSize  = 10.0

	// Fragments whose baselines differ by less than this share a line.
	lineTolerance = 2.0
	// Horizontal gaps (points) used to split a line into words and cells.
	joinGap = 1.0
	cellGap = 4.0
)

// WritePDF renders t as a bordered grid with a grey bold header row.
func WritePDF(w io.Writer, t *table.Table) error {
	doc := fpdf.New("P", "mm", "Letter", "")
	doc.SetTitle(t.Name(), true)
	doc.AddPage()
	tr := doc.UnicodeTranslatorFromDescriptor("")

	if t.NumColumns() > 0 {
		pageW, _ := doc.GetPageSize()
		left, _, right, _ := doc.GetMargins()
		colW := (pageW - left - right) / float64(t.NumColumns())

		doc.SetFont("Helvetica", "B", pdfFontSize)
		doc.SetFillColor(200, 200, 200)
		for _, h := range t.Header() {
			doc.CellFormat(colW, pdfRowHeight, fitText(doc, tr(h), colW), "1", 0, "C", true, 0, "")
		}
		doc.Ln(-1)

		doc.SetFont("Helvetica", "", pdfFontSize)
		for _, rec := range t.Records() {
			for _, v := range rec {
				doc.CellFormat(colW, pdfRowHeight, fitText(doc, tr(table.FormatValue(v)), colW), "1", 0, "C", false, 0, "")
			}
			doc.Ln(-1)
		}
	}

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// fitText trims s until it fits inside a cell of width w.
func fitText(doc *fpdf.Fpdf, s string, w float64) string {
	limit := w - 2*doc.GetCellMargin()
	if doc.GetStringWidth(s) <= limit {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && doc.GetStringWidth(string(r)+"...") > limit {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

// fragment is a positioned run of text on a page.
type fragment struct {
	X, Y, W float64
	S       string
}

// readPDF extracts the table grid from every page of the PDF at path.
func readPDF(name, path string) (t *table.Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("read pdf: malformed document: %v", r)
		}
	}()

	f, r, err := pdfread.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var pages [][]fragment
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		var frags []fragment
		for _, txt := range p.Content().Text {
			frags = append(frags, fragment{X: txt.X, Y: txt.Y, W: txt.W, S: txt.S})
		}
		pages = append(pages, frags)
	}

	rows := extractRows(pages)
	if len(rows) == 0 {
		return nil, fmt.Errorf("pdf: %w", ErrEmptySource)
	}
	return table.FromRecords(name, rows[0], rows[1:])
}

type cell struct {
	start, end float64
	text       string
}

func (c cell) center() float64 { return (c.start + c.end) / 2 }

// extractRows turns positioned text into records. The first line sets the
// column bands; later cells go to the band nearest their centre. A page
// that repeats the header line does not repeat it in the output.
func extractRows(pages [][]fragment) [][]string {
	var (
		header []cell
		rows   [][]string
	)
	for _, frags := range pages {
		first := true
		for _, line := range groupLines(frags) {
			cells := splitCells(line)
			if len(cells) == 0 {
				continue
			}
			if header == nil {
				header = cells
				rows = append(rows, texts(cells))
				first = false
				continue
			}
			rec := assignBands(header, cells)
			if first && equalRecords(rec, rows[0]) {
				first = false
				continue
			}
			first = false
			rows = append(rows, rec)
		}
	}
	return rows
}

// groupLines orders fragments top to bottom and buckets them by baseline.
func groupLines(frags []fragment) [][]fragment {
	sorted := make([]fragment, 0, len(frags))
	for _, f := range frags {
		if f.S != "" {
			sorted = append(sorted, f)
		}
	}
	// PDF y grows upwards.
	sort.SliceStable(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].Y-sorted[j].Y) >= lineTolerance {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var lines [][]fragment
	for _, f := range sorted {
		n := len(lines)
		if n > 0 && math.Abs(lines[n-1][0].Y-f.Y) < lineTolerance {
			lines[n-1] = append(lines[n-1], f)
			continue
		}
		lines = append(lines, []fragment{f})
	}
	for _, l := range lines {
		sort.SliceStable(l, func(i, j int) bool { return l[i].X < l[j].X })
	}
	return lines
}

func splitCells(line []fragment) []cell {
	var cells []cell
	for _, f := range line {
		n := len(cells)
		if n > 0 {
			gap := f.X - cells[n-1].end
			switch {
			case gap < joinGap:
				cells[n-1].text += f.S
				cells[n-1].end = f.X + f.W
				continue
			case gap < cellGap:
				cells[n-1].text += " " + f.S
				cells[n-1].end = f.X + f.W
				continue
			}
		}
		cells = append(cells, cell{start: f.X, end: f.X + f.W, text: f.S})
	}

	out := cells[:0]
	for _, c := range cells {
		c.text = strings.TrimSpace(c.text)
		if c.text != "" {
			out = append(out, c)
		}
	}
	return out
}

func assignBands(header, cells []cell) []string {
	rec := make([]string, len(header))
	for _, c := range cells {
		best, dist := 0, math.Inf(1)
		for i, h := range header {
			if d := math.Abs(h.center() - c.center()); d < dist {
				best, dist = i, d
			}
		}
		if rec[best] != "" {
			rec[best] += " "
		}
		rec[best] += c.text
	}
	return rec
}

func texts(cells []cell) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = c.text
	}
	return out
}

func equalRecords(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
