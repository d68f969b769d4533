package format

import (
	"bytes"
	"reflect"
	"testing"
)

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, sampleTable(t)); err != nil {
		t.Fatalf("WritePDF failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Errorf("output does not start with %%PDF: %q", buf.Bytes()[:min(16, buf.Len())])
	}
}

// glyphs lays out s one character per fragment starting at x.
func glyphs(s string, x, y float64) []fragment {
	var out []fragment
	for _, r := range s {
		out = append(out, fragment{X: x, Y: y, W: 5, S: string(r)})
		x += 5
	}
	return out
}

func line(y float64, cells ...string) []fragment {
	var out []fragment
	for i, c := range cells {
		if c == "" {
			continue
		}
		out = append(out, glyphs(c, float64(i)*100+10, y)...)
	}
	return out
}

func TestExtractRows(t *testing.T) {
	page1 := append(line(700, "name", "age"), line(680, "Alice", "30")...)
	page1 = append(page1, line(660, "Bob", "")...)
	// second page repeats the header
	page2 := append(line(700, "name", "age"), line(680, "Carol", "41")...)

	got := extractRows([][]fragment{page1, page2})
	want := [][]string{
		{"name", "age"},
		{"Alice", "30"},
		{"Bob", ""},
		{"Carol", "41"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("extractRows = %v, want %v", got, want)
	}
}

func TestExtractRows_WordsInOneCell(t *testing.T) {
	frags := line(700, "city", "zip")
	frags = append(frags, glyphs("New", 10, 680)...)
	frags = append(frags, glyphs("York", 28, 680)...) // 3pt gap: same cell
	frags = append(frags, glyphs("10001", 110, 680)...)

	got := extractRows([][]fragment{frags})
	want := [][]string{{"city", "zip"}, {"New York", "10001"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("extractRows = %v, want %v", got, want)
	}
}

func TestExtractRows_Empty(t *testing.T) {
	if got := extractRows([][]fragment{{}, {{X: 1, Y: 1, S: ""}}}); len(got) != 0 {
		t.Errorf("extractRows = %v, want none", got)
	}
}
