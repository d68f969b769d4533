package format

import (
	"reflect"
	"strings"
	"testing"
)

const odsRepeated = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0"
  xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0">
 <office:body><office:spreadsheet>
  <table:table table:name="Data">
   <table:table-column table:number-columns-repeated="1024"/>
   <table:table-row>
    <table:table-cell office:value-type="string"><text:p>a</text:p></table:table-cell>
    <table:table-cell table:number-columns-repeated="2"/>
    <table:table-cell office:value-type="string"><text:p>d</text:p></table:table-cell>
    <table:table-cell table:number-columns-repeated="1020"/>
   </table:table-row>
   <table:table-row table:number-rows-repeated="2">
    <table:table-cell office:value-type="float" office:value="3"><text:p>3.00</text:p></table:table-cell>
    <table:table-cell office:value-type="string"><text:p>x<text:s text:c="2"/>y</text:p></table:table-cell>
   </table:table-row>
   <table:table-row table:number-rows-repeated="1048570"><table:table-cell table:number-columns-repeated="1024"/></table:table-row>
  </table:table>
  <table:table table:name="Other"><table:table-row><table:table-cell><text:p>ignored</text:p></table:table-cell></table:table-row></table:table>
 </office:spreadsheet></office:body>
</office:document-content>`

func TestParseODSSheet(t *testing.T) {
	got, err := parseODSSheet(strings.NewReader(odsRepeated))
	if err != nil {
		t.Fatalf("parseODSSheet failed: %v", err)
	}
	want := [][]string{
		{"a", "", "", "d"},
		{"3", "x  y"},
		{"3", "x  y"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseODSSheet = %q, want %q", got, want)
	}
}

func TestParseODSSheet_Empty(t *testing.T) {
	const empty = `<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0">
 <office:body><office:spreadsheet><table:table table:name="S">
  <table:table-row><table:table-cell/></table:table-row>
 </table:table></office:spreadsheet></office:body></office:document-content>`

	rows, err := parseODSSheet(strings.NewReader(empty))
	if err != nil {
		t.Fatalf("parseODSSheet failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("rows = %q, want none", rows)
	}
}

func TestODSCellValue(t *testing.T) {
	tests := []struct {
		name string
		cell odsCell
		want string
	}{
		{"float uses the value attribute", odsCell{valueType: "float", value: "3", text: "3.00"}, "3"},
		{"currency uses the value attribute", odsCell{valueType: "currency", value: "9.5", text: "$9.50"}, "9.5"},
		{"boolean uses the boolean attribute", odsCell{valueType: "boolean", boolValue: "true", text: "TRUE"}, "true"},
		{"float without value falls back to text", odsCell{valueType: "float", text: "7"}, "7"},
		{"string uses text", odsCell{valueType: "string", value: "ignored", text: "abc"}, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cell.cellValue(); got != tt.want {
				t.Errorf("cellValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadODS_NotZip(t *testing.T) {
	r := strings.NewReader("not a zip")
	if _, err := ReadODS("x", r, r.Size()); err == nil {
		t.Error("ReadODS accepted garbage")
	}
}
