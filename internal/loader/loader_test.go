package loader

import (
	"errors"
	"math"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildSheet(t *testing.T, rows [][]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetList()[0]
	for r, row := range rows {
		for c, cell := range row {
			name, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("Failed to build cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, name, cell); err != nil {
				t.Fatalf("Failed to set cell: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("Failed to serialize workbook: %v", err)
	}
	return buf.Bytes()
}

func TestLoadRecords(t *testing.T) {
	data := buildSheet(t, [][]string{
		{"Pattern", "Name", "MSRP", "Repeat", "Material"},
		{"4044-88031", "Meadow Vine", "$45.99", "21 in", "Non-woven"},
		{"4044-88032", "Meadow Vine Blue", "", "", ""},
		{"", "", "", "", ""},
	})

	records, err := LoadRecords("Spring", data)
	if err != nil {
		t.Fatalf("LoadRecords failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("Expected 2 records (blank trailer dropped), got %d", len(records))
	}

	first := records[0]
	if first.ID != "4044-88031" {
		t.Errorf("Expected id 4044-88031, got %q", first.ID)
	}
	if first.Name != "Meadow Vine" {
		t.Errorf("Expected name Meadow Vine, got %q", first.Name)
	}
	if first.Price != 45.99 {
		t.Errorf("Expected price 45.99, got %v", first.Price)
	}
	if first.Collection != "Spring" {
		t.Errorf("Expected collection Spring, got %q", first.Collection)
	}
	if first.PatternRepeat != "21 in" {
		t.Errorf("Expected repeat %q, got %q", "21 in", first.PatternRepeat)
	}
	if first.HasImage {
		t.Error("Records must load with hasImage=false")
	}

	// Unpriced records are kept and flagged, not dropped.
	second := records[1]
	if second.Price != 0 {
		t.Errorf("Expected price 0 for blank MSRP, got %v", second.Price)
	}
	if !second.Unpriced() {
		t.Error("Expected record to be flagged unpriced")
	}
}

func TestLoadRecordsColumnSynonyms(t *testing.T) {
	tests := []struct {
		name    string
		header  []string
		row     []string
		price   float64
		recName string
	}{
		{
			name:    "list price synonym",
			header:  []string{"Pattern", "Product Name", "List Price"},
			row:     []string{"A1", "Damask", "120"},
			price:   120,
			recName: "Damask",
		},
		{
			name:    "retail price synonym case insensitive",
			header:  []string{"PATTERN", "NAME", "Retail Price"},
			row:     []string{"A1", "Damask", "99.50"},
			price:   99.5,
			recName: "Damask",
		},
		{
			name:    "name falls back to collection and id",
			header:  []string{"Pattern", "Price"},
			row:     []string{"A1", "10"},
			price:   10,
			recName: "Spring - A1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildSheet(t, [][]string{tt.header, tt.row})
			records, err := LoadRecords("Spring", data)
			if err != nil {
				t.Fatalf("LoadRecords failed: %v", err)
			}
			if len(records) != 1 {
				t.Fatalf("Expected 1 record, got %d", len(records))
			}
			if records[0].Price != tt.price {
				t.Errorf("Expected price %v, got %v", tt.price, records[0].Price)
			}
			if records[0].Name != tt.recName {
				t.Errorf("Expected name %q, got %q", tt.recName, records[0].Name)
			}
		})
	}
}

func TestLoadRecordsDimensions(t *testing.T) {
	const tolerance = 0.0001

	tests := []struct {
		name   string
		header []string
		row    []string
		width  float64
		length float64
	}{
		{
			name:   "separate width and length columns",
			header: []string{"Pattern", "Name", "Width (in)", "Length (ft)"},
			row:    []string{"A1", "Damask", "20.5", "33"},
			width:  20.5 * 0.0254,
			length: 33 * 0.3048,
		},
		{
			name:   "combined dimensions column",
			header: []string{"Pattern", "Name", "Dimensions"},
			row:    []string{"A1", "Damask", "20.5 in x 33 ft"},
			width:  20.5 * 0.0254,
			length: 33 * 0.3048,
		},
		{
			name:   "metric roll size",
			header: []string{"Pattern", "Name", "Roll Size"},
			row:    []string{"A1", "Damask", "53 cm x 10.05 m"},
			width:  0.53,
			length: 10.05,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildSheet(t, [][]string{tt.header, tt.row})
			records, err := LoadRecords("Spring", data)
			if err != nil {
				t.Fatalf("LoadRecords failed: %v", err)
			}
			if len(records) != 1 {
				t.Fatalf("Expected 1 record, got %d", len(records))
			}
			d := records[0].Dimensions
			if math.Abs(d.Width-tt.width) > tolerance {
				t.Errorf("Expected width %v m, got %v", tt.width, d.Width)
			}
			if math.Abs(d.Length-tt.length) > tolerance {
				t.Errorf("Expected length %v m, got %v", tt.length, d.Length)
			}
		})
	}
}

func TestLoadRecordsParseError(t *testing.T) {
	_, err := LoadRecords("Spring", []byte("this is not a spreadsheet"))
	if err == nil {
		t.Fatal("Expected error for non-tabular input")
	}

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected ParseError, got %T: %v", err, err)
	}
	if parseErr.Collection != "Spring" {
		t.Errorf("Expected collection Spring in error, got %q", parseErr.Collection)
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"$45.99", 45.99},
		{"45.99", 45.99},
		{"1,299.00", 1299},
		{"USD 12", 12},
		{"", 0},
		{"n/a", 0},
		{"call for pricing", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParsePrice(tt.input); got != tt.expected {
				t.Errorf("ParsePrice(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestChecksum(t *testing.T) {
	a := Checksum([]byte("sheet one"))
	b := Checksum([]byte("sheet two"))
	if a == b {
		t.Error("Different inputs must produce different checksums")
	}
	if a != Checksum([]byte("sheet one")) {
		t.Error("Checksum must be stable for identical input")
	}
	if len(a) != 16 {
		t.Errorf("Expected 16 hex chars, got %d", len(a))
	}
}
