// Package loader parses a collection's vendor spreadsheet into normalized
// product records. Vendor sheets vary wildly in column naming, so every
// logical field is resolved through a case-insensitive synonym table.
package loader

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/xuri/excelize/v2"

	"github.com/vizzaro-home/wallsync/internal/catalog"
)

// ParseError marks a data file that cannot be read as tabular input. The
// collection is skipped for the run and reported; retrying without operator
// intervention cannot succeed.
type ParseError struct {
	Collection string
	Err        error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse data file for %s: %v", e.Collection, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Column synonyms, matched case-insensitively. First non-empty cell wins.
var (
	idColumns          = []string{"pattern", "sku", "item", "pattern number"}
	nameColumns        = []string{"name", "product name", "pattern name"}
	descriptionColumns = []string{"description", "details"}
	priceColumns       = []string{"msrp", "price", "list price", "retail price"}
	dimensionColumns   = []string{"dimensions", "size", "dimension", "roll size"}
	widthColumns       = []string{"width", "roll width", "width (in)"}
	lengthColumns      = []string{"length", "roll length", "length (ft)"}
	repeatColumns      = []string{"repeat", "pattern repeat", "vertical repeat", "repeat (in)", "match", "repeat pattern"}
	materialColumns    = []string{"material", "type", "substrate"}
)

const (
	metersPerInch = 0.0254
	metersPerFoot = 0.3048
)

// LoadRecords parses the first sheet of a spreadsheet into product records.
// Rows missing both an identifier and a name are dropped silently; vendor
// files routinely end with blank trailer rows.
func LoadRecords(collectionID string, data []byte) ([]catalog.ProductRecord, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Collection: collectionID, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Collection: collectionID, Err: fmt.Errorf("workbook has no sheets")}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Collection: collectionID, Err: err}
	}
	if len(rows) == 0 {
		return nil, &ParseError{Collection: collectionID, Err: fmt.Errorf("sheet %q has no header row", sheets[0])}
	}

	header := make(map[string]int, len(rows[0]))
	for i, cell := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(cell))
		if _, exists := header[key]; key != "" && !exists {
			header[key] = i
		}
	}

	var records []catalog.ProductRecord
	for _, row := range rows[1:] {
		id := firstNonEmpty(row, header, idColumns)
		name := firstNonEmpty(row, header, nameColumns)
		if id == "" && name == "" {
			continue
		}
		if name == "" {
			name = fmt.Sprintf("%s - %s", collectionID, id)
		}

		records = append(records, catalog.ProductRecord{
			ID:            id,
			Name:          name,
			Description:   firstNonEmpty(row, header, descriptionColumns),
			Price:         ParsePrice(firstNonEmpty(row, header, priceColumns)),
			Collection:    collectionID,
			SKU:           firstNonEmpty(row, header, idColumns),
			Dimensions:    parseRowDimensions(row, header),
			PatternRepeat: firstNonEmpty(row, header, repeatColumns),
			Material:      firstNonEmpty(row, header, materialColumns),
		})
	}

	return records, nil
}

// Checksum fingerprints a raw data file so an unchanged sheet can be
// recognized across runs.
func Checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

func firstNonEmpty(row []string, header map[string]int, synonyms []string) string {
	for _, key := range synonyms {
		idx, ok := header[key]
		if !ok || idx >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[idx]); v != "" {
			return v
		}
	}
	return ""
}

// ParsePrice strips everything but digits and the decimal point before
// parsing. An unparseable price is 0: the record is kept and flagged
// unpriced rather than dropped, since a photographed product without a
// price is still useful to operators.
func ParsePrice(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

var measureRe = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*(in|inch|inches|"|ft|feet|'|cm|m)?`)

// parseRowDimensions normalizes roll sizes to meters. Vendor sheets either
// carry a combined column ("20.5 in x 33 ft") or separate width/length
// columns where width is quoted in inches and length in feet.
func parseRowDimensions(row []string, header map[string]int) catalog.Dimensions {
	if combined := firstNonEmpty(row, header, dimensionColumns); combined != "" {
		return parseCombined(combined)
	}

	var d catalog.Dimensions
	if w := firstNonEmpty(row, header, widthColumns); w != "" {
		d.Width = parseMeasure(w, "in")
	}
	if l := firstNonEmpty(row, header, lengthColumns); l != "" {
		d.Length = parseMeasure(l, "ft")
	}
	return d
}

func parseCombined(s string) catalog.Dimensions {
	matches := measureRe.FindAllStringSubmatch(s, 2)
	var d catalog.Dimensions
	if len(matches) > 0 {
		d.Width = toMeters(matches[0][1], matches[0][2], "in")
	}
	if len(matches) > 1 {
		d.Length = toMeters(matches[1][1], matches[1][2], "ft")
	}
	return d
}

func parseMeasure(s, defaultUnit string) float64 {
	m := measureRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	return toMeters(m[1], m[2], defaultUnit)
}

func toMeters(value, unit, defaultUnit string) float64 {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	if unit == "" {
		unit = defaultUnit
	}
	switch unit {
	case "in", "inch", "inches", `"`:
		return v * metersPerInch
	case "ft", "feet", "'":
		return v * metersPerFoot
	case "cm":
		return v / 100
	default:
		return v
	}
}
