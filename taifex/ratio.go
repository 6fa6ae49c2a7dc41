package taifex

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const ratioFields = 7

// RatioRecord is one day of the option put/call ratio table. Ratios are
// percentages as published (e.g. 85.23 means puts are 85.23% of calls).
type RatioRecord struct {
	Date        time.Time
	PutVolume   int64
	CallVolume  int64
	VolumeRatio decimal.Decimal
	PutOI       int64
	CallOI      int64
	OIRatio     decimal.Decimal
}

// ParseRatio decodes a put/call ratio page and extracts its first data row.
func ParseRatio(text string) (RatioRecord, error) {
	page, err := ParsePage(text)
	if err != nil {
		return RatioRecord{}, err
	}
	return ExtractRatio(page)
}

// ExtractRatio reads the first row whose leading token is a YYYY/MM/DD
// date. The ratio layout has been stable, so the row must have exactly seven
// fields that all convert; anything else is a MalformedRowError rather than
// a best-effort record.
func ExtractRatio(page *Page) (RatioRecord, error) {
	row, date, ok := firstDataRow(page.Rows)
	if !ok {
		return RatioRecord{}, &MalformedRowError{Reason: "no data row starting with a date"}
	}

	line := rowString(row)
	if len(row) != ratioFields {
		return RatioRecord{}, &MalformedRowError{
			Line:   line,
			Reason: fmt.Sprintf("expected %d fields, got %d", ratioFields, len(row)),
		}
	}

	rec := RatioRecord{Date: date}
	ints := []struct {
		name string
		cell Cell
		dst  *int64
	}{
		{"put_volume", row[1], &rec.PutVolume},
		{"call_volume", row[2], &rec.CallVolume},
		{"put_oi", row[4], &rec.PutOI},
		{"call_oi", row[5], &rec.CallOI},
	}
	for _, f := range ints {
		n, ok := f.cell.Int()
		if !ok {
			return RatioRecord{}, &MalformedRowError{Line: line, Reason: fmt.Sprintf("%s: not an integer: %q", f.name, f.cell.Text())}
		}
		*f.dst = n
	}

	decs := []struct {
		name string
		cell Cell
		dst  *decimal.Decimal
	}{
		{"volume_ratio", row[3], &rec.VolumeRatio},
		{"oi_ratio", row[6], &rec.OIRatio},
	}
	for _, f := range decs {
		d, ok := f.cell.Decimal()
		if !ok {
			return RatioRecord{}, &MalformedRowError{Line: line, Reason: fmt.Sprintf("%s: not a number: %q", f.name, f.cell.Text())}
		}
		*f.dst = d
	}

	return rec, nil
}

func firstDataRow(rows []Row) (Row, time.Time, bool) {
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if date, ok := parseStrictDate(row[0].Text()); ok {
			return row, date, true
		}
	}
	return nil, time.Time{}, false
}

func rowString(row Row) string {
	parts := make([]string, len(row))
	for i, c := range row {
		parts[i] = c.Text()
	}
	return strings.Join(parts, ",")
}
