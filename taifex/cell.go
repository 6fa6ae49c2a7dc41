package taifex

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/width"
)

// Cell is the raw text of one table cell. Conversions never fail loudly;
// they report whether the text could be read as the requested type.
type Cell string

// signGlyphs maps the dash and plus variants seen in exchange tables to ASCII.
var signGlyphs = strings.NewReplacer(
	"−", "-", // minus sign
	"‒", "-", // figure dash
	"–", "-", // en dash
	"—", "-", // em dash
	"―", "-", // horizontal bar
	"﹘", "-", // small em dash
	"﹣", "-", // small hyphen-minus
	"－", "-", // fullwidth hyphen-minus
	"＋", "+", // fullwidth plus
)

// normalize folds full-width forms to their narrow equivalents and maps
// sign glyphs to ASCII.
func normalize(s string) string {
	return signGlyphs.Replace(width.Fold.String(s))
}

// Text returns the folded, trimmed text with inner whitespace runs collapsed
// to a single space.
func (c Cell) Text() string {
	return strings.Join(strings.Fields(normalize(string(c))), " ")
}

// Empty reports whether the cell has no visible text.
func (c Cell) Empty() bool {
	return c.Text() == ""
}

// numeric strips everything that may legitimately appear inside a number
// cell without changing its value: whitespace and thousands separators.
func numeric(s string) string {
	s = normalize(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == ',' {
			return -1
		}
		return r
	}, s)
}

// Int reads the cell as a signed integer.
func (c Cell) Int() (int64, bool) {
	s := numeric(string(c))
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Decimal reads the cell as a decimal number. A trailing percent sign is
// ignored so ratio columns can be read either way.
func (c Cell) Decimal() (decimal.Decimal, bool) {
	s := strings.TrimSuffix(numeric(string(c)), "%")
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// Row is one table row as an ordered tuple of cells.
type Row []Cell
