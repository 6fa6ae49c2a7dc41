package taifex

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is a decoded document reduced to what the extractors need: its
// visible text and its table rows in document order.
type Page struct {
	Text string
	Rows []Row
	HTML bool
}

var htmlMarker = regexp.MustCompile(`(?i)<\s*(html|table|tr|body)[\s>]`)

// ParsePage builds a Page from decoded text. HTML input yields one Row per
// <tr>; anything else is treated as delimited text with one Row per line.
func ParsePage(text string) (*Page, error) {
	if htmlMarker.MatchString(text) {
		return parseHTML(text)
	}
	return parseDelimited(text)
}

// ReadPage is ParsePage over a reader.
func ReadPage(r io.Reader) (*Page, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	return ParsePage(string(b))
}

func parseHTML(text string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style").Remove()

	page := &Page{HTML: true, Text: doc.Text()}
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td, th")
		row := make(Row, 0, cells.Length())
		cells.Each(func(_ int, td *goquery.Selection) {
			row = append(row, Cell(td.Text()))
		})
		page.Rows = append(page.Rows, row)
	})
	return page, nil
}

func parseDelimited(text string) (*Page, error) {
	page := &Page{Text: text}
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		page.Rows = append(page.Rows, splitLine(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan lines: %w", err)
	}
	return page, nil
}

// splitLine splits on commas when the line has any, otherwise on runs of
// whitespace. Comma lines follow CSV quoting so "1,234" stays one field.
func splitLine(line string) Row {
	line = normalize(line)
	if !strings.Contains(line, ",") {
		fields := strings.Fields(line)
		row := make(Row, len(fields))
		for i, f := range fields {
			row[i] = Cell(f)
		}
		return row
	}

	r := csv.NewReader(strings.NewReader(line))
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	fields, err := r.Read()
	if err != nil {
		fields = strings.Split(line, ",")
	}
	row := make(Row, len(fields))
	for i, f := range fields {
		row[i] = Cell(f)
	}
	return row
}
