package taifex

import (
	"time"
	"unicode"
)

const (
	// MinRowCells is the smallest row that can hold a label and the two
	// trailing numeric columns the extractor needs.
	MinRowCells = 3

	minNumericCells = 2
)

// PositionRecord is one product's institutional net open interest, in
// contract lots, for one trade date. Negative nets are net short.
type PositionRecord struct {
	Date     time.Time
	Product  ProductCode
	Nets     map[CategoryKey]int64
	Residual int64
}

// Net returns the net open interest reported for a category.
func (r PositionRecord) Net(c CategoryKey) int64 {
	return r.Nets[c]
}

// PositionsResult is the output of one page scan.
type PositionsResult struct {
	Date    time.Time
	Records []PositionRecord

	// Incomplete lists product blocks that were dropped because not every
	// category was observed. Skipped counts rows that contributed nothing.
	Incomplete []IncompleteAggregate
	Skipped    int
}

// ParsePositions decodes an institutional positions page and extracts it.
func ParsePositions(text string) (*PositionsResult, error) {
	page, err := ParsePage(text)
	if err != nil {
		return nil, err
	}
	return ExtractPositions(page)
}

// ExtractPositions walks the page's rows once and returns a record for
// every tracked product whose block carried all categories. Only a missing
// trade date fails the page; row-level problems are skipped.
func ExtractPositions(page *Page) (*PositionsResult, error) {
	date, err := ResolveDate(page.Text)
	if err != nil {
		return nil, err
	}

	s := newScanner()
	for _, row := range page.Rows {
		s.feed(row)
	}
	s.finish()

	res := &PositionsResult{
		Date:       date,
		Incomplete: s.incomplete,
		Skipped:    s.skipped,
	}
	for _, p := range Products {
		nets, ok := s.complete[p]
		if !ok {
			continue
		}
		res.Records = append(res.Records, newPositionRecord(date, p, nets))
	}
	return res, nil
}

func newPositionRecord(date time.Time, p ProductCode, nets map[CategoryKey]int64) PositionRecord {
	var sum int64
	for _, c := range Categories {
		sum += nets[c]
	}
	return PositionRecord{
		Date:     date,
		Product:  p,
		Nets:     nets,
		Residual: -sum,
	}
}

// classified is what a single row says about itself.
type classified struct {
	declares     bool
	product      ProductCode
	productKnown bool

	category      CategoryKey
	categoryKnown bool

	net   int64
	netOK bool
}

func classify(row Row) (classified, bool) {
	var c classified
	if len(row) < MinRowCells {
		return c, false
	}

	labels, tail := splitLabels(row)
	var categoryLabel string
	switch {
	case len(labels) == 0:
		return c, false
	case len(labels) == 1 || isCategory(labels[0]):
		categoryLabel = labels[0]
	default:
		c.declares = true
		c.product, c.productKnown = LookupProduct(labels[0])
		categoryLabel = labels[1]
	}

	c.category, c.categoryKnown = LookupCategory(categoryLabel)
	c.net, c.netOK = netOpenInterest(tail)
	return c, true
}

func isCategory(label string) bool {
	_, ok := LookupCategory(label)
	return ok
}

// splitLabels returns the leading run of text cells and the cells after it.
// Serial numbers and blank or placeholder cells before the first label are
// passed over; the run ends at the first integer that follows a label.
func splitLabels(row Row) ([]string, Row) {
	var labels []string
	i := 0
	for ; i < len(row); i++ {
		cell := row[i]
		if placeholder(cell) {
			continue
		}
		if _, ok := cell.Int(); ok {
			if len(labels) > 0 {
				break
			}
			continue
		}
		labels = append(labels, cell.Text())
	}
	return labels, row[i:]
}

// placeholder reports cells with no letters or digits, such as "" or "-".
func placeholder(c Cell) bool {
	for _, r := range c.Text() {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// netOpenInterest picks the net open interest in lots from a row's numeric
// tail. Columns have been added and removed at the front of the table over
// time, but the net lot figure has stayed second from the end, just before
// the final contract-value column.
func netOpenInterest(tail Row) (int64, bool) {
	nums := make([]int64, 0, len(tail))
	for _, cell := range tail {
		if n, ok := cell.Int(); ok {
			nums = append(nums, n)
		}
	}
	if len(nums) < minNumericCells {
		return 0, false
	}
	return nums[len(nums)-2], true
}

// scanner is the per-page row state machine:
//
//	NoProduct -> InProduct(code) -> Complete(code) | Abandoned
//
// Context changes only on declaring rows; row distance is never used.
type scanner struct {
	active  bool
	product ProductCode
	nets    map[CategoryKey]int64
	seen    []CategoryKey

	complete   map[ProductCode]map[CategoryKey]int64
	incomplete []IncompleteAggregate
	skipped    int
}

func newScanner() *scanner {
	return &scanner{complete: make(map[ProductCode]map[CategoryKey]int64)}
}

func (s *scanner) feed(row Row) {
	c, ok := classify(row)
	if !ok {
		s.skipped++
		return
	}

	if c.declares {
		switch {
		case !c.productKnown:
			s.abandon()
			s.skipped++
			return
		case !s.active || s.product != c.product:
			s.abandon()
			s.begin(c.product)
		}
	}

	if !s.active || !c.categoryKnown || !c.netOK {
		s.skipped++
		return
	}
	if _, dup := s.nets[c.category]; dup {
		s.skipped++
		return
	}

	s.nets[c.category] = c.net
	s.seen = append(s.seen, c.category)
	if len(s.nets) == len(Categories) {
		s.emit()
	}
}

func (s *scanner) begin(p ProductCode) {
	s.active = true
	s.product = p
	s.nets = make(map[CategoryKey]int64, len(Categories))
	s.seen = nil
}

// emit records a completed block. A product that completes twice on one
// page keeps its first block.
func (s *scanner) emit() {
	if _, done := s.complete[s.product]; !done {
		s.complete[s.product] = s.nets
	}
	s.reset()
}

func (s *scanner) abandon() {
	if s.active {
		s.incomplete = append(s.incomplete, IncompleteAggregate{
			Product:  s.product,
			Observed: s.seen,
		})
	}
	s.reset()
}

func (s *scanner) reset() {
	s.active = false
	s.product = ""
	s.nets = nil
	s.seen = nil
}

func (s *scanner) finish() {
	s.abandon()
}
