package taifex

import (
	"fmt"
	"strings"
)

// MissingDateError means the page carries no usable trade-date declaration.
// Nothing on such a page can be attributed to a day, so the whole page is
// rejected.
type MissingDateError struct {
	Reason string
}

func (e *MissingDateError) Error() string {
	if e.Reason == "" {
		return "taifex: trade date not found"
	}
	return "taifex: trade date not found: " + e.Reason
}

// MalformedRowError is returned by the ratio extractor when its single data
// row cannot be read exactly.
type MalformedRowError struct {
	Line   string
	Reason string
}

func (e *MalformedRowError) Error() string {
	if e.Line == "" {
		return fmt.Sprintf("taifex: malformed ratio row: %s", e.Reason)
	}
	return fmt.Sprintf("taifex: malformed ratio row %q: %s", e.Line, e.Reason)
}

// IncompleteAggregate describes a product block that ended before every
// category was observed. It is diagnostic only.
type IncompleteAggregate struct {
	Product  ProductCode
	Observed []CategoryKey
}

func (i IncompleteAggregate) String() string {
	names := make([]string, len(i.Observed))
	for n, c := range i.Observed {
		names[n] = string(c)
	}
	return fmt.Sprintf("%s: observed %d/%d categories [%s]",
		i.Product, len(i.Observed), len(Categories), strings.Join(names, ","))
}
