package taifex

import (
	"regexp"
	"strings"
)

// ProductCode identifies a futures contract tracked in the institutional
// positions table.
type ProductCode string

const (
	ProductTX  ProductCode = "TX"  // 臺股期貨
	ProductMTX ProductCode = "MTX" // 小型臺指期貨
	ProductTMF ProductCode = "TMF" // 微型臺指期貨
)

// Products lists the tracked products in report order.
var Products = []ProductCode{ProductTX, ProductMTX, ProductTMF}

// CategoryKey identifies an institutional participant class.
type CategoryKey string

const (
	CategoryDealer  CategoryKey = "dealer"  // 自營商
	CategoryTrust   CategoryKey = "trust"   // 投信
	CategoryForeign CategoryKey = "foreign" // 外資及陸資
)

// Categories lists every category a product block must contain.
var Categories = []CategoryKey{CategoryDealer, CategoryTrust, CategoryForeign}

var productNames = map[ProductCode]string{
	ProductTX:  "臺股期貨",
	ProductMTX: "小型臺指期貨",
	ProductTMF: "微型臺指期貨",
}

var categoryNames = map[CategoryKey]string{
	CategoryDealer:  "自營商",
	CategoryTrust:   "投信",
	CategoryForeign: "外資及陸資",
}

// DisplayName returns the exchange's current name for the product.
func (p ProductCode) DisplayName() string {
	if name, ok := productNames[p]; ok {
		return name
	}
	return string(p)
}

// DisplayName returns the exchange's current label for the category.
func (c CategoryKey) DisplayName() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return string(c)
}

// Spellings are folded by buildIndex.
var productSpellings = buildIndex(map[string]ProductCode{
	"臺股期貨":   ProductTX,
	"臺指期貨":   ProductTX,
	"臺指期":    ProductTX,
	"TX":     ProductTX,
	"小型臺指期貨": ProductMTX,
	"小型臺指":   ProductMTX,
	"小臺指期貨":  ProductMTX,
	"小臺指":    ProductMTX,
	"MTX":    ProductMTX,
	"微型臺指期貨": ProductTMF,
	"微型臺指":   ProductTMF,
	"微臺指期貨":  ProductTMF,
	"微臺指":    ProductTMF,
	"TMF":    ProductTMF,
})

var categorySpellings = buildIndex(map[string]CategoryKey{
	"自營商":   CategoryDealer,
	"自營":    CategoryDealer,
	"投信":    CategoryTrust,
	"投資信託":  CategoryTrust,
	"外資及陸資": CategoryForeign,
	"外資":    CategoryForeign,
	"外資陸資":  CategoryForeign,
})

func buildIndex[K ~string](m map[string]K) map[string]K {
	out := make(map[string]K, len(m))
	for spelling, key := range m {
		out[foldLabel(spelling)] = key
	}
	return out
}

var qualifier = regexp.MustCompile(`\([^)]*\)`)

// foldLabel reduces a display label to the form used for catalog lookups:
// narrow width, no whitespace, no parenthesized qualifiers, and the common
// 台/臺 variant unified.
func foldLabel(s string) string {
	s = normalize(s)
	s = qualifier.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), "")
	s = strings.ReplaceAll(s, "台", "臺")
	return strings.ToUpper(s)
}

// LookupProduct maps a display spelling to its product code.
func LookupProduct(label string) (ProductCode, bool) {
	code, ok := productSpellings[foldLabel(label)]
	return code, ok
}

// LookupCategory maps a display spelling to its category key.
func LookupCategory(label string) (CategoryKey, bool) {
	key, ok := categorySpellings[foldLabel(label)]
	return key, ok
}

