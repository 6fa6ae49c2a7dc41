package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/viktsys/taifexbot/models"
	"github.com/viktsys/taifexbot/taifex"
)

const lotUnit = "口"

// BuildReport renders the daily summary. It returns "" when there is
// nothing to report.
func BuildReport(ratio *models.PCRatio, positions []models.FuturesPosition) string {
	if ratio == nil && len(positions) == 0 {
		return ""
	}

	byProduct := make(map[string]models.FuturesPosition, len(positions))
	for _, p := range positions {
		byProduct[p.Product] = p
	}

	var b strings.Builder
	var reportDate time.Time
	if ratio != nil {
		reportDate = ratio.TradeDate
	} else {
		reportDate = positions[0].TradeDate
	}
	fmt.Fprintf(&b, "日期：%s\n", formatDay(reportDate))

	if ratio != nil {
		fmt.Fprintf(&b, "🧮 PC ratio 未平倉比：%s\n", ratio.OIRatio.StringFixed(2))
		fmt.Fprintf(&b, "PC ratio 成交量比：%s\n", ratio.VolumeRatio.StringFixed(2))
	}
	if mtx, ok := byProduct[string(taifex.ProductMTX)]; ok {
		fmt.Fprintf(&b, "散戶小台未平倉：%s\n", signedLots(mtx.RetailNet))
	}

	for _, code := range taifex.Products {
		p, ok := byProduct[string(code)]
		if !ok {
			continue
		}

		b.WriteString("\n")
		fmt.Fprintf(&b, "%s %s", code.DisplayName(), code)
		if !p.TradeDate.Equal(reportDate) {
			fmt.Fprintf(&b, "（%s）", p.TradeDate.Format("2006/01/02"))
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "  %s：%s\n", taifex.CategoryDealer.DisplayName(), signedLots(p.DealerNet))
		fmt.Fprintf(&b, "  %s：%s\n", taifex.CategoryTrust.DisplayName(), signedLots(p.TrustNet))
		fmt.Fprintf(&b, "  %s：%s\n", taifex.CategoryForeign.DisplayName(), signedLots(p.ForeignNet))
		fmt.Fprintf(&b, "  散戶：%s\n", signedLots(p.RetailNet))
	}

	return strings.TrimRight(b.String(), "\n")
}

func formatDay(t time.Time) string {
	return t.Format("2006/01/02 (Mon)")
}

// signedLots formats a signed lot count such as "+12,345 口".
func signedLots(n int64) string {
	s := humanize.Comma(n)
	if n >= 0 {
		s = "+" + s
	}
	return s + " " + lotUnit
}
