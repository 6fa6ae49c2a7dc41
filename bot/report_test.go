package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viktsys/taifexbot/models"
)

var friday = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

func sampleRatio() *models.PCRatio {
	return &models.PCRatio{
		TradeDate:   friday,
		PutVolume:   389078,
		CallVolume:  380307,
		VolumeRatio: decimal.RequireFromString("102.31"),
		PutOI:       619366,
		CallOI:      537223,
		OIRatio:     decimal.RequireFromString("115.29"),
	}
}

func samplePositions() []models.FuturesPosition {
	return []models.FuturesPosition{
		{TradeDate: friday, Product: "MTX", DealerNet: 2345, TrustNet: -120, ForeignNet: -8900, RetailNet: 6675},
		{TradeDate: friday, Product: "TX", DealerNet: -1234, TrustNet: 25678, ForeignNet: -30567, RetailNet: 6123},
	}
}

func TestBuildReportLayout(t *testing.T) {
	got := BuildReport(sampleRatio(), samplePositions()[:1])

	want := "日期：2024/05/10 (Fri)\n" +
		"🧮 PC ratio 未平倉比：115.29\n" +
		"PC ratio 成交量比：102.31\n" +
		"散戶小台未平倉：+6,675 口\n" +
		"\n" +
		"小型臺指期貨 MTX\n" +
		"  自營商：+2,345 口\n" +
		"  投信：-120 口\n" +
		"  外資及陸資：-8,900 口\n" +
		"  散戶：+6,675 口"
	require.Equal(t, want, got)
}

func TestBuildReportProductOrder(t *testing.T) {
	got := BuildReport(sampleRatio(), samplePositions())

	tx := strings.Index(got, "臺股期貨 TX")
	mtx := strings.Index(got, "小型臺指期貨 MTX")
	require.True(t, tx >= 0 && mtx >= 0, got)
	assert.Less(t, tx, mtx)
	assert.Contains(t, got, "  外資及陸資：-30,567 口")
}

func TestBuildReportWithoutRatio(t *testing.T) {
	got := BuildReport(nil, samplePositions())

	assert.Contains(t, got, "日期：2024/05/10 (Fri)")
	assert.NotContains(t, got, "PC ratio")
}

func TestBuildReportMarksOlderPositions(t *testing.T) {
	positions := samplePositions()
	positions[0].TradeDate = friday.AddDate(0, 0, -1)

	got := BuildReport(sampleRatio(), positions)
	assert.Contains(t, got, "小型臺指期貨 MTX（2024/05/09）")
}

func TestBuildReportEmpty(t *testing.T) {
	assert.Equal(t, "", BuildReport(nil, nil))
}

func TestSignedLots(t *testing.T) {
	cases := map[int64]string{
		0:        "+0 口",
		12345:    "+12,345 口",
		-1234567: "-1,234,567 口",
	}
	for n, want := range cases {
		assert.Equal(t, want, signedLots(n))
	}
}
