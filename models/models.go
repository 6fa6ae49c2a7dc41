package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/viktsys/taifexbot/taifex"
)

// Sources archived in RawPage
const (
	SourceFutures = "futures"
	SourcePCRatio = "pcratio"
)

// FuturesPosition stores one product's institutional net open interest for a trade date
type FuturesPosition struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	TradeDate  time.Time `gorm:"type:date;not null;uniqueIndex:uidx_futures_date_product" json:"trade_date"`
	Product    string    `gorm:"size:8;not null;uniqueIndex:uidx_futures_date_product" json:"product"`
	DealerNet  int64     `json:"dealer_net"`
	TrustNet   int64     `json:"trust_net"`
	ForeignNet int64     `json:"foreign_net"`
	RetailNet  int64     `json:"retail_net"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PCRatio stores one day of the option put/call ratio table
type PCRatio struct {
	ID          uint            `gorm:"primaryKey" json:"-"`
	TradeDate   time.Time       `gorm:"type:date;not null;uniqueIndex:uidx_pc_ratio_date" json:"trade_date"`
	PutVolume   int64           `json:"put_volume"`
	CallVolume  int64           `json:"call_volume"`
	VolumeRatio decimal.Decimal `gorm:"type:numeric(10,2)" json:"pc_volume_ratio"`
	PutOI       int64           `gorm:"column:put_oi" json:"put_oi"`
	CallOI      int64           `gorm:"column:call_oi" json:"call_oi"`
	OIRatio     decimal.Decimal `gorm:"column:oi_ratio;type:numeric(10,2)" json:"pc_oi_ratio"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (PCRatio) TableName() string {
	return "pc_ratios"
}

// RawPage archives the last fetched body of a source for a trade date
type RawPage struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Source    string    `gorm:"size:16;not null;uniqueIndex:uidx_raw_source_date" json:"source"`
	TradeDate time.Time `gorm:"type:date;not null;uniqueIndex:uidx_raw_source_date" json:"trade_date"`
	URL       string    `json:"url"`
	Encoding  string    `gorm:"size:32" json:"encoding"`
	Body      string    `gorm:"type:text" json:"body"`
	FetchedAt time.Time `json:"fetched_at"`
}

// FromPositionRecord maps an extracted record to its stored form
func FromPositionRecord(r taifex.PositionRecord) FuturesPosition {
	return FuturesPosition{
		TradeDate:  r.Date,
		Product:    string(r.Product),
		DealerNet:  r.Net(taifex.CategoryDealer),
		TrustNet:   r.Net(taifex.CategoryTrust),
		ForeignNet: r.Net(taifex.CategoryForeign),
		RetailNet:  r.Residual,
	}
}

// FromRatioRecord maps an extracted ratio row to its stored form
func FromRatioRecord(r taifex.RatioRecord) PCRatio {
	return PCRatio{
		TradeDate:   r.Date,
		PutVolume:   r.PutVolume,
		CallVolume:  r.CallVolume,
		VolumeRatio: r.VolumeRatio,
		PutOI:       r.PutOI,
		CallOI:      r.CallOI,
		OIRatio:     r.OIRatio,
	}
}
