package database

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/viktsys/taifexbot/models"
)

// sqlRecorder captures the SQL gorm would have sent.
type sqlRecorder struct {
	gormlogger.Interface
	statements []string
}

func (r *sqlRecorder) Trace(_ context.Context, _ time.Time, fc func() (string, int64), _ error) {
	sql, _ := fc()
	r.statements = append(r.statements, sql)
}

func (r *sqlRecorder) last() string {
	if len(r.statements) == 0 {
		return ""
	}
	return r.statements[len(r.statements)-1]
}

// newDryRunStore builds a Store that renders SQL without a server.
func newDryRunStore(t *testing.T) (*Store, *sqlRecorder) {
	t.Helper()
	rec := &sqlRecorder{Interface: gormlogger.Discard}
	db, err := gorm.Open(postgres.Open("host=localhost user=test dbname=test sslmode=disable"), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
		Logger:                 rec,
	})
	require.NoError(t, err)
	return NewStore(db), rec
}

var day = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

func TestUpsertPositionsSQL(t *testing.T) {
	store, rec := newDryRunStore(t)

	err := store.UpsertPositions(context.Background(), []models.FuturesPosition{
		{TradeDate: day, Product: "TX", DealerNet: -1234, TrustNet: 25678, ForeignNet: -30567, RetailNet: 6123},
		{TradeDate: day, Product: "MTX", DealerNet: 2345, TrustNet: -120, ForeignNet: -8900, RetailNet: 6675},
	})
	require.NoError(t, err)

	sql := rec.last()
	require.True(t, strings.HasPrefix(sql, `INSERT INTO "futures_positions"`), sql)
	require.Contains(t, sql, `ON CONFLICT ("trade_date","product") DO UPDATE SET`)
	require.Contains(t, sql, `"retail_net"="excluded"."retail_net"`)
	require.Contains(t, sql, "6675")
}

func TestUpsertPositionsEmptyIsNoop(t *testing.T) {
	store, rec := newDryRunStore(t)

	require.NoError(t, store.UpsertPositions(context.Background(), nil))
	require.Empty(t, rec.statements)
}

func TestUpsertRatioSQL(t *testing.T) {
	store, rec := newDryRunStore(t)

	err := store.UpsertRatio(context.Background(), models.PCRatio{
		TradeDate:   day,
		PutVolume:   389078,
		CallVolume:  380307,
		VolumeRatio: decimal.RequireFromString("102.31"),
		PutOI:       619366,
		CallOI:      537223,
		OIRatio:     decimal.RequireFromString("115.29"),
	})
	require.NoError(t, err)

	sql := rec.last()
	require.True(t, strings.HasPrefix(sql, `INSERT INTO "pc_ratios"`), sql)
	require.Contains(t, sql, `ON CONFLICT ("trade_date") DO UPDATE SET`)
	require.Contains(t, sql, `"oi_ratio"="excluded"."oi_ratio"`)
}

func TestLatestPositionsSQL(t *testing.T) {
	store, rec := newDryRunStore(t)

	_, err := store.LatestPositions(context.Background(), "MTX", 5)
	require.NoError(t, err)
	require.Contains(t, rec.last(), `WHERE product = 'MTX'`)
	require.Contains(t, rec.last(), `ORDER BY trade_date DESC,product LIMIT 5`)

	_, err = store.LatestPositions(context.Background(), "", 3)
	require.NoError(t, err)
	require.NotContains(t, rec.last(), "WHERE")
}

func TestLatestRatiosSQL(t *testing.T) {
	store, rec := newDryRunStore(t)

	_, err := store.LatestRatios(context.Background(), 2)
	require.NoError(t, err)
	require.Contains(t, rec.last(), `FROM "pc_ratios" ORDER BY trade_date DESC LIMIT 2`)
}

func TestPurgeUnknownSource(t *testing.T) {
	store, _ := newDryRunStore(t)

	_, err := store.Purge(context.Background(), "options", day)
	require.Error(t, err)
}
