package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viktsys/taifexbot/config"
	"github.com/viktsys/taifexbot/database"
	"github.com/viktsys/taifexbot/fetcher"
	"github.com/viktsys/taifexbot/logger"
	"github.com/viktsys/taifexbot/models"
	"github.com/viktsys/taifexbot/taifex"
)

type fakeStore struct {
	mu        sync.Mutex
	positions []models.FuturesPosition
	ratios    []models.PCRatio
	raw       map[string]models.RawPage
	upsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{raw: make(map[string]models.RawPage)}
}

func (s *fakeStore) UpsertPositions(_ context.Context, positions []models.FuturesPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.positions = append(s.positions, positions...)
	return nil
}

func (s *fakeStore) UpsertRatio(_ context.Context, ratio models.PCRatio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.ratios = append(s.ratios, ratio)
	return nil
}

func (s *fakeStore) SaveRawPage(_ context.Context, page models.RawPage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[page.Source] = page
	return nil
}

func (s *fakeStore) LatestRawPage(_ context.Context, source string) (*models.RawPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page, ok := s.raw[source]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &page, nil
}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile("../taifex/testdata/" + name)
	require.NoError(t, err)
	return string(b)
}

// newTestProcessor serves the given bodies from a local server and pins the
// clock to the evening of 2024-05-10 in Taipei.
func newTestProcessor(t *testing.T, futures, ratio string) (*Processor, *fakeStore) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/futures", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(futures))
	})
	mux.HandleFunc("/pcratio", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(ratio))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.TaifexConfig{
		FuturesURL:  srv.URL + "/futures",
		PCRatioURL:  srv.URL + "/pcratio",
		UserAgent:   "taifexbot-test",
		HTTPTimeout: 5 * time.Second,
	}
	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)

	store := newFakeStore()
	p := NewProcessor(fetcher.New(cfg, logger.Nop()), store, cfg, loc, logger.Nop())
	p.now = func() time.Time { return time.Date(2024, 5, 10, 17, 30, 0, 0, loc) }
	return p, store
}

var tradeDay = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

func TestRunFuturesStoresCompletedProducts(t *testing.T) {
	p, store := newTestProcessor(t, readFixture(t, "fut_contracts.html"), "")

	res, err := p.RunFutures(context.Background(), Options{})
	require.NoError(t, err)

	require.Equal(t, tradeDay, res.Date)
	require.Equal(t, 3, res.Stored)
	require.NotEmpty(t, res.RunID)
	require.Len(t, store.positions, 3)

	mtx := store.positions[1]
	assert.Equal(t, "MTX", mtx.Product)
	assert.Equal(t, int64(2345), mtx.DealerNet)
	assert.Equal(t, int64(-120), mtx.TrustNet)
	assert.Equal(t, int64(-8900), mtx.ForeignNet)
	assert.Equal(t, int64(6675), mtx.RetailNet)

	raw := store.raw[models.SourceFutures]
	assert.Equal(t, tradeDay, raw.TradeDate)
	assert.Equal(t, "utf-8", raw.Encoding)
	assert.Contains(t, raw.Body, "小型臺指期貨")
}

func TestRunFuturesNotYetPublished(t *testing.T) {
	p, store := newTestProcessor(t, readFixture(t, "fut_contracts.html"), "")
	p.now = func() time.Time { return time.Date(2024, 5, 11, 9, 0, 0, 0, p.loc) }

	res, err := p.RunFutures(context.Background(), Options{})
	require.ErrorIs(t, err, ErrNotYetPublished)
	require.NotNil(t, res)
	require.Len(t, res.Positions, 3)
	require.Zero(t, res.Stored)
	require.Empty(t, store.positions)

	res, err = p.RunFutures(context.Background(), Options{Force: true})
	require.NoError(t, err)
	require.Equal(t, 3, res.Stored)
}

func TestTodayFollowsExchangeTimezone(t *testing.T) {
	p, store := newTestProcessor(t, readFixture(t, "fut_contracts.html"), "")
	// 2024-05-10 20:00 UTC is already 2024-05-11 in Taipei.
	p.now = func() time.Time { return time.Date(2024, 5, 10, 20, 0, 0, 0, time.UTC) }

	_, err := p.RunFutures(context.Background(), Options{})
	require.ErrorIs(t, err, ErrNotYetPublished)
	require.Empty(t, store.positions)
}

func TestRunFuturesMissingDate(t *testing.T) {
	p, store := newTestProcessor(t, "<table><tr><td>小型臺指期貨</td><td>投信</td><td>1</td><td>2</td></tr></table>", "")

	_, err := p.RunFutures(context.Background(), Options{})
	var missing *taifex.MissingDateError
	require.ErrorAs(t, err, &missing)
	require.Empty(t, store.positions)

	// the unreadable page is still archived, filed under today
	raw, ok := store.raw[models.SourceFutures]
	require.True(t, ok)
	require.Equal(t, tradeDay, raw.TradeDate)
}

func TestRunRatioStoresRow(t *testing.T) {
	p, store := newTestProcessor(t, "", readFixture(t, "pc_ratio.html"))

	res, err := p.RunRatio(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Stored)
	require.Len(t, store.ratios, 1)

	got := store.ratios[0]
	assert.Equal(t, tradeDay, got.TradeDate)
	assert.Equal(t, int64(619366), got.PutOI)
	assert.Equal(t, "115.29", got.OIRatio.StringFixed(2))
}

func TestRunRatioMalformed(t *testing.T) {
	p, store := newTestProcessor(t, "", "2024/05/10 1 2 3\n")

	_, err := p.RunRatio(context.Background(), Options{})
	var malformed *taifex.MalformedRowError
	require.ErrorAs(t, err, &malformed)
	require.Empty(t, store.ratios)
}

func TestRunAll(t *testing.T) {
	p, store := newTestProcessor(t, readFixture(t, "fut_contracts.html"), readFixture(t, "pc_ratio.html"))

	results, err := p.RunAll(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Len(t, store.positions, 3)
	require.Len(t, store.ratios, 1)
}

func TestRunAllHardFailureWins(t *testing.T) {
	p, _ := newTestProcessor(t, readFixture(t, "fut_contracts.html"), "no rows here")
	p.now = func() time.Time { return time.Date(2024, 5, 13, 9, 0, 0, 0, p.loc) }

	_, err := p.RunAll(context.Background(), Options{})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotYetPublished))

	var malformed *taifex.MalformedRowError
	require.ErrorAs(t, err, &malformed)
}

func TestRunAllStale(t *testing.T) {
	p, _ := newTestProcessor(t, readFixture(t, "fut_contracts.html"), readFixture(t, "pc_ratio.html"))
	p.now = func() time.Time { return time.Date(2024, 5, 13, 9, 0, 0, 0, p.loc) }

	results, err := p.RunAll(context.Background(), Options{})
	require.ErrorIs(t, err, ErrNotYetPublished)
	require.Len(t, results, 2)
}

func TestRunStoreFailure(t *testing.T) {
	p, store := newTestProcessor(t, readFixture(t, "fut_contracts.html"), "")
	store.upsertErr = errors.New("connection refused")

	_, err := p.RunFutures(context.Background(), Options{})
	require.ErrorContains(t, err, "connection refused")
}

func TestRunUnknownSource(t *testing.T) {
	p, _ := newTestProcessor(t, "", "")

	_, err := p.Run(context.Background(), "options", Options{})
	require.ErrorIs(t, err, ErrUnknownSource)
}

func TestInspect(t *testing.T) {
	p, _ := newTestProcessor(t, readFixture(t, "fut_contracts.html"), readFixture(t, "pc_ratio.html"))

	_, err := p.Inspect(context.Background(), models.SourceFutures)
	require.ErrorIs(t, err, database.ErrNotFound)

	_, err = p.RunAll(context.Background(), Options{})
	require.NoError(t, err)

	got, err := p.Inspect(context.Background(), models.SourceFutures)
	require.NoError(t, err)
	require.NoError(t, got.ParseErr)
	require.Len(t, got.Positions.Records, 3)

	got, err = p.Inspect(context.Background(), models.SourcePCRatio)
	require.NoError(t, err)
	require.NotNil(t, got.Ratio)
	require.Equal(t, int64(389078), got.Ratio.PutVolume)

	_, err = p.Inspect(context.Background(), "options")
	require.ErrorIs(t, err, ErrUnknownSource)
}
