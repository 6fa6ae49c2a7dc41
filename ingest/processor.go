package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/viktsys/taifexbot/config"
	"github.com/viktsys/taifexbot/fetcher"
	"github.com/viktsys/taifexbot/logger"
	"github.com/viktsys/taifexbot/models"
	"github.com/viktsys/taifexbot/taifex"
)

var (
	// ErrNotYetPublished means the exchange still serves the previous trade
	// date. Callers treat it as a neutral outcome and retry later.
	ErrNotYetPublished = errors.New("data not yet published")

	ErrUnknownSource = errors.New("unknown source")
)

// Fetcher downloads a page and decodes it to UTF-8.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Page, error)
}

// Store is the subset of database.Store the processor writes to.
type Store interface {
	UpsertPositions(ctx context.Context, positions []models.FuturesPosition) error
	UpsertRatio(ctx context.Context, ratio models.PCRatio) error
	SaveRawPage(ctx context.Context, page models.RawPage) error
	LatestRawPage(ctx context.Context, source string) (*models.RawPage, error)
}

type Options struct {
	// Force stores a page even when its trade date is older than today.
	Force bool
}

// Result summarizes one source run.
type Result struct {
	Source string
	RunID  string
	Date   time.Time
	Stored int

	Positions  []taifex.PositionRecord
	Ratio      *taifex.RatioRecord
	Incomplete []taifex.IncompleteAggregate
	Skipped    int
}

// Inspection is the archived page of a source together with a fresh parse
// of it.
type Inspection struct {
	Page      *models.RawPage
	Positions *taifex.PositionsResult
	Ratio     *taifex.RatioRecord
	ParseErr  error
}

type Processor struct {
	fetcher Fetcher
	store   Store
	urls    map[string]string
	loc     *time.Location
	log     *logger.Logger
	now     func() time.Time
}

func NewProcessor(f Fetcher, store Store, cfg config.TaifexConfig, loc *time.Location, log *logger.Logger) *Processor {
	return &Processor{
		fetcher: f,
		store:   store,
		urls: map[string]string{
			models.SourceFutures: cfg.FuturesURL,
			models.SourcePCRatio: cfg.PCRatioURL,
		},
		loc: loc,
		log: log.With("component", "ingest"),
		now: time.Now,
	}
}

// Run dispatches to the runner for source. "all" runs every source.
func (p *Processor) Run(ctx context.Context, source string, opts Options) ([]*Result, error) {
	switch source {
	case models.SourceFutures:
		res, err := p.RunFutures(ctx, opts)
		return collect(res), err
	case models.SourcePCRatio:
		res, err := p.RunRatio(ctx, opts)
		return collect(res), err
	case "all", "":
		return p.RunAll(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
}

func collect(res *Result) []*Result {
	if res == nil {
		return nil
	}
	return []*Result{res}
}

// RunFutures fetches the institutional positions page and stores one row
// per completed product.
func (p *Processor) RunFutures(ctx context.Context, opts Options) (*Result, error) {
	res := p.newResult(models.SourceFutures)
	log := p.log.With("source", res.Source, "run_id", res.RunID)

	page, err := p.fetch(ctx, res.Source)
	if err != nil {
		return nil, err
	}

	extracted, parseErr := taifex.ParsePositions(page.Text)
	if parseErr == nil {
		res.Date = extracted.Date
	}
	p.archive(ctx, log, res, page)
	if parseErr != nil {
		return nil, fmt.Errorf("extract futures positions: %w", parseErr)
	}

	res.Positions = extracted.Records
	res.Incomplete = extracted.Incomplete
	res.Skipped = extracted.Skipped
	for _, inc := range extracted.Incomplete {
		log.Warnw("incomplete product block", "product", inc.Product, "detail", inc.String())
	}

	if err := p.checkFresh(res.Date, opts); err != nil {
		log.Infow("page not refreshed yet", "page_date", res.Date.Format("2006-01-02"))
		return res, err
	}

	rows := make([]models.FuturesPosition, 0, len(extracted.Records))
	for _, rec := range extracted.Records {
		rows = append(rows, models.FromPositionRecord(rec))
	}
	if err := p.store.UpsertPositions(ctx, rows); err != nil {
		return nil, fmt.Errorf("store futures positions: %w", err)
	}
	res.Stored = len(rows)

	log.Infow("futures positions stored",
		"date", res.Date.Format("2006-01-02"),
		"products", res.Stored,
		"incomplete", len(res.Incomplete),
		"skipped_rows", res.Skipped,
	)
	return res, nil
}

// RunRatio fetches the put/call ratio page and stores its latest row.
func (p *Processor) RunRatio(ctx context.Context, opts Options) (*Result, error) {
	res := p.newResult(models.SourcePCRatio)
	log := p.log.With("source", res.Source, "run_id", res.RunID)

	page, err := p.fetch(ctx, res.Source)
	if err != nil {
		return nil, err
	}

	rec, parseErr := taifex.ParseRatio(page.Text)
	if parseErr == nil {
		res.Date = rec.Date
	}
	p.archive(ctx, log, res, page)
	if parseErr != nil {
		return nil, fmt.Errorf("extract put/call ratio: %w", parseErr)
	}
	res.Ratio = &rec

	if err := p.checkFresh(res.Date, opts); err != nil {
		log.Infow("page not refreshed yet", "page_date", res.Date.Format("2006-01-02"))
		return res, err
	}

	if err := p.store.UpsertRatio(ctx, models.FromRatioRecord(rec)); err != nil {
		return nil, fmt.Errorf("store put/call ratio: %w", err)
	}
	res.Stored = 1

	log.Infow("put/call ratio stored",
		"date", res.Date.Format("2006-01-02"),
		"pc_oi_ratio", rec.OIRatio.StringFixed(2),
	)
	return res, nil
}

// RunAll runs every source concurrently. A hard failure in any source is
// returned; ErrNotYetPublished is returned only when nothing failed hard.
func (p *Processor) RunAll(ctx context.Context, opts Options) ([]*Result, error) {
	runners := []func(context.Context, Options) (*Result, error){p.RunFutures, p.RunRatio}

	results := make([]*Result, len(runners))
	errs := make([]error, len(runners))

	var wg sync.WaitGroup
	for i, run := range runners {
		wg.Add(1)
		go func(i int, run func(context.Context, Options) (*Result, error)) {
			defer wg.Done()
			results[i], errs[i] = run(ctx, opts)
		}(i, run)
	}
	wg.Wait()

	var out []*Result
	for _, res := range results {
		if res != nil {
			out = append(out, res)
		}
	}

	var hard []error
	stale := false
	for _, err := range errs {
		switch {
		case err == nil:
		case errors.Is(err, ErrNotYetPublished):
			stale = true
		default:
			hard = append(hard, err)
		}
	}
	if len(hard) > 0 {
		return out, errors.Join(hard...)
	}
	if stale {
		return out, ErrNotYetPublished
	}
	return out, nil
}

// Inspect loads the archived page of a source and parses it again.
func (p *Processor) Inspect(ctx context.Context, source string) (*Inspection, error) {
	if _, ok := p.urls[source]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}

	page, err := p.store.LatestRawPage(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("load raw %s page: %w", source, err)
	}

	out := &Inspection{Page: page}
	switch source {
	case models.SourceFutures:
		out.Positions, out.ParseErr = taifex.ParsePositions(page.Body)
	case models.SourcePCRatio:
		rec, err := taifex.ParseRatio(page.Body)
		if err == nil {
			out.Ratio = &rec
		}
		out.ParseErr = err
	}
	return out, nil
}

func (p *Processor) newResult(source string) *Result {
	return &Result{Source: source, RunID: uuid.NewString()}
}

func (p *Processor) fetch(ctx context.Context, source string) (*fetcher.Page, error) {
	page, err := p.fetcher.Fetch(ctx, p.urls[source])
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", source, err)
	}
	return page, nil
}

// archive keeps the fetched body for later inspection. A page without a
// readable date is filed under today so the failure can still be examined.
func (p *Processor) archive(ctx context.Context, log *logger.Logger, res *Result, page *fetcher.Page) {
	date := res.Date
	if date.IsZero() {
		date = p.today()
	}

	err := p.store.SaveRawPage(ctx, models.RawPage{
		Source:    res.Source,
		TradeDate: date,
		URL:       page.URL,
		Encoding:  page.Encoding,
		Body:      page.Text,
		FetchedAt: page.FetchedAt,
	})
	if err != nil {
		log.Warnw("failed to archive raw page", "error", err)
	}
}

func (p *Processor) checkFresh(date time.Time, opts Options) error {
	if opts.Force {
		return nil
	}
	if today := p.today(); date.Before(today) {
		return fmt.Errorf("%w: page date %s, expected %s",
			ErrNotYetPublished, date.Format("2006-01-02"), today.Format("2006-01-02"))
	}
	return nil
}

func (p *Processor) today() time.Time {
	return taifex.TradingDay(p.now(), p.loc)
}
