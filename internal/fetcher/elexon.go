package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"gridwatch/internal/market"
	"gridwatch/internal/settlement"
)

const (
	// DefaultElexonBaseURL is the public BMRS API. No auth required,
	// rate limit ~100 requests/minute.
	DefaultElexonBaseURL = "https://data.elexon.co.uk/bmrs/api/v1"

	systemPricesPath = "/balancing/settlement/system-prices"
	marketIndexPath  = "/balancing/pricing/market-index"

	// defaultChunkDays is the widest window the market-index endpoint
	// accepts in practice.
	defaultChunkDays = 7

	// defaultRangeConcurrency bounds parallel per-day fetches well under
	// the upstream rate limit.
	defaultRangeConcurrency = 4

	dateLayout = "2006-01-02"
)

// ElexonOptions parameterise the Elexon client.
type ElexonOptions struct {
	BaseURL          string
	Timeout          time.Duration
	MaxRetries       int
	DataProvider     string
	ChunkDays        int
	RangeConcurrency int
}

// Elexon fetches system prices and day-ahead market index prices from the
// Elexon Balancing Mechanism Reporting Service.
type Elexon struct {
	opts ElexonOptions
	http *httpClient
	log  zerolog.Logger
}

// NewElexon constructs an Elexon client.
func NewElexon(opts ElexonOptions, logger zerolog.Logger) *Elexon {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultElexonBaseURL
	}
	if opts.DataProvider == "" {
		opts.DataProvider = market.DefaultDataProvider
	}
	if opts.ChunkDays <= 0 {
		opts.ChunkDays = defaultChunkDays
	}
	if opts.RangeConcurrency <= 0 {
		opts.RangeConcurrency = defaultRangeConcurrency
	}

	log := logger.With().Str("component", "elexon_client").Logger()
	return &Elexon{
		opts: opts,
		http: newHTTPClient(opts.BaseURL, opts.Timeout, opts.MaxRetries, log),
		log:  log,
	}
}

// SystemPrices fetches all settlement periods for one calendar day, sorted by
// (date, period). Items that fail to parse are dropped with a warning.
func (e *Elexon) SystemPrices(ctx context.Context, date time.Time) ([]market.SystemPrice, error) {
	path := fmt.Sprintf("%s/%s", systemPricesPath, date.Format(dateLayout))
	items, err := e.http.getData(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	prices := make([]market.SystemPrice, 0, len(items))
	for _, item := range items {
		price, err := market.ParseSystemPrice(item)
		if err != nil {
			e.log.Warn().Err(err).RawJSON("item", item).Msg("dropping unparseable system price")
			continue
		}
		prices = append(prices, price)
	}

	sortSystemPrices(prices)
	return prices, nil
}

// SystemPricesRange fetches day-by-day across [from, to] inclusive. Days fetch
// concurrently under a bounded limit; a failed day is logged and skipped so
// partial results still come back. Results are re-sorted after collection
// since arrival order carries no meaning.
func (e *Elexon) SystemPricesRange(ctx context.Context, from, to time.Time) ([]market.SystemPrice, error) {
	var (
		mu     sync.Mutex
		prices []market.SystemPrice
	)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(e.opts.RangeConcurrency)

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		group.Go(func() error {
			dayPrices, err := e.SystemPrices(gctx, day)
			if err != nil {
				e.log.Error().Err(err).Str("date", day.Format(dateLayout)).Msg("failed to fetch system prices for day")
				return nil
			}
			mu.Lock()
			prices = append(prices, dayPrices...)
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	sortSystemPrices(prices)
	return prices, nil
}

// MarketIndexPrices issues a single range query for day-ahead prices. The
// upstream caps the window; callers backfilling long spans should use
// MarketIndexPricesChunked instead.
func (e *Elexon) MarketIndexPrices(ctx context.Context, from, to time.Time) ([]market.DayAheadPrice, error) {
	params := url.Values{}
	params.Set("from", from.Format(dateLayout))
	params.Set("to", to.Format(dateLayout))
	params.Set("dataProviders", e.opts.DataProvider)

	items, err := e.http.getData(ctx, marketIndexPath, params)
	if err != nil {
		return nil, err
	}

	prices := make([]market.DayAheadPrice, 0, len(items))
	for _, item := range items {
		price, err := market.ParseDayAheadPrice(item)
		if err != nil {
			e.log.Warn().Err(err).RawJSON("item", item).Msg("dropping unparseable day-ahead price")
			continue
		}
		prices = append(prices, price)
	}

	sortDayAheadPrices(prices)
	return prices, nil
}

// MarketIndexPricesChunked splits [from, to] into windows of at most
// ChunkDays calendar days, stitches the results, and de-duplicates on
// (date, period, provider). A failed chunk is logged and skipped.
func (e *Elexon) MarketIndexPricesChunked(ctx context.Context, from, to time.Time) ([]market.DayAheadPrice, error) {
	type key struct {
		date     string
		period   int
		provider string
	}

	seen := make(map[key]struct{})
	var prices []market.DayAheadPrice

	for current := from; !current.After(to); {
		chunkEnd := current.AddDate(0, 0, e.opts.ChunkDays-1)
		if chunkEnd.After(to) {
			chunkEnd = to
		}

		chunk, err := e.MarketIndexPrices(ctx, current, chunkEnd)
		if err != nil {
			e.log.Warn().Err(err).
				Str("from", current.Format(dateLayout)).
				Str("to", chunkEnd.Format(dateLayout)).
				Msg("failed to fetch day-ahead chunk")
		}
		for _, price := range chunk {
			k := key{price.SettlementDate.Format(dateLayout), price.SettlementPeriod, price.DataProvider}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			prices = append(prices, price)
		}

		current = chunkEnd.AddDate(0, 0, 1)
	}

	sortDayAheadPrices(prices)
	return prices, nil
}

// DailyAverage composes a one-day fetch with aggregation. Returns
// market.ErrNoData when nothing was retrievable.
func (e *Elexon) DailyAverage(ctx context.Context, date time.Time, priceType market.PriceType) (market.PriceAggregate, error) {
	values, err := e.priceValues(ctx, date, date, priceType)
	if err != nil {
		return market.PriceAggregate{}, err
	}
	return market.Aggregate(values, date, date, priceType)
}

// MonthlyAverage aggregates a whole calendar month, the usual PPA settlement
// granularity.
func (e *Elexon) MonthlyAverage(ctx context.Context, year int, month time.Month, priceType market.PriceType) (market.PriceAggregate, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)

	values, err := e.priceValues(ctx, from, to, priceType)
	if err != nil {
		return market.PriceAggregate{}, err
	}
	return market.Aggregate(values, from, to, priceType)
}

func (e *Elexon) priceValues(ctx context.Context, from, to time.Time, priceType market.PriceType) ([]decimal.Decimal, error) {
	switch priceType {
	case market.PriceTypeSystem:
		var prices []market.SystemPrice
		var err error
		if from.Equal(to) {
			prices, err = e.SystemPrices(ctx, from)
		} else {
			prices, err = e.SystemPricesRange(ctx, from, to)
		}
		if err != nil {
			return nil, err
		}
		return market.SystemPriceValues(prices), nil
	case market.PriceTypeDayAhead:
		prices, err := e.MarketIndexPricesChunked(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return market.DayAheadValues(prices), nil
	default:
		return nil, fmt.Errorf("invalid price type %q", priceType)
	}
}

// LatestSystemPrice walks back up to three days and returns the most recent
// settlement period seen, or ErrNoData.
func (e *Elexon) LatestSystemPrice(ctx context.Context) (market.SystemPrice, error) {
	for daysBack := 0; daysBack < 3; daysBack++ {
		day := settlement.Today().AddDate(0, 0, -daysBack)
		prices, err := e.SystemPrices(ctx, day)
		if err != nil {
			continue
		}
		if len(prices) > 0 {
			return prices[len(prices)-1], nil
		}
	}
	return market.SystemPrice{}, market.ErrNoData
}

// HealthCheck probes yesterday's system prices. Best-effort: never errors.
func (e *Elexon) HealthCheck(ctx context.Context) bool {
	yesterday := settlement.Today().AddDate(0, 0, -1)
	path := fmt.Sprintf("%s/%s", systemPricesPath, yesterday.Format(dateLayout))
	if _, err := e.http.getData(ctx, path, nil); err != nil {
		e.log.Warn().Err(err).Msg("elexon health check failed")
		return false
	}
	return true
}

func sortSystemPrices(prices []market.SystemPrice) {
	slices.SortFunc(prices, func(a, b market.SystemPrice) int {
		if c := a.SettlementDate.Compare(b.SettlementDate); c != 0 {
			return c
		}
		return a.SettlementPeriod - b.SettlementPeriod
	})
}

func sortDayAheadPrices(prices []market.DayAheadPrice) {
	slices.SortFunc(prices, func(a, b market.DayAheadPrice) int {
		if c := a.SettlementDate.Compare(b.SettlementDate); c != 0 {
			return c
		}
		return a.SettlementPeriod - b.SettlementPeriod
	})
}

var _ PriceSource = (*Elexon)(nil)
