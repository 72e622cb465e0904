package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridwatch/internal/market"
	"gridwatch/internal/storage"
)

type fakePriceSource struct {
	systemPrices []market.SystemPrice
	dayAhead     []market.DayAheadPrice
	systemErr    error
	dayAheadErr  error
}

func (f *fakePriceSource) SystemPrices(ctx context.Context, date time.Time) ([]market.SystemPrice, error) {
	return f.systemPrices, f.systemErr
}

func (f *fakePriceSource) SystemPricesRange(ctx context.Context, from, to time.Time) ([]market.SystemPrice, error) {
	return f.systemPrices, f.systemErr
}

func (f *fakePriceSource) MarketIndexPrices(ctx context.Context, from, to time.Time) ([]market.DayAheadPrice, error) {
	return f.dayAhead, f.dayAheadErr
}

func (f *fakePriceSource) MarketIndexPricesChunked(ctx context.Context, from, to time.Time) ([]market.DayAheadPrice, error) {
	return f.dayAhead, f.dayAheadErr
}

func (f *fakePriceSource) HealthCheck(ctx context.Context) bool { return true }

type fakeCarbonSource struct {
	intensity    []market.CarbonIntensity
	fuelMix      []market.FuelMix
	intensityErr error
	fuelMixErr   error
}

func (f *fakeCarbonSource) IntensityByDate(ctx context.Context, date time.Time) ([]market.CarbonIntensity, error) {
	return f.intensity, f.intensityErr
}

func (f *fakeCarbonSource) IntensityRange(ctx context.Context, from, to time.Time) ([]market.CarbonIntensity, error) {
	return f.intensity, f.intensityErr
}

func (f *fakeCarbonSource) FuelMixByDate(ctx context.Context, date time.Time) ([]market.FuelMix, error) {
	return f.fuelMix, f.fuelMixErr
}

func (f *fakeCarbonSource) HealthCheck(ctx context.Context) bool { return true }

type logEntry struct {
	fetchType  string
	completion storage.FetchCompletion
	completed  bool
}

// fakeStore keys rows by natural identity so repeated writes count as
// updates, mirroring the upsert semantics.
type fakeStore struct {
	systemRows   map[string]market.SystemPrice
	dayAheadRows map[string]market.DayAheadPrice
	carbonRows   map[string]market.CarbonIntensity
	fuelMixRows  map[string]market.FuelMix

	logs      []*logEntry
	upsertErr error
	startErr  error
	nextLogID int64
	logsByID  map[int64]*logEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		systemRows:   make(map[string]market.SystemPrice),
		dayAheadRows: make(map[string]market.DayAheadPrice),
		carbonRows:   make(map[string]market.CarbonIntensity),
		fuelMixRows:  make(map[string]market.FuelMix),
		logsByID:     make(map[int64]*logEntry),
	}
}

func upsertInto[T any](rows map[string]T, keys []string, values []T) storage.UpsertResult {
	var result storage.UpsertResult
	for i, key := range keys {
		if _, ok := rows[key]; ok {
			result.Updated++
		} else {
			result.Inserted++
		}
		rows[key] = values[i]
	}
	return result
}

func (f *fakeStore) UpsertSystemPrices(ctx context.Context, prices []market.SystemPrice) (storage.UpsertResult, error) {
	if f.upsertErr != nil {
		return storage.UpsertResult{}, f.upsertErr
	}
	keys := make([]string, len(prices))
	for i, p := range prices {
		keys[i] = fmt.Sprintf("%s/%d", p.SettlementDate.Format("2006-01-02"), p.SettlementPeriod)
	}
	return upsertInto(f.systemRows, keys, prices), nil
}

func (f *fakeStore) UpsertDayAheadPrices(ctx context.Context, prices []market.DayAheadPrice) (storage.UpsertResult, error) {
	if f.upsertErr != nil {
		return storage.UpsertResult{}, f.upsertErr
	}
	keys := make([]string, len(prices))
	for i, p := range prices {
		keys[i] = fmt.Sprintf("%s/%d/%s", p.SettlementDate.Format("2006-01-02"), p.SettlementPeriod, p.DataProvider)
	}
	return upsertInto(f.dayAheadRows, keys, prices), nil
}

func (f *fakeStore) UpsertCarbonIntensity(ctx context.Context, readings []market.CarbonIntensity) (storage.UpsertResult, error) {
	if f.upsertErr != nil {
		return storage.UpsertResult{}, f.upsertErr
	}
	keys := make([]string, len(readings))
	for i, r := range readings {
		keys[i] = r.IntervalStart.Format(time.RFC3339)
	}
	return upsertInto(f.carbonRows, keys, readings), nil
}

func (f *fakeStore) UpsertFuelMix(ctx context.Context, mixes []market.FuelMix) (storage.UpsertResult, error) {
	if f.upsertErr != nil {
		return storage.UpsertResult{}, f.upsertErr
	}
	keys := make([]string, len(mixes))
	for i, m := range mixes {
		keys[i] = m.IntervalStart.Format(time.RFC3339)
	}
	return upsertInto(f.fuelMixRows, keys, mixes), nil
}

func (f *fakeStore) StartFetchLog(ctx context.Context, fetchType string, metadata map[string]any) (int64, error) {
	if f.startErr != nil {
		return 0, f.startErr
	}
	f.nextLogID++
	entry := &logEntry{fetchType: fetchType}
	f.logs = append(f.logs, entry)
	f.logsByID[f.nextLogID] = entry
	return f.nextLogID, nil
}

func (f *fakeStore) CompleteFetchLog(ctx context.Context, id int64, completion storage.FetchCompletion) error {
	entry, ok := f.logsByID[id]
	if !ok {
		return errors.New("unknown fetch log id")
	}
	entry.completion = completion
	entry.completed = true
	return nil
}

func testSystemPrices(t *testing.T, date time.Time, periods ...int) []market.SystemPrice {
	t.Helper()
	prices := make([]market.SystemPrice, 0, len(periods))
	for _, p := range periods {
		sp, err := market.NewSystemPrice(date, p, decimal.NewFromInt(80), decimal.NewFromInt(90))
		require.NoError(t, err)
		prices = append(prices, sp)
	}
	return prices
}

func testDayAheadPrices(t *testing.T, date time.Time, periods ...int) []market.DayAheadPrice {
	t.Helper()
	prices := make([]market.DayAheadPrice, 0, len(periods))
	for _, p := range periods {
		dp, err := market.NewDayAheadPrice(date, p, decimal.NewFromInt(75), "")
		require.NoError(t, err)
		prices = append(prices, dp)
	}
	return prices
}

func testService(prices *fakePriceSource, carbon *fakeCarbonSource, store *fakeStore) *Service {
	return New(prices, carbon, store, zerolog.Nop())
}

func TestFetchAllIsolatesSourceFailures(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	prices := &fakePriceSource{
		systemPrices: testSystemPrices(t, date, 1, 2, 3),
		dayAheadErr:  errors.New("upstream returned 502"),
	}
	carbon := &fakeCarbonSource{
		intensity: []market.CarbonIntensity{{IntervalStart: date, Forecast: 120, Index: "moderate"}},
		fuelMix:   []market.FuelMix{{IntervalStart: date, Wind: 30.5, Gas: 40.0}},
	}
	store := newFakeStore()

	results := testService(prices, carbon, store).FetchAll(context.Background(), 2)

	require.Len(t, results, 4)
	assert.Equal(t, Stats{Fetched: 3, Inserted: 3}, results[SourceSystemPrices])
	assert.Contains(t, results[SourceDayAheadPrice].Error, "502")
	assert.Zero(t, results[SourceDayAheadPrice].Fetched)
	// Carbon fetches span yesterday and today, one reading per day.
	assert.Equal(t, 2, results[SourceCarbon].Fetched)
	assert.Equal(t, 1, results[SourceFuelMix].Fetched)
}

func TestFetchAllIsRepeatable(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	prices := &fakePriceSource{
		systemPrices: testSystemPrices(t, date, 1, 2),
		dayAhead:     testDayAheadPrices(t, date, 1, 2),
	}
	carbon := &fakeCarbonSource{}
	store := newFakeStore()
	svc := testService(prices, carbon, store)

	first := svc.FetchAll(context.Background(), 1)
	assert.Equal(t, Stats{Fetched: 2, Inserted: 2}, first[SourceSystemPrices])

	second := svc.FetchAll(context.Background(), 1)
	assert.Equal(t, Stats{Fetched: 2, Updated: 2}, second[SourceSystemPrices])
	assert.Equal(t, Stats{Fetched: 2, Updated: 2}, second[SourceDayAheadPrice])

	// Re-running never grows the row set.
	assert.Len(t, store.systemRows, 2)
	assert.Len(t, store.dayAheadRows, 2)
}

func TestFetchLogLifecycle(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	prices := &fakePriceSource{systemPrices: testSystemPrices(t, date, 1)}
	store := newFakeStore()
	svc := testService(prices, &fakeCarbonSource{}, store)

	stats, err := svc.FetchSystemPrices(context.Background(), date, date)
	require.NoError(t, err)
	assert.Equal(t, Stats{Fetched: 1, Inserted: 1}, stats)

	require.Len(t, store.logs, 1)
	entry := store.logs[0]
	assert.Equal(t, SourceSystemPrices, entry.fetchType)
	assert.True(t, entry.completed)
	assert.Equal(t, storage.FetchStatusSuccess, entry.completion.Status)
	assert.Equal(t, 1, entry.completion.Fetched)
	assert.Equal(t, 1, entry.completion.Inserted)
}

func TestFetchLogRecordsWriteFailure(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	prices := &fakePriceSource{systemPrices: testSystemPrices(t, date, 1)}
	store := newFakeStore()
	store.upsertErr = errors.New("connection refused")
	svc := testService(prices, &fakeCarbonSource{}, store)

	_, err := svc.FetchSystemPrices(context.Background(), date, date)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	require.Len(t, store.logs, 1)
	entry := store.logs[0]
	assert.True(t, entry.completed)
	assert.Equal(t, storage.FetchStatusError, entry.completion.Status)
	assert.Contains(t, entry.completion.ErrorMsg, "connection refused")
}

func TestFetchLogStartFailureDoesNotBlockWrite(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	prices := &fakePriceSource{systemPrices: testSystemPrices(t, date, 1)}
	store := newFakeStore()
	store.startErr = errors.New("fetch_logs table missing")
	svc := testService(prices, &fakeCarbonSource{}, store)

	stats, err := svc.FetchSystemPrices(context.Background(), date, date)
	require.NoError(t, err)
	assert.Equal(t, Stats{Fetched: 1, Inserted: 1}, stats)
	assert.Len(t, store.systemRows, 1)
}

func TestFetchCarbonSkipsFailedDays(t *testing.T) {
	store := newFakeStore()
	carbon := &fakeCarbonSource{intensityErr: errors.New("timeout")}
	svc := testService(&fakePriceSource{}, carbon, store)

	from := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	stats, err := svc.FetchCarbonIntensity(context.Background(), from, to)
	require.NoError(t, err)
	assert.Zero(t, stats.Fetched)
}

func TestBackfillSubsetOfSources(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	prices := &fakePriceSource{
		systemPrices: testSystemPrices(t, date, 1, 2),
		dayAhead:     testDayAheadPrices(t, date, 1),
	}
	store := newFakeStore()
	svc := testService(prices, &fakeCarbonSource{}, store)

	results := svc.Backfill(context.Background(), date, date, []string{SourceSystemPrices, SourceDayAheadPrice})

	require.Len(t, results, 2)
	assert.Equal(t, Stats{Fetched: 2, Inserted: 2}, results[SourceSystemPrices])
	assert.Equal(t, Stats{Fetched: 1, Inserted: 1}, results[SourceDayAheadPrice])
	assert.NotContains(t, results, SourceCarbon)
}

func TestBackfillRejectsUnknownSource(t *testing.T) {
	svc := testService(&fakePriceSource{}, &fakeCarbonSource{}, newFakeStore())
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	results := svc.Backfill(context.Background(), date, date, []string{"wholesale"})
	assert.Contains(t, results["wholesale"].Error, "unknown source")
}
