// Package service coordinates fetching across all data sources and owns the
// fetch audit log lifecycle.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"gridwatch/internal/fetcher"
	"gridwatch/internal/market"
	"gridwatch/internal/settlement"
	"gridwatch/internal/storage"
)

// Source names double as fetch_log types and stats map keys.
const (
	SourceSystemPrices  = "system_prices"
	SourceDayAheadPrice = "day_ahead_prices"
	SourceCarbon        = "carbon_intensity"
	SourceFuelMix       = "fuel_mix"
)

// AllSources lists every source in fetch order.
var AllSources = []string{SourceSystemPrices, SourceDayAheadPrice, SourceCarbon, SourceFuelMix}

// Stats reports one source's fetch outcome. Error is set instead of counts
// when the source failed.
type Stats struct {
	Fetched  int    `json:"fetched"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
	Error    string `json:"error,omitempty"`
}

// Store is the persistence surface the orchestrator needs: idempotent
// upserts plus independent fetch-attempt logging.
type Store interface {
	storage.RecordStore
	storage.FetchLogStore
}

// Service orchestrates fetch and backfill runs across all four sources.
type Service struct {
	prices fetcher.PriceSource
	carbon fetcher.CarbonSource
	store  Store
	logger zerolog.Logger
}

// New constructs the fetch orchestrator.
func New(prices fetcher.PriceSource, carbon fetcher.CarbonSource, store Store, logger zerolog.Logger) *Service {
	return &Service{
		prices: prices,
		carbon: carbon,
		store:  store,
		logger: logger.With().Str("component", "service").Logger(),
	}
}

// FetchAll runs every source fetch for the trailing window. Sources are
// isolated: one failure is recorded in its stats entry and the siblings
// still run.
func (s *Service) FetchAll(ctx context.Context, daysBack int) map[string]Stats {
	return s.FetchSources(ctx, AllSources, daysBack)
}

// FetchSources runs the named subset of source fetches with the same
// isolation discipline as FetchAll.
func (s *Service) FetchSources(ctx context.Context, sources []string, daysBack int) map[string]Stats {
	results := make(map[string]Stats, len(sources))
	for _, source := range sources {
		stats, err := s.fetchSource(ctx, source, daysBack)
		if err != nil {
			s.logger.Error().Err(err).Str("source", source).Msg("source fetch failed")
			results[source] = Stats{Error: err.Error()}
			continue
		}
		results[source] = stats
	}
	return results
}

func (s *Service) fetchSource(ctx context.Context, source string, daysBack int) (Stats, error) {
	today := settlement.Today()
	from := today.AddDate(0, 0, -daysBack)

	switch source {
	case SourceSystemPrices:
		return s.FetchSystemPrices(ctx, from, today)
	case SourceDayAheadPrice:
		return s.FetchDayAheadPrices(ctx, from, today)
	case SourceCarbon:
		// Yesterday has complete actuals; today is mostly forecast.
		return s.FetchCarbonIntensity(ctx, today.AddDate(0, 0, -1), today)
	case SourceFuelMix:
		return s.FetchFuelMix(ctx, today.AddDate(0, 0, -1), today.AddDate(0, 0, -1))
	default:
		return Stats{}, fmt.Errorf("unknown source %q", source)
	}
}

// FetchSystemPrices fetches and persists system prices for a date range.
func (s *Service) FetchSystemPrices(ctx context.Context, from, to time.Time) (Stats, error) {
	prices, err := s.prices.SystemPricesRange(ctx, from, to)
	if err != nil {
		return Stats{}, fmt.Errorf("fetch system prices: %w", err)
	}
	s.logger.Info().Int("count", len(prices)).
		Str("from", from.Format("2006-01-02")).
		Str("to", to.Format("2006-01-02")).
		Msg("fetched system prices")

	return s.save(ctx, SourceSystemPrices, rangeMetadata(from, to), len(prices), func() (storage.UpsertResult, error) {
		return s.store.UpsertSystemPrices(ctx, prices)
	})
}

// FetchDayAheadPrices fetches and persists day-ahead prices for a date range,
// chunking long ranges before a single write.
func (s *Service) FetchDayAheadPrices(ctx context.Context, from, to time.Time) (Stats, error) {
	prices, err := s.prices.MarketIndexPricesChunked(ctx, from, to)
	if err != nil {
		return Stats{}, fmt.Errorf("fetch day-ahead prices: %w", err)
	}
	s.logger.Info().Int("count", len(prices)).
		Str("from", from.Format("2006-01-02")).
		Str("to", to.Format("2006-01-02")).
		Msg("fetched day-ahead prices")

	return s.save(ctx, SourceDayAheadPrice, rangeMetadata(from, to), len(prices), func() (storage.UpsertResult, error) {
		return s.store.UpsertDayAheadPrices(ctx, prices)
	})
}

// FetchCarbonIntensity fetches and persists intensity readings day by day.
// Failed days are logged and skipped so partial coverage still lands.
func (s *Service) FetchCarbonIntensity(ctx context.Context, from, to time.Time) (Stats, error) {
	var readings []market.CarbonIntensity
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		dayReadings, err := s.carbon.IntensityByDate(ctx, day)
		if err != nil {
			s.logger.Warn().Err(err).Str("date", day.Format("2006-01-02")).Msg("failed to fetch carbon intensity for day")
			continue
		}
		readings = append(readings, dayReadings...)
	}
	s.logger.Info().Int("count", len(readings)).Msg("fetched carbon intensity readings")

	return s.save(ctx, SourceCarbon, rangeMetadata(from, to), len(readings), func() (storage.UpsertResult, error) {
		return s.store.UpsertCarbonIntensity(ctx, readings)
	})
}

// FetchFuelMix fetches and persists generation mixes day by day, with the
// same skip-on-failure policy as carbon intensity.
func (s *Service) FetchFuelMix(ctx context.Context, from, to time.Time) (Stats, error) {
	var mixes []market.FuelMix
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		dayMixes, err := s.carbon.FuelMixByDate(ctx, day)
		if err != nil {
			s.logger.Warn().Err(err).Str("date", day.Format("2006-01-02")).Msg("failed to fetch fuel mix for day")
			continue
		}
		mixes = append(mixes, dayMixes...)
	}
	s.logger.Info().Int("count", len(mixes)).Msg("fetched fuel mix readings")

	return s.save(ctx, SourceFuelMix, rangeMetadata(from, to), len(mixes), func() (storage.UpsertResult, error) {
		return s.store.UpsertFuelMix(ctx, mixes)
	})
}

// Backfill iterates the full date range for the requested sources. Sources
// default to all. Safe to re-run: writes are upserts on natural identity.
func (s *Service) Backfill(ctx context.Context, from, to time.Time, sources []string) map[string]Stats {
	if len(sources) == 0 {
		sources = AllSources
	}

	results := make(map[string]Stats, len(sources))
	for _, source := range sources {
		s.logger.Info().Str("source", source).
			Str("from", from.Format("2006-01-02")).
			Str("to", to.Format("2006-01-02")).
			Msg("backfilling source")

		var (
			stats Stats
			err   error
		)
		switch source {
		case SourceSystemPrices:
			stats, err = s.FetchSystemPrices(ctx, from, to)
		case SourceDayAheadPrice:
			stats, err = s.FetchDayAheadPrices(ctx, from, to)
		case SourceCarbon:
			stats, err = s.FetchCarbonIntensity(ctx, from, to)
		case SourceFuelMix:
			stats, err = s.FetchFuelMix(ctx, from, to)
		default:
			err = fmt.Errorf("unknown source %q", source)
		}

		if err != nil {
			s.logger.Error().Err(err).Str("source", source).Msg("backfill failed for source")
			results[source] = Stats{Error: err.Error()}
			continue
		}
		results[source] = stats
	}
	return results
}

// save wraps an upsert in the fetch log lifecycle. The log write is
// best-effort and never blocks the data write; a failed upsert is recorded
// as status=error before the failure propagates.
func (s *Service) save(ctx context.Context, fetchType string, metadata map[string]any, fetched int, upsert func() (storage.UpsertResult, error)) (Stats, error) {
	logID, err := s.store.StartFetchLog(ctx, fetchType, metadata)
	if err != nil {
		s.logger.Warn().Err(err).Str("fetch_type", fetchType).Msg("failed to start fetch log")
	}

	result, err := upsert()
	if err != nil {
		if logID != 0 {
			if logErr := s.store.CompleteFetchLog(ctx, logID, storage.FetchCompletion{
				Fetched:  fetched,
				Status:   storage.FetchStatusError,
				ErrorMsg: err.Error(),
			}); logErr != nil {
				s.logger.Warn().Err(logErr).Msg("failed to complete fetch log")
			}
		}
		return Stats{}, fmt.Errorf("save %s: %w", fetchType, err)
	}

	if logID != 0 {
		if logErr := s.store.CompleteFetchLog(ctx, logID, storage.FetchCompletion{
			Fetched:  fetched,
			Inserted: result.Inserted,
			Updated:  result.Updated,
			Status:   storage.FetchStatusSuccess,
		}); logErr != nil {
			s.logger.Warn().Err(logErr).Msg("failed to complete fetch log")
		}
	}

	return Stats{Fetched: fetched, Inserted: result.Inserted, Updated: result.Updated}, nil
}

func rangeMetadata(from, to time.Time) map[string]any {
	return map[string]any{
		"date_range": map[string]string{
			"from": from.Format("2006-01-02"),
			"to":   to.Format("2006-01-02"),
		},
	}
}
