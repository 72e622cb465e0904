package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"gridwatch/internal/market"
)

const (
	upsertSystemPriceSQL = `INSERT INTO system_prices (
        settlement_date,
        settlement_period,
        system_sell_price,
        system_buy_price,
        price,
        data_source,
        fetched_at
    ) VALUES ($1,$2,$3,$4,$5,$6,$7)
    ON CONFLICT (settlement_date, settlement_period) DO UPDATE
    SET system_sell_price = EXCLUDED.system_sell_price,
        system_buy_price  = EXCLUDED.system_buy_price,
        price             = EXCLUDED.price,
        data_source       = EXCLUDED.data_source,
        fetched_at        = EXCLUDED.fetched_at
    RETURNING (xmax = 0) AS inserted;`

	upsertDayAheadPriceSQL = `INSERT INTO day_ahead_prices (
        settlement_date,
        settlement_period,
        price,
        data_provider,
        data_source,
        fetched_at
    ) VALUES ($1,$2,$3,$4,$5,$6)
    ON CONFLICT (settlement_date, settlement_period, data_provider) DO UPDATE
    SET price       = EXCLUDED.price,
        data_source = EXCLUDED.data_source,
        fetched_at  = EXCLUDED.fetched_at
    RETURNING (xmax = 0) AS inserted;`

	upsertCarbonIntensitySQL = `INSERT INTO carbon_intensity (
        interval_start,
        interval_end,
        forecast_intensity,
        actual_intensity,
        intensity_index,
        data_source,
        fetched_at
    ) VALUES ($1,$2,$3,$4,$5,$6,$7)
    ON CONFLICT (interval_start) DO UPDATE
    SET interval_end       = EXCLUDED.interval_end,
        forecast_intensity = EXCLUDED.forecast_intensity,
        actual_intensity   = EXCLUDED.actual_intensity,
        intensity_index    = EXCLUDED.intensity_index,
        data_source        = EXCLUDED.data_source,
        fetched_at         = EXCLUDED.fetched_at
    RETURNING (xmax = 0) AS inserted;`

	upsertFuelMixSQL = `INSERT INTO fuel_mix (
        interval_start,
        interval_end,
        biomass, coal, gas, hydro, imports, nuclear, other, solar, wind,
        data_source,
        fetched_at
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
    ON CONFLICT (interval_start) DO UPDATE
    SET interval_end = EXCLUDED.interval_end,
        biomass = EXCLUDED.biomass,
        coal    = EXCLUDED.coal,
        gas     = EXCLUDED.gas,
        hydro   = EXCLUDED.hydro,
        imports = EXCLUDED.imports,
        nuclear = EXCLUDED.nuclear,
        other   = EXCLUDED.other,
        solar   = EXCLUDED.solar,
        wind    = EXCLUDED.wind,
        data_source = EXCLUDED.data_source,
        fetched_at  = EXCLUDED.fetched_at
    RETURNING (xmax = 0) AS inserted;`
)

// RecordStore defines the upsert operations for normalized market records.
// All writes are idempotent: re-running the same batch leaves row counts
// unchanged and flips inserts to updates.
type RecordStore interface {
	UpsertSystemPrices(ctx context.Context, prices []market.SystemPrice) (UpsertResult, error)
	UpsertDayAheadPrices(ctx context.Context, prices []market.DayAheadPrice) (UpsertResult, error)
	UpsertCarbonIntensity(ctx context.Context, readings []market.CarbonIntensity) (UpsertResult, error)
	UpsertFuelMix(ctx context.Context, mixes []market.FuelMix) (UpsertResult, error)
}

// UpsertSystemPrices writes system prices keyed on (date, period).
func (s *Store) UpsertSystemPrices(ctx context.Context, prices []market.SystemPrice) (UpsertResult, error) {
	pool, err := s.getPool()
	if err != nil {
		return UpsertResult{}, err
	}
	if len(prices) == 0 {
		return UpsertResult{}, nil
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, p := range prices {
		batch.Queue(upsertSystemPriceSQL,
			p.SettlementDate,
			p.SettlementPeriod,
			p.SystemSellPrice.String(),
			p.SystemBuyPrice.String(),
			p.Price.String(),
			p.DataSource,
			now,
		)
	}

	result, err := s.runUpsertBatch(ctx, pool, batch)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert system prices: %w", err)
	}
	return result, nil
}

// UpsertDayAheadPrices writes day-ahead prices keyed on (date, period, provider).
func (s *Store) UpsertDayAheadPrices(ctx context.Context, prices []market.DayAheadPrice) (UpsertResult, error) {
	pool, err := s.getPool()
	if err != nil {
		return UpsertResult{}, err
	}
	if len(prices) == 0 {
		return UpsertResult{}, nil
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, p := range prices {
		batch.Queue(upsertDayAheadPriceSQL,
			p.SettlementDate,
			p.SettlementPeriod,
			p.Price.String(),
			p.DataProvider,
			p.DataSource,
			now,
		)
	}

	result, err := s.runUpsertBatch(ctx, pool, batch)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert day-ahead prices: %w", err)
	}
	return result, nil
}

// UpsertCarbonIntensity writes intensity readings keyed on interval start.
func (s *Store) UpsertCarbonIntensity(ctx context.Context, readings []market.CarbonIntensity) (UpsertResult, error) {
	pool, err := s.getPool()
	if err != nil {
		return UpsertResult{}, err
	}
	if len(readings) == 0 {
		return UpsertResult{}, nil
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, r := range readings {
		var actual any
		if r.Actual != nil {
			actual = *r.Actual
		}
		batch.Queue(upsertCarbonIntensitySQL,
			r.IntervalStart,
			r.IntervalEnd,
			r.Forecast,
			actual,
			r.Index,
			r.DataSource,
			now,
		)
	}

	result, err := s.runUpsertBatch(ctx, pool, batch)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert carbon intensity: %w", err)
	}
	return result, nil
}

// UpsertFuelMix writes generation mixes keyed on interval start.
func (s *Store) UpsertFuelMix(ctx context.Context, mixes []market.FuelMix) (UpsertResult, error) {
	pool, err := s.getPool()
	if err != nil {
		return UpsertResult{}, err
	}
	if len(mixes) == 0 {
		return UpsertResult{}, nil
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, m := range mixes {
		batch.Queue(upsertFuelMixSQL,
			m.IntervalStart,
			m.IntervalEnd,
			m.Biomass, m.Coal, m.Gas, m.Hydro, m.Imports, m.Nuclear, m.Other, m.Solar, m.Wind,
			m.DataSource,
			now,
		)
	}

	result, err := s.runUpsertBatch(ctx, pool, batch)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert fuel mix: %w", err)
	}
	return result, nil
}

// runUpsertBatch executes a queued batch and tallies the insert/update split
// from the per-row `xmax = 0` flag. A failed row fails the whole batch so a
// partial write can never report success.
func (s *Store) runUpsertBatch(ctx context.Context, pool interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}, batch *pgx.Batch,
) (UpsertResult, error) {
	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	var tally UpsertResult
	for i := 0; i < batch.Len(); i++ {
		var inserted bool
		if err := results.QueryRow().Scan(&inserted); err != nil {
			return UpsertResult{}, err
		}
		if inserted {
			tally.Inserted++
		} else {
			tally.Updated++
		}
	}
	return tally, nil
}

var _ RecordStore = (*Store)(nil)
