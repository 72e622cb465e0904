package fetcher

import (
	"context"
	"time"

	"gridwatch/internal/market"
)

// SourceClient is defined in client.go; these interfaces are the seams the
// orchestrator depends on, one per upstream.

// PriceSource retrieves settlement and day-ahead prices from Elexon.
type PriceSource interface {
	SourceClient
	SystemPrices(ctx context.Context, date time.Time) ([]market.SystemPrice, error)
	SystemPricesRange(ctx context.Context, from, to time.Time) ([]market.SystemPrice, error)
	MarketIndexPrices(ctx context.Context, from, to time.Time) ([]market.DayAheadPrice, error)
	MarketIndexPricesChunked(ctx context.Context, from, to time.Time) ([]market.DayAheadPrice, error)
}

// CarbonSource retrieves carbon intensity and generation fuel mix readings.
type CarbonSource interface {
	SourceClient
	IntensityByDate(ctx context.Context, date time.Time) ([]market.CarbonIntensity, error)
	IntensityRange(ctx context.Context, from, to time.Time) ([]market.CarbonIntensity, error)
	FuelMixByDate(ctx context.Context, date time.Time) ([]market.FuelMix, error)
}
