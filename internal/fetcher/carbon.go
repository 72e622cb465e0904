package fetcher

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"gridwatch/internal/market"
)

// DefaultCarbonBaseURL is the public National Grid Carbon Intensity API.
const DefaultCarbonBaseURL = "https://api.carbonintensity.org.uk"

// rangeTimeLayout is the minute-precision UTC format the API expects in paths.
const rangeTimeLayout = "2006-01-02T15:04Z"

// CarbonOptions parameterise the carbon intensity client.
type CarbonOptions struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// Carbon fetches grid carbon intensity and generation fuel mix readings.
type Carbon struct {
	http *httpClient
	log  zerolog.Logger
}

// NewCarbon constructs a carbon intensity client.
func NewCarbon(opts CarbonOptions, logger zerolog.Logger) *Carbon {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultCarbonBaseURL
	}
	log := logger.With().Str("component", "carbon_client").Logger()
	return &Carbon{
		http: newHTTPClient(opts.BaseURL, opts.Timeout, opts.MaxRetries, log),
		log:  log,
	}
}

// Current returns the intensity reading for the present half hour.
func (c *Carbon) Current(ctx context.Context) (market.CarbonIntensity, error) {
	readings, err := c.parseIntensity(ctx, "/intensity")
	if err != nil {
		return market.CarbonIntensity{}, err
	}
	if len(readings) == 0 {
		return market.CarbonIntensity{}, market.ErrNoData
	}
	return readings[0], nil
}

// IntensityByDate fetches the half-hourly readings for one calendar day,
// sorted by interval start.
func (c *Carbon) IntensityByDate(ctx context.Context, date time.Time) ([]market.CarbonIntensity, error) {
	return c.parseIntensity(ctx, "/intensity/date/"+date.Format(dateLayout))
}

// IntensityRange fetches readings between two instants, inclusive.
func (c *Carbon) IntensityRange(ctx context.Context, from, to time.Time) ([]market.CarbonIntensity, error) {
	path := fmt.Sprintf("/intensity/%s/%s", from.UTC().Format(rangeTimeLayout), to.UTC().Format(rangeTimeLayout))
	return c.parseIntensity(ctx, path)
}

func (c *Carbon) parseIntensity(ctx context.Context, path string) ([]market.CarbonIntensity, error) {
	items, err := c.http.getData(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	readings := make([]market.CarbonIntensity, 0, len(items))
	for _, item := range items {
		reading, err := market.ParseCarbonIntensity(item)
		if err != nil {
			c.log.Warn().Err(err).RawJSON("item", item).Msg("dropping unparseable carbon intensity reading")
			continue
		}
		readings = append(readings, reading)
	}

	slices.SortFunc(readings, func(a, b market.CarbonIntensity) int {
		return a.IntervalStart.Compare(b.IntervalStart)
	})
	return readings, nil
}

// FuelMixByDate fetches the half-hourly generation mix for one calendar day.
func (c *Carbon) FuelMixByDate(ctx context.Context, date time.Time) ([]market.FuelMix, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24*time.Hour - time.Minute)

	path := fmt.Sprintf("/generation/%s/%s", dayStart.Format(rangeTimeLayout), dayEnd.Format(rangeTimeLayout))
	items, err := c.http.getData(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	mixes := make([]market.FuelMix, 0, len(items))
	for _, item := range items {
		mix, err := market.ParseFuelMix(item)
		if err != nil {
			c.log.Warn().Err(err).RawJSON("item", item).Msg("dropping unparseable fuel mix reading")
			continue
		}
		mixes = append(mixes, mix)
	}

	slices.SortFunc(mixes, func(a, b market.FuelMix) int {
		return a.IntervalStart.Compare(b.IntervalStart)
	})
	return mixes, nil
}

// CurrentFuelMix returns the generation mix for the present half hour.
func (c *Carbon) CurrentFuelMix(ctx context.Context) (market.FuelMix, error) {
	items, err := c.http.getData(ctx, "/generation", nil)
	if err != nil {
		return market.FuelMix{}, err
	}
	if len(items) == 0 {
		return market.FuelMix{}, market.ErrNoData
	}
	return market.ParseFuelMix(items[0])
}

// IntensitySummary is the daily effective-intensity aggregate.
type IntensitySummary struct {
	Average    float64
	Min        int
	Max        int
	NumPeriods int
}

// AverageIntensity computes avg/min/max effective intensity for a date.
func (c *Carbon) AverageIntensity(ctx context.Context, date time.Time) (IntensitySummary, error) {
	readings, err := c.IntensityByDate(ctx, date)
	if err != nil {
		return IntensitySummary{}, err
	}
	if len(readings) == 0 {
		return IntensitySummary{}, market.ErrNoData
	}

	sum := 0
	minVal := readings[0].Effective()
	maxVal := minVal
	for _, r := range readings {
		v := r.Effective()
		sum += v
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	return IntensitySummary{
		Average:    math.Round(float64(sum)/float64(len(readings))*10) / 10,
		Min:        minVal,
		Max:        maxVal,
		NumPeriods: len(readings),
	}, nil
}

// HealthCheck probes the current-intensity endpoint. Never errors.
func (c *Carbon) HealthCheck(ctx context.Context) bool {
	if _, err := c.http.getData(ctx, "/intensity", nil); err != nil {
		c.log.Warn().Err(err).Msg("carbon intensity health check failed")
		return false
	}
	return true
}

var _ CarbonSource = (*Carbon)(nil)
