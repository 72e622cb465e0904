package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridwatch/internal/config"
	"gridwatch/internal/market"
	"gridwatch/internal/service"
	"gridwatch/internal/storage"
)

type stubPriceSource struct{}

func (stubPriceSource) SystemPrices(context.Context, time.Time) ([]market.SystemPrice, error) {
	return nil, nil
}

func (stubPriceSource) SystemPricesRange(context.Context, time.Time, time.Time) ([]market.SystemPrice, error) {
	return nil, nil
}

func (stubPriceSource) MarketIndexPrices(context.Context, time.Time, time.Time) ([]market.DayAheadPrice, error) {
	return nil, nil
}

func (stubPriceSource) MarketIndexPricesChunked(context.Context, time.Time, time.Time) ([]market.DayAheadPrice, error) {
	return nil, nil
}

func (stubPriceSource) HealthCheck(context.Context) bool { return true }

type stubCarbonSource struct{}

func (stubCarbonSource) IntensityByDate(context.Context, time.Time) ([]market.CarbonIntensity, error) {
	return nil, nil
}

func (stubCarbonSource) IntensityRange(context.Context, time.Time, time.Time) ([]market.CarbonIntensity, error) {
	return nil, nil
}

func (stubCarbonSource) FuelMixByDate(context.Context, time.Time) ([]market.FuelMix, error) {
	return nil, nil
}

func (stubCarbonSource) HealthCheck(context.Context) bool { return true }

type stubStore struct{}

func (stubStore) UpsertSystemPrices(context.Context, []market.SystemPrice) (storage.UpsertResult, error) {
	return storage.UpsertResult{}, nil
}

func (stubStore) UpsertDayAheadPrices(context.Context, []market.DayAheadPrice) (storage.UpsertResult, error) {
	return storage.UpsertResult{}, nil
}

func (stubStore) UpsertCarbonIntensity(context.Context, []market.CarbonIntensity) (storage.UpsertResult, error) {
	return storage.UpsertResult{}, nil
}

func (stubStore) UpsertFuelMix(context.Context, []market.FuelMix) (storage.UpsertResult, error) {
	return storage.UpsertResult{}, nil
}

func (stubStore) StartFetchLog(context.Context, string, map[string]any) (int64, error) {
	return 1, nil
}

func (stubStore) CompleteFetchLog(context.Context, int64, storage.FetchCompletion) error {
	return nil
}

func testScheduler(cfg config.SchedulerConfig) *Scheduler {
	svc := service.New(stubPriceSource{}, stubCarbonSource{}, stubStore{}, zerolog.Nop())
	return New(svc, cfg, 2, zerolog.Nop())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	s := testScheduler(config.SchedulerConfig{
		SystemPriceInterval: time.Hour,
		DayAheadInterval:    time.Hour,
		CarbonInterval:      time.Hour,
		MaintenanceCron:     "0 3 * * *",
		MaintenanceDaysBack: 7,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after context cancel")
	}
}

func TestRunRejectsBadMaintenanceCron(t *testing.T) {
	s := testScheduler(config.SchedulerConfig{
		SystemPriceInterval: time.Hour,
		DayAheadInterval:    time.Hour,
		CarbonInterval:      time.Hour,
		MaintenanceCron:     "not a cron spec",
		MaintenanceDaysBack: 7,
	})

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maintenance")
}

func TestEverySpec(t *testing.T) {
	assert.Equal(t, "@every 30m0s", everySpec(30*time.Minute))
	assert.Equal(t, "@every 1h0m0s", everySpec(time.Hour))
}
