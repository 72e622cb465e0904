package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"gridwatch/internal/config"
	"gridwatch/internal/fetcher"
	"gridwatch/internal/scheduler"
	"gridwatch/internal/service"
	"gridwatch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newClients() (*fetcher.Elexon, *fetcher.Carbon) {
	elexon := fetcher.NewElexon(fetcher.ElexonOptions{
		BaseURL:          a.Config.Elexon.BaseURL,
		Timeout:          a.Config.Elexon.RequestTimeout,
		MaxRetries:       a.Config.Elexon.MaxRetries,
		DataProvider:     a.Config.Elexon.DataProvider,
		ChunkDays:        a.Config.Elexon.ChunkDays,
		RangeConcurrency: a.Config.Elexon.RangeConcurrency,
	}, a.Logger)

	carbon := fetcher.NewCarbon(fetcher.CarbonOptions{
		BaseURL:    a.Config.Carbon.BaseURL,
		Timeout:    a.Config.Carbon.RequestTimeout,
		MaxRetries: a.Config.Carbon.MaxRetries,
	}, a.Logger)

	return elexon, carbon
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	if a.Config.Database.AutoMigrate {
		if err := storage.Migrate(a.Config.Database); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newService(store *storage.Store) *service.Service {
	elexon, carbon := a.newClients()
	return service.New(elexon, carbon, store, a.Logger)
}

// Run executes the long-running scheduled collector.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	sched := scheduler.New(a.newService(store), a.Config.Scheduler, a.Config.Fetch.DaysBack, a.Logger)

	a.Logger.Info().Msg("starting collector")
	err = sched.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("collector terminated with error")
		return err
	}

	a.Logger.Info().Msg("collector stopped")
	return nil
}

// FetchOptions configure a one-shot fetch.
type FetchOptions struct {
	Sources  []string
	DaysBack int
}

// BackfillOptions configure the backfill job.
type BackfillOptions struct {
	From    time.Time
	To      time.Time
	Sources []string
}

// ExportOptions hold parameters for exporting stored system prices.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
