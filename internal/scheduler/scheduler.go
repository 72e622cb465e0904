// Package scheduler runs the recurring fetch jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"gridwatch/internal/config"
	"gridwatch/internal/service"
	"gridwatch/internal/settlement"
)

// Scheduler wires the orchestrator's fetches onto recurring schedules and
// keeps them running until the context is cancelled.
type Scheduler struct {
	svc    *service.Service
	cfg    config.SchedulerConfig
	days   int
	logger zerolog.Logger
	cron   *cron.Cron
}

// New builds a scheduler for the configured intervals. daysBack is the
// trailing window each recurring fetch covers.
func New(svc *service.Service, cfg config.SchedulerConfig, daysBack int, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		svc:    svc,
		cfg:    cfg,
		days:   daysBack,
		logger: logger.With().Str("component", "scheduler").Logger(),
		cron:   cron.New(cron.WithLocation(settlement.Location())),
	}
}

// Run registers all jobs, triggers an initial fetch so a fresh deployment
// has data immediately, then blocks until ctx is cancelled. Returns after
// any in-flight job finishes.
func (s *Scheduler) Run(ctx context.Context) error {
	jobs := []struct {
		name string
		spec string
		run  func()
	}{
		{
			name: "system_prices",
			spec: everySpec(s.cfg.SystemPriceInterval),
			run: func() {
				s.report(s.svc.FetchSources(ctx, []string{service.SourceSystemPrices}, s.days))
			},
		},
		{
			name: "day_ahead_prices",
			spec: everySpec(s.cfg.DayAheadInterval),
			run: func() {
				s.report(s.svc.FetchSources(ctx, []string{service.SourceDayAheadPrice}, s.days))
			},
		},
		{
			name: "carbon",
			spec: everySpec(s.cfg.CarbonInterval),
			run: func() {
				s.report(s.svc.FetchSources(ctx, []string{service.SourceCarbon, service.SourceFuelMix}, s.days))
			},
		},
		{
			name: "maintenance",
			spec: s.cfg.MaintenanceCron,
			run:  func() { s.runMaintenance(ctx) },
		},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, func() {
			s.logger.Info().Str("job", job.name).Msg("running scheduled job")
			job.run()
		}); err != nil {
			return fmt.Errorf("register %s job: %w", job.name, err)
		}
		s.logger.Info().Str("job", job.name).Str("schedule", job.spec).Msg("registered job")
	}

	s.logger.Info().Int("days_back", s.days).Msg("scheduler started, running initial fetch")
	s.report(s.svc.FetchAll(ctx, s.days))

	s.cron.Start()
	<-ctx.Done()

	s.logger.Info().Msg("scheduler stopping")
	<-s.cron.Stop().Done()
	return ctx.Err()
}

// runMaintenance re-fetches the trailing maintenance window to pick up
// late corrections, chiefly settled system prices replacing provisional
// values and carbon actuals replacing forecasts.
func (s *Scheduler) runMaintenance(ctx context.Context) {
	to := settlement.Today()
	from := to.AddDate(0, 0, -s.cfg.MaintenanceDaysBack)
	s.report(s.svc.Backfill(ctx, from, to, nil))
}

func (s *Scheduler) report(results map[string]service.Stats) {
	for source, stats := range results {
		event := s.logger.Info()
		if stats.Error != "" {
			event = s.logger.Error().Str("error", stats.Error)
		}
		event.Str("source", source).
			Int("fetched", stats.Fetched).
			Int("inserted", stats.Inserted).
			Int("updated", stats.Updated).
			Msg("job result")
	}
}

// everySpec renders a duration as a cron @every schedule. Overlapping runs
// are tolerated: every write is an upsert on natural identity.
func everySpec(interval time.Duration) string {
	return "@every " + interval.String()
}
