package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ChannelAnalyst/internal/domain"
	"ChannelAnalyst/internal/ports"
)

// Generator produces one report run.
type Generator interface {
	Generate(ctx context.Context, period domain.PeriodType) (domain.Outcome, error)
}

// Scheduler wires the cron driver with the report pipeline.
type Scheduler struct {
	driver    ports.Scheduler
	generator Generator
	specs     map[domain.PeriodType]string
	logger    *slog.Logger
}

// NewScheduler returns a helper to start/stop one recurring job per period.
// Periods with an empty cron expression are not scheduled.
func NewScheduler(driver ports.Scheduler, generator Generator, specs map[domain.PeriodType]string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		driver:    driver,
		generator: generator,
		specs:     specs,
		logger:    logger.With("component", "report-scheduler"),
	}
}

// Start registers every period with the driver and starts it.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.generator == nil {
		return nil
	}

	for _, period := range domain.Periods() {
		spec := s.specs[period]
		if spec == "" {
			continue
		}
		period := period
		job := func(trigger time.Time) {
			s.logger.Info("scheduled report triggered", "period", string(period), "at", trigger)
			if _, err := s.generator.Generate(ctx, period); err != nil {
				s.logger.Error("scheduled report failed", "period", string(period), "err", err)
			}
		}
		if err := s.driver.Schedule(string(period), spec, job); err != nil {
			return fmt.Errorf("register %s: %w", period, err)
		}
	}

	return s.driver.Start(ctx)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
