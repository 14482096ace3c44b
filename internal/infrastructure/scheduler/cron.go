package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ChannelAnalyst/internal/ports"
	"ChannelAnalyst/pkg/logger"
)

// CronScheduler runs named jobs on standard five-field cron expressions.
type CronScheduler struct {
	cron *cron.Cron
	loc  *time.Location
	log  *slog.Logger

	mu        sync.Mutex
	entries   map[string]cron.EntryID
	schedules map[string]cron.Schedule
	started   bool
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler evaluates expressions in loc. Overlapping runs of one job are skipped.
func NewCronScheduler(loc *time.Location, log *slog.Logger) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	cronLog := cron.PrintfLogger(logger.New("cron", log))

	return &CronScheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		loc:       loc,
		log:       log.With("component", "scheduler"),
		entries:   map[string]cron.EntryID{},
		schedules: map[string]cron.Schedule{},
	}
}

// Schedule registers job under name, replacing an earlier job with the same name.
func (c *CronScheduler) Schedule(name, spec string, job func(time.Time)) error {
	if job == nil {
		return fmt.Errorf("job %s is nil", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}

	if prev, ok := c.entries[name]; ok {
		c.cron.Remove(prev)
	}
	c.entries[name] = c.cron.Schedule(sched, cron.FuncJob(func() { job(time.Now().In(c.loc)) }))
	c.schedules[name] = sched

	c.log.Info("job scheduled", "job", name, "spec", spec, "next", sched.Next(time.Now().In(c.loc)))
	return nil
}

// Start launches the cron loop; it stops when ctx is done or Stop is called.
func (c *CronScheduler) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	c.cron.Start()
	go func() {
		<-ctx.Done()
		c.cron.Stop()
	}()
	return nil
}

// Stop halts the scheduler and waits for running jobs until ctx expires.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	c.mu.Unlock()

	select {
	case <-c.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop scheduler: %w", ctx.Err())
	}
}

// Next reports the next activation of name, if scheduled.
func (c *CronScheduler) Next(name string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sched, ok := c.schedules[name]
	if !ok {
		return time.Time{}, false
	}
	return sched.Next(time.Now().In(c.loc)), true
}
