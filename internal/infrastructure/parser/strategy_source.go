package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"ChannelAnalyst/internal/config"
	"ChannelAnalyst/internal/domain"
	"ChannelAnalyst/internal/ports"
	"ChannelAnalyst/internal/scanner"
)

// StrategySource implements HistorySource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sources  []config.SourceConfig
	logger   *slog.Logger
	now      func() time.Time
}

var _ ports.HistorySource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sources:  sources,
		logger:   log,
		now:      time.Now,
	}
}

// FetchHistory iterates over configured sources and executes their scanners.
func (s *StrategySource) FetchHistory(ctx context.Context) ([]domain.Post, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch history", "sources", len(s.sources))

	var aggregated []domain.Post
	for _, src := range s.sources {
		s.debug("process source", "source", src.Name, "scanner", src.Scanner, "targets", len(src.Targets))
		strategy, err := s.registry.Resolve(src.Scanner)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}

		req := scanner.Request{
			Since:      s.since(src.Options),
			SourceName: src.Name,
			Language:   src.Language,
			Options:    src.Options,
			Targets:    toScannerTargets(src.Targets),
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("scan source %s: %w", src.Name, err)
		}

		s.debug("source produced posts", "source", src.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	s.debug("strategy source done", "total_posts", len(aggregated))
	return aggregated, nil
}

// since honours the lookbackDays option; without it scans are unbounded.
func (s *StrategySource) since(options map[string]string) time.Time {
	days, err := strconv.Atoi(options["lookbackDays"])
	if err != nil || days <= 0 {
		return time.Time{}
	}
	return s.now().UTC().AddDate(0, 0, -days)
}

func toScannerTargets(cfg []config.TargetConfig) []scanner.Target {
	targets := make([]scanner.Target, 0, len(cfg))
	for _, t := range cfg {
		targets = append(targets, scanner.Target{
			Name: t.Name,
			URL:  t.URL,
		})
	}
	return targets
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
