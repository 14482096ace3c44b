package scanner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ChannelAnalyst/internal/domain"
)

// Target describes a concrete endpoint provided by config: a channel preview or a feed.
type Target struct {
	Name string
	URL  string
}

// Request carries all parameters required to execute a scan.
type Request struct {
	// Since bounds how far back a scan walks. Zero means as far as the strategy allows.
	Since      time.Time
	SourceName string
	Language   string
	Targets    []Target
	Options    map[string]string
}

// Scanner captures a single history strategy (Telegram web preview, RSS, etc.).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.Post, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds a registry holding scanners.
func NewRegistry(scanners ...Scanner) *Registry {
	r := &Registry{scanners: map[string]Scanner{}}
	for _, s := range scanners {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("%w: scanner %s is not registered", domain.ErrValidation, name)
}

// Names lists registered strategies in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scanners))
	for name := range r.scanners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
