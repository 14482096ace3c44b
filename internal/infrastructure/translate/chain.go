package translate

import (
	"context"
	"log/slog"
	"strings"

	"ChannelAnalyst/internal/ports"
)

// Chain tries each provider in order and keeps the original text when all of them fail.
type Chain struct {
	providers []ports.Translator
	logger    *slog.Logger
}

// NewChain skips nil providers.
func NewChain(logger *slog.Logger, providers ...ports.Translator) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chain{logger: logger.With("component", "translate")}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

// Len reports how many providers are wired.
func (c *Chain) Len() int {
	return len(c.providers)
}

// Translate returns the first successful translation and true, or text and false.
func (c *Chain) Translate(ctx context.Context, text, from, to string) (string, bool) {
	if strings.TrimSpace(text) == "" || strings.EqualFold(from, to) {
		return text, false
	}

	for i, p := range c.providers {
		out, err := p.Translate(ctx, text, from, to)
		if err == nil {
			return out, true
		}
		c.logger.Warn("translation provider failed", "provider", i, "from", from, "to", to, "err", err)
		if ctx.Err() != nil {
			break
		}
	}
	return text, false
}
