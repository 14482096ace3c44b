package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChannelAnalyst/internal/domain"
)

type stubScanner string

func (s stubScanner) Name() string { return string(s) }

func (s stubScanner) Scan(context.Context, Request) ([]domain.Post, error) { return nil, nil }

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(stubScanner("rss"), stubScanner("telegram-web"))

	got, err := reg.Resolve("rss")
	require.NoError(t, err)
	assert.Equal(t, "rss", got.Name())

	_, err = reg.Resolve("mtproto")
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Equal(t, []string{"rss", "telegram-web"}, reg.Names())
}
