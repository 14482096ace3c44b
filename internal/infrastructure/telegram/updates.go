package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ChannelAnalyst/internal/domain"
	"ChannelAnalyst/internal/ports"
)

const retryDelay = 5 * time.Second

type update struct {
	UpdateID    int64    `json:"update_id"`
	ChannelPost *message `json:"channel_post"`
}

type message struct {
	MessageID int64  `json:"message_id"`
	Date      int64  `json:"date"`
	Text      string `json:"text"`
	Caption   string `json:"caption"`
	Chat      chat   `json:"chat"`
}

type chat struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Listener long-polls getUpdates and forwards posts of one channel.
type Listener struct {
	client    *Client
	channelID int64
	username  string
	timeout   time.Duration
	logger    *slog.Logger
	offset    int64
}

var _ ports.PostSource = (*Listener)(nil)

// NewListener watches channelID. username, when known, builds public post links.
func NewListener(client *Client, channelID int64, username string, timeout time.Duration, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		client:    client,
		channelID: channelID,
		username:  strings.TrimPrefix(username, "@"),
		timeout:   timeout,
		logger:    logger.With("component", "telegram-listener"),
	}
}

// Listen blocks until ctx is done. Poll failures are logged and retried.
func (l *Listener) Listen(ctx context.Context, handle func(context.Context, domain.Post)) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		updates, err := l.poll(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			l.logger.Warn("get updates failed", "err", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retryDelay):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= l.offset {
				l.offset = u.UpdateID + 1
			}
			if post, ok := l.toPost(u); ok {
				handle(ctx, post)
			}
		}
	}
}

func (l *Listener) poll(ctx context.Context) ([]update, error) {
	allowed, _ := json.Marshal([]string{"channel_post"})

	form := url.Values{}
	form.Set("offset", strconv.FormatInt(l.offset, 10))
	form.Set("timeout", strconv.Itoa(int(l.timeout/time.Second)))
	form.Set("allowed_updates", string(allowed))

	var updates []update
	if err := l.client.postForm(ctx, "getUpdates", form, &updates); err != nil {
		return nil, fmt.Errorf("poll: %w", err)
	}
	return updates, nil
}

func (l *Listener) toPost(u update) (domain.Post, bool) {
	m := u.ChannelPost
	if m == nil || m.Chat.ID != l.channelID {
		return domain.Post{}, false
	}

	text := m.Text
	if text == "" {
		text = m.Caption
	}

	username := m.Chat.Username
	if username == "" {
		username = l.username
	}

	return domain.Post{
		SourceURL:   PostURL(username, m.Chat.ID, m.MessageID),
		Text:        text,
		PublishedAt: time.Unix(m.Date, 0).UTC(),
		ChannelID:   m.Chat.ID,
	}, true
}

// PostURL links to a channel message: public by username, or the private t.me/c form.
func PostURL(username string, chatID, messageID int64) string {
	if username != "" {
		return fmt.Sprintf("https://t.me/%s/%d", username, messageID)
	}
	internal := strings.TrimPrefix(strconv.FormatInt(chatID, 10), "-100")
	internal = strings.TrimPrefix(internal, "-")
	return fmt.Sprintf("https://t.me/c/%s/%d", internal, messageID)
}
