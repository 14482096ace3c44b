package telegram

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"ChannelAnalyst/internal/ports"
)

// MessageLimit is the longest text sendMessage accepts.
const MessageLimit = 4096

// Notifier delivers reports to Telegram channels via the bot API.
type Notifier struct {
	client  *Client
	limiter *rate.Limiter
	now     func() time.Time
}

var _ ports.Sender = (*Notifier)(nil)

// NewNotifier paces sends to at most one per interval. Zero disables pacing.
func NewNotifier(client *Client, interval time.Duration) *Notifier {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Notifier{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
}

// SendText posts text to channelID; text over MessageLimit goes out as a .txt document.
func (n *Notifier) SendText(ctx context.Context, channelID int64, text string) error {
	if n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait send slot: %w", err)
	}

	if utf8.RuneCountInString(text) > MessageLimit {
		return n.sendDocument(ctx, channelID, text)
	}
	return n.sendMessage(ctx, channelID, text)
}

func (n *Notifier) sendMessage(ctx context.Context, channelID int64, text string) error {
	form := url.Values{}
	form.Set("chat_id", strconv.FormatInt(channelID, 10))
	// Reports are plain text; every markup character is escaped so post text survives verbatim.
	form.Set("text", html.EscapeString(text))
	form.Set("parse_mode", "HTML")
	form.Set("disable_web_page_preview", "true")

	if err := n.client.postForm(ctx, "sendMessage", form, nil); err != nil {
		return fmt.Errorf("send message to %d: %w", channelID, err)
	}
	return nil
}

func (n *Notifier) sendDocument(ctx context.Context, channelID int64, text string) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("chat_id", strconv.FormatInt(channelID, 10)); err != nil {
		return fmt.Errorf("write chat_id: %w", err)
	}
	name := fmt.Sprintf("report_%s.txt", n.now().UTC().Format("20060102_150405"))
	part, err := mw.CreateFormFile("document", name)
	if err != nil {
		return fmt.Errorf("create document part: %w", err)
	}
	if _, err := part.Write([]byte(text)); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.client.endpoint("sendDocument"), &body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	if err := n.client.do(req, "sendDocument", nil); err != nil {
		return fmt.Errorf("send document to %d: %w", channelID, err)
	}
	return nil
}
