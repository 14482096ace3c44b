package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ChannelAnalyst/internal/domain"
)

const defaultAPIBase = "https://api.telegram.org"

// Client performs Bot API calls.
type Client struct {
	base     string
	botToken string
	http     *http.Client
}

// NewClient builds a Bot API client. An empty base selects api.telegram.org.
func NewClient(base, botToken string, httpClient *http.Client) *Client {
	if base == "" {
		base = defaultAPIBase
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		base:     strings.TrimRight(base, "/"),
		botToken: botToken,
		http:     httpClient,
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.base, c.botToken, method)
}

func (c *Client) postForm(ctx context.Context, method string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, method, out)
}

func (c *Client) do(req *http.Request, method string, out any) error {
	if c.botToken == "" {
		return fmt.Errorf("%w: telegram bot token is empty", domain.ErrValidation)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrDependency, method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %v", domain.ErrDependency, method, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%w: %s: telegram error: %s", domain.ErrDependency, method, resp.Status)
	}
	if !envelope.OK {
		return fmt.Errorf("%w: %s: telegram error %d: %s", domain.ErrDependency, method, envelope.ErrorCode, envelope.Description)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}
