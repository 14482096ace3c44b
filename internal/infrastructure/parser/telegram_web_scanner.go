package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ChannelAnalyst/internal/domain"
	"ChannelAnalyst/internal/scanner"
)

const (
	telegramBaseURL = "https://t.me"
	defaultMaxPages = 20
)

// TelegramWebScanner walks the public t.me/s/<channel> preview backwards page by page.
type TelegramWebScanner struct {
	client   *http.Client
	maxPages int
}

// NewTelegramWebScanner wires an HTTP client; maxPages defaults to 20.
func NewTelegramWebScanner(client *http.Client) *TelegramWebScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &TelegramWebScanner{client: client, maxPages: defaultMaxPages}
}

// Name identifies the strategy inside the registry.
func (s *TelegramWebScanner) Name() string {
	return "telegram-web"
}

// Scan returns posts of every target channel published at or after req.Since.
func (s *TelegramWebScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Post, error) {
	if len(req.Targets) == 0 {
		return nil, fmt.Errorf("%w: no channels provided for source %s", domain.ErrValidation, req.SourceName)
	}

	maxPages := s.maxPages
	if v, ok := req.Options["maxPages"]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxPages = n
		}
	}

	results := make([]domain.Post, 0)
	seen := map[string]struct{}{}

	for _, target := range req.Targets {
		var before int64
		for page := 0; page < maxPages; page++ {
			pageURL, err := buildPageURL(target.URL, before)
			if err != nil {
				return nil, fmt.Errorf("channel %s: %w", target.Name, err)
			}

			doc, err := s.fetchDocument(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("channel %s: %w", target.Name, err)
			}

			posts, oldest := extractPosts(doc, req.Language)
			for _, post := range posts {
				if !req.Since.IsZero() && post.PublishedAt.Before(req.Since) {
					continue
				}
				if _, ok := seen[post.SourceURL]; ok {
					continue
				}
				seen[post.SourceURL] = struct{}{}
				results = append(results, post)
			}

			if len(posts) == 0 || oldest <= 1 {
				break
			}
			if !req.Since.IsZero() && posts[0].PublishedAt.Before(req.Since) {
				break
			}
			before = oldest
		}
	}

	return results, nil
}

func (s *TelegramWebScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "ChannelAnalyst/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request document: %v", domain.ErrDependency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: t.me returned %s", domain.ErrDependency, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// extractPosts returns the page's posts in page order (oldest first) and the smallest message id seen.
func extractPosts(doc *goquery.Document, language string) ([]domain.Post, int64) {
	var (
		posts  []domain.Post
		oldest int64
	)

	doc.Find(".tgme_widget_message[data-post]").Each(func(_ int, msg *goquery.Selection) {
		post, id, ok := parseMessage(msg, language)
		if id > 0 && (oldest == 0 || id < oldest) {
			oldest = id
		}
		if ok {
			posts = append(posts, post)
		}
	})

	return posts, oldest
}

func parseMessage(msg *goquery.Selection, language string) (domain.Post, int64, bool) {
	ref, _ := msg.Attr("data-post")
	slash := strings.LastIndexByte(ref, '/')
	if slash <= 0 {
		return domain.Post{}, 0, false
	}
	id, err := strconv.ParseInt(ref[slash+1:], 10, 64)
	if err != nil {
		return domain.Post{}, 0, false
	}

	body := msg.Find(".tgme_widget_message_text").First()
	body.Find("br").ReplaceWithHtml("\n")
	text := strings.TrimSpace(body.Text())
	if text == "" {
		return domain.Post{}, id, false
	}

	publishedAt := time.Now().UTC()
	if stamp, ok := msg.Find(".tgme_widget_message_date time").First().Attr("datetime"); ok {
		if parsed, err := time.Parse(time.RFC3339, stamp); err == nil {
			publishedAt = parsed.UTC()
		}
	}

	return domain.Post{
		SourceURL:   telegramBaseURL + "/" + ref,
		Text:        text,
		PublishedAt: publishedAt,
		Language:    language,
	}, id, true
}

func buildPageURL(base string, before int64) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid channel url %s: %w", base, err)
	}

	if before > 0 {
		query := parsed.Query()
		query.Set("before", strconv.FormatInt(before, 10))
		parsed.RawQuery = query.Encode()
	}
	return parsed.String(), nil
}
