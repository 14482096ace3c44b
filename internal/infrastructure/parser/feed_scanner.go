package parser

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"ChannelAnalyst/internal/domain"
	"ChannelAnalyst/internal/scanner"
)

// FeedScanner reads RSS, Atom and JSON feeds.
type FeedScanner struct {
	client *http.Client
	strip  *bluemonday.Policy
}

// NewFeedScanner wires an HTTP client used for every feed request.
func NewFeedScanner(client *http.Client) *FeedScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &FeedScanner{client: client, strip: bluemonday.StrictPolicy()}
}

// Name identifies the strategy inside the registry.
func (s *FeedScanner) Name() string {
	return "rss"
}

// Scan fetches every target feed and keeps items published at or after req.Since.
func (s *FeedScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Post, error) {
	if len(req.Targets) == 0 {
		return nil, fmt.Errorf("%w: no feeds provided for source %s", domain.ErrValidation, req.SourceName)
	}

	fp := gofeed.NewParser()
	fp.Client = s.client
	fp.UserAgent = "ChannelAnalyst/1.0"

	var results []domain.Post
	for _, target := range req.Targets {
		feed, err := fp.ParseURLWithContext(target.URL, ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: feed %s: %v", domain.ErrDependency, target.Name, err)
		}

		language := req.Language
		if language == "" {
			language = normalizeLanguage(feed.Language)
		}

		for _, item := range feed.Items {
			post, ok := s.toPost(item, language)
			if !ok {
				continue
			}
			if !req.Since.IsZero() && post.PublishedAt.Before(req.Since) {
				continue
			}
			results = append(results, post)
		}
	}
	return results, nil
}

func (s *FeedScanner) toPost(item *gofeed.Item, language string) (domain.Post, bool) {
	if item == nil || item.Link == "" {
		return domain.Post{}, false
	}

	body := item.Content
	if body == "" {
		body = item.Description
	}

	publishedAt := time.Now().UTC()
	switch {
	case item.PublishedParsed != nil:
		publishedAt = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		publishedAt = item.UpdatedParsed.UTC()
	}

	return domain.Post{
		SourceURL:   item.Link,
		Title:       s.plain(item.Title),
		Text:        s.plain(body),
		PublishedAt: publishedAt,
		Language:    language,
	}, true
}

func (s *FeedScanner) plain(fragment string) string {
	return strings.TrimSpace(html.UnescapeString(s.strip.Sanitize(fragment)))
}

// normalizeLanguage maps "en-US" style tags to "en".
func normalizeLanguage(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return tag
}
