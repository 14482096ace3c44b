package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ChannelAnalyst/internal/analysis"
	"ChannelAnalyst/internal/domain"
	"ChannelAnalyst/internal/metrics"
	"ChannelAnalyst/internal/ports"
	"ChannelAnalyst/internal/report"
)

// IngestDeps wires the ingestion use case.
type IngestDeps struct {
	Content ports.ContentStore
	History ports.HistorySource
	Profile analysis.Profile
	// Filter enables the topical ingestion filter.
	Filter       bool
	TitleChars   int
	ContentChars int
	Language     string
	StoreTimeout time.Duration
	Now          func() time.Time
	Logger       *slog.Logger
}

// Ingestor validates incoming posts and stores them once.
type Ingestor struct {
	content      ports.ContentStore
	history      ports.HistorySource
	filter       *analysis.Filter
	titleChars   int
	contentChars int
	language     string
	storeTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// NewIngestor constructs the ingestion use case.
func NewIngestor(deps IngestDeps) *Ingestor {
	in := &Ingestor{
		content:      deps.Content,
		history:      deps.History,
		titleChars:   deps.TitleChars,
		contentChars: deps.ContentChars,
		language:     deps.Language,
		storeTimeout: deps.StoreTimeout,
		now:          deps.Now,
		logger:       deps.Logger,
	}
	if deps.Filter {
		in.filter = analysis.NewFilter(deps.Profile.Normalize())
	}
	if in.titleChars <= 0 {
		in.titleChars = 255
	}
	if in.contentChars <= 0 {
		in.contentChars = 10000
	}
	if in.language == "" {
		in.language = "ru"
	}
	if in.storeTimeout <= 0 {
		in.storeTimeout = defaultCallTimeout
	}
	if in.now == nil {
		in.now = time.Now
	}
	if in.logger == nil {
		in.logger = slog.Default()
	}
	in.logger = in.logger.With("component", "ingest")
	return in
}

// Ingest stores post unless it is empty, off-topic or already known.
func (in *Ingestor) Ingest(ctx context.Context, post domain.Post) (domain.IngestResult, error) {
	res, err := in.ingest(ctx, post)
	metrics.RecordIngest(string(res.Status))
	return res, err
}

func (in *Ingestor) ingest(ctx context.Context, post domain.Post) (domain.IngestResult, error) {
	res := domain.IngestResult{URL: post.SourceURL}

	text := strings.TrimSpace(post.Text)
	if text == "" && strings.TrimSpace(post.Title) == "" {
		res.Status = domain.IngestRejected
		return res, nil
	}
	if post.SourceURL == "" {
		res.Status = domain.IngestRejected
		return res, fmt.Errorf("%w: post without source url", domain.ErrValidation)
	}

	item := in.toItem(post)
	if in.filter != nil && !in.filter.Accept(filterText(post)) {
		in.logger.Debug("post filtered out", "url", post.SourceURL)
		res.Status = domain.IngestRejected
		return res, nil
	}

	if in.known(ctx, post.SourceURL) {
		res.Status = domain.IngestDuplicate
		return res, nil
	}

	storeCtx, cancel := context.WithTimeout(ctx, in.storeTimeout)
	defer cancel()

	id, err := in.content.InsertItem(storeCtx, item)
	switch {
	case errors.Is(err, domain.ErrDuplicate):
		res.Status = domain.IngestDuplicate
		return res, nil
	case err != nil:
		res.Status = domain.IngestFailed
		in.logger.Error("store post failed", "url", post.SourceURL, "err", err)
		return res, fmt.Errorf("store post: %w", err)
	}

	res.Status = domain.IngestStored
	res.ID = id
	in.logger.Info("post stored", "url", post.SourceURL, "id", id)
	return res, nil
}

// known fails open: a lookup error counts as "not seen yet" and the insert conflict guard decides.
func (in *Ingestor) known(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, in.storeTimeout)
	defer cancel()

	exists, err := in.content.ExistsByURL(ctx, url)
	if err != nil {
		in.logger.Warn("duplicate check failed, continuing", "url", url, "err", err)
		return false
	}
	return exists
}

func (in *Ingestor) toItem(post domain.Post) domain.ContentItem {
	text := strings.TrimSpace(post.Text)

	title := strings.TrimSpace(post.Title)
	if title == "" {
		title = text
		if i := strings.IndexByte(title, '\n'); i >= 0 {
			title = strings.TrimSpace(title[:i])
		}
	}

	published := post.PublishedAt
	if published.IsZero() {
		published = in.now()
	}

	language := post.Language
	if language == "" {
		language = in.language
	}

	return domain.ContentItem{
		SourceURL:       post.SourceURL,
		Title:           report.Clip(title, in.titleChars),
		Content:         report.Clip(text, in.contentChars),
		PublicationTime: published,
		ChannelID:       post.ChannelID,
		Language:        language,
	}
}

// filterText is what the topical filter sees: an explicit title followed by the body.
func filterText(post domain.Post) string {
	text := strings.TrimSpace(post.Text)
	if title := strings.TrimSpace(post.Title); title != "" {
		return title + "\n" + text
	}
	return text
}

// Handle adapts Ingest to the PostSource callback.
func (in *Ingestor) Handle(ctx context.Context, post domain.Post) {
	if _, err := in.Ingest(ctx, post); err != nil {
		in.logger.Warn("ingest failed", "url", post.SourceURL, "err", err)
	}
}

// Backfill pulls history from the configured sources and ingests each post.
func (in *Ingestor) Backfill(ctx context.Context) (domain.BackfillResult, error) {
	var result domain.BackfillResult
	if in.history == nil {
		return result, fmt.Errorf("%w: no history sources configured", domain.ErrValidation)
	}

	posts, err := in.history.FetchHistory(ctx)
	if err != nil {
		return result, fmt.Errorf("fetch history: %w", err)
	}

	for _, post := range posts {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Seen++

		res, err := in.Ingest(ctx, post)
		switch res.Status {
		case domain.IngestStored:
			result.Stored++
		case domain.IngestDuplicate:
			result.Duplicates++
		case domain.IngestRejected:
			result.Rejected++
		default:
			result.Failed++
		}
		if err != nil && res.Status != domain.IngestFailed {
			in.logger.Debug("post skipped", "url", post.SourceURL, "err", err)
		}
	}

	in.logger.Info("backfill finished",
		"seen", result.Seen,
		"stored", result.Stored,
		"duplicates", result.Duplicates,
		"rejected", result.Rejected,
		"failed", result.Failed,
	)
	return result, nil
}
