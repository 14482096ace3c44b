package ports

import (
	"context"
	"time"

	"ChannelAnalyst/internal/domain"
)

// ContentStore persists ingested posts.
type ContentStore interface {
	InsertItem(ctx context.Context, item domain.ContentItem) (int64, error)
	ExistsByURL(ctx context.Context, url string) (bool, error)
	QueryItemsByWindow(ctx context.Context, window domain.Window, onlyUnanalyzed bool) ([]domain.ContentItem, error)
	MarkAnalyzed(ctx context.Context, ids []int64) error
	// CountCorroborating counts distinct other sources whose content contains statement.
	CountCorroborating(ctx context.Context, statement, excludeURL string) (int, error)
}

// ReportStore persists generated reports.
type ReportStore interface {
	InsertReport(ctx context.Context, report domain.Report) (int64, error)
	ExistsByDateAndContent(ctx context.Context, date time.Time, content string) (bool, error)
	MarkSent(ctx context.Context, id int64) error
}

// Sender delivers text to a channel.
type Sender interface {
	SendText(ctx context.Context, channelID int64, text string) error
}

// Translator converts text between languages.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// PostSource streams live posts into handle until ctx is done.
type PostSource interface {
	Listen(ctx context.Context, handle func(context.Context, domain.Post)) error
}

// HistorySource pulls past posts for backfill.
type HistorySource interface {
	FetchHistory(ctx context.Context) ([]domain.Post, error)
}

// Scheduler controls when jobs execute.
type Scheduler interface {
	Schedule(name, spec string, job func(time.Time)) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
