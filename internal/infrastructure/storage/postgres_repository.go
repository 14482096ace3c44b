package storage

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ChannelAnalyst/internal/domain"
	"ChannelAnalyst/internal/ports"
)

const (
	contentTable = "content_items"
	reportTable  = "generated_reports"
)

//go:embed schema.sql
var schemaSQL string

var contentColumns = []string{
	"id", "source_url", "title", "content", "publication_time", "channel_id", "language", "is_analyzed",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// DB is the subset of pgxpool.Pool the repository relies on.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresRepository persists content items and generated reports into Postgres.
type PostgresRepository struct {
	db DB
	sq squirrel.StatementBuilderType
}

var (
	_ ports.ContentStore = (*PostgresRepository)(nil)
	_ ports.ReportStore  = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a pgx pool (or anything shaped like one).
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
		sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// OpenPool connects to dsn and verifies the connection.
func OpenPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping database: %v", domain.ErrDependency, err)
	}
	return pool, nil
}

// Migrate creates the tables and indexes when they are missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Ping reports whether the database answers.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// InsertItem stores a new content item. A row with the same source_url yields domain.ErrDuplicate.
func (r *PostgresRepository) InsertItem(ctx context.Context, item domain.ContentItem) (int64, error) {
	query, args, err := r.sq.Insert(contentTable).
		Columns("source_url", "title", "content", "publication_time", "channel_id", "language", "is_analyzed").
		Values(item.SourceURL, item.Title, item.Content, item.PublicationTime.UTC(), item.ChannelID, item.Language, item.IsAnalyzed).
		Suffix("ON CONFLICT (source_url) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert item: %w", err)
	}

	var id int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrDuplicate
		}
		return 0, fmt.Errorf("%w: insert item: %v", domain.ErrDependency, err)
	}
	return id, nil
}

// ExistsByURL reports whether an item with url was already stored.
func (r *PostgresRepository) ExistsByURL(ctx context.Context, url string) (bool, error) {
	return r.exists(ctx, r.sq.Select("1").From(contentTable).Where(squirrel.Eq{"source_url": url}))
}

// QueryItemsByWindow returns items published inside window, newest first.
func (r *PostgresRepository) QueryItemsByWindow(ctx context.Context, window domain.Window, onlyUnanalyzed bool) ([]domain.ContentItem, error) {
	q := r.sq.Select(contentColumns...).
		From(contentTable).
		Where(squirrel.GtOrEq{"publication_time": window.Start.UTC()}).
		Where(squirrel.LtOrEq{"publication_time": window.End.UTC()}).
		OrderBy("publication_time DESC", "id DESC")
	if onlyUnanalyzed {
		q = q.Where(squirrel.Eq{"is_analyzed": false})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build window query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query items: %v", domain.ErrDependency, err)
	}
	defer rows.Close()

	var items []domain.ContentItem
	for rows.Next() {
		var item domain.ContentItem
		if err := rows.Scan(
			&item.ID,
			&item.SourceURL,
			&item.Title,
			&item.Content,
			&item.PublicationTime,
			&item.ChannelID,
			&item.Language,
			&item.IsAnalyzed,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return items, nil
}

// MarkAnalyzed flags ids so later runs skip them.
func (r *PostgresRepository) MarkAnalyzed(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := r.sq.Update(contentTable).
		Set("is_analyzed", true).
		Where(squirrel.Expr("id = ANY(?)", ids)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark analyzed: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: mark analyzed: %v", domain.ErrDependency, err)
	}
	return nil
}

// CountCorroborating counts distinct other sources whose content contains statement.
func (r *PostgresRepository) CountCorroborating(ctx context.Context, statement, excludeURL string) (int, error) {
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return 0, nil
	}

	query, args, err := r.sq.Select("COUNT(DISTINCT source_url)").
		From(contentTable).
		Where(squirrel.Expr(`content ILIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(statement)+"%")).
		Where(squirrel.NotEq{"source_url": excludeURL}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build corroboration query: %w", err)
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count corroborating: %v", domain.ErrDependency, err)
	}
	return count, nil
}

// InsertReport stores a generated report and returns its id.
func (r *PostgresRepository) InsertReport(ctx context.Context, report domain.Report) (int64, error) {
	categories := report.Categories
	if categories == nil {
		categories = map[string][]string{}
	}
	raw, err := json.Marshal(categories)
	if err != nil {
		return 0, fmt.Errorf("encode categories: %w", err)
	}

	generated := report.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	query, args, err := r.sq.Insert(reportTable).
		Columns("period_type", "report_date", "content", "source_count", "is_sent", "generated_at", "categories").
		Values(string(report.PeriodType), dateOnly(report.ReportDate), report.Content, report.SourceCount, report.IsSent, generated.UTC(), string(raw)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert report: %w", err)
	}

	var id int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("%w: insert report: %v", domain.ErrDependency, err)
	}
	return id, nil
}

// ExistsByDateAndContent reports whether an identical report was already generated for date.
func (r *PostgresRepository) ExistsByDateAndContent(ctx context.Context, date time.Time, content string) (bool, error) {
	return r.exists(ctx, r.sq.Select("1").
		From(reportTable).
		Where(squirrel.Eq{"report_date": dateOnly(date), "content": content}))
}

// MarkSent flags the report as delivered.
func (r *PostgresRepository) MarkSent(ctx context.Context, id int64) error {
	query, args, err := r.sq.Update(reportTable).
		Set("is_sent", true).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark sent: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: mark sent: %v", domain.ErrDependency, err)
	}
	return nil
}

func (r *PostgresRepository) exists(ctx context.Context, inner squirrel.SelectBuilder) (bool, error) {
	query, args, err := inner.Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var found bool
	if err := r.db.QueryRow(ctx, query, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("%w: exists query: %v", domain.ErrDependency, err)
	}
	return found, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
