package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"ChannelAnalyst/internal/config"
	"ChannelAnalyst/internal/domain"
	"ChannelAnalyst/internal/httpapi"
	"ChannelAnalyst/internal/infrastructure/llm"
	"ChannelAnalyst/internal/infrastructure/ml"
	"ChannelAnalyst/internal/infrastructure/parser"
	"ChannelAnalyst/internal/infrastructure/scheduler"
	"ChannelAnalyst/internal/infrastructure/storage"
	"ChannelAnalyst/internal/infrastructure/telegram"
	"ChannelAnalyst/internal/infrastructure/translate"
	"ChannelAnalyst/internal/logging"
	"ChannelAnalyst/internal/ports"
	"ChannelAnalyst/internal/report"
	"ChannelAnalyst/internal/scanner"
	"ChannelAnalyst/internal/usecase"
)

const (
	shutdownTimeout = 10 * time.Second
	scanTimeout     = 30 * time.Second
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pool     *pgxpool.Pool
	repo     *storage.PostgresRepository
	ingestor *usecase.Ingestor
	pipeline *usecase.Pipeline
	listener ports.PostSource
	reports  *usecase.Scheduler
	http     *httpapi.Server
}

// New connects to the store and builds every component. Close releases the pool.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	pool, err := storage.OpenPool(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
	if err != nil {
		return nil, err
	}
	repo := storage.NewPostgresRepository(pool)

	assembler, err := report.NewAssembler()
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("load report templates: %w", err)
	}

	bot := telegram.NewClient(cfg.Telegram.APIBase, cfg.Telegram.BotToken, &http.Client{
		// Long polling holds the request open for PollTimeout.
		Timeout: cfg.Telegram.PollTimeout + 10*time.Second,
	})

	scanClient := &http.Client{Timeout: scanTimeout}
	registry := scanner.NewRegistry(
		parser.NewTelegramWebScanner(scanClient),
		parser.NewFeedScanner(scanClient),
	)
	history := parser.NewStrategySource(registry, cfg.Sources, baseLogger.With("component", "source"))

	ingestor := usecase.NewIngestor(usecase.IngestDeps{
		Content:      repo,
		History:      history,
		Profile:      cfg.Keywords,
		Filter:       cfg.Ingest.Filter,
		TitleChars:   cfg.Ingest.TitleChars,
		ContentChars: cfg.Ingest.ContentChars,
		Language:     cfg.Ingest.Language,
		StoreTimeout: cfg.Timeouts.Store,
		Logger:       baseLogger,
	})

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Content:          repo,
		Reports:          repo,
		Sender:           telegram.NewNotifier(bot, cfg.Telegram.SendInterval),
		Translator:       newTranslator(cfg.Translation, baseLogger),
		Assembler:        assembler,
		Profile:          cfg.Keywords,
		Targets:          cfg.Telegram.TargetChannels,
		Periods:          periodSettings(cfg),
		Language:         cfg.Report.Language,
		MinSources:       cfg.Verification.MinSources,
		EmptyNotice:      cfg.Report.EmptyNotice,
		SendEmptyNotice:  cfg.Report.SendEmptyNotice,
		StoreTimeout:     cfg.Timeouts.Store,
		SendTimeout:      cfg.Timeouts.Send,
		TranslateTimeout: cfg.Timeouts.Translate,
		Logger:           baseLogger,
	})

	a := &Application{
		cfg:      cfg,
		logger:   baseLogger.With("component", "app"),
		pool:     pool,
		repo:     repo,
		ingestor: ingestor,
		pipeline: pipeline,
	}

	if cfg.Telegram.SourceChannelID != 0 {
		a.listener = telegram.NewListener(bot, cfg.Telegram.SourceChannelID, cfg.Telegram.SourceUsername,
			cfg.Telegram.PollTimeout, baseLogger)
	}

	if cfg.Scheduler.Enabled {
		driver := scheduler.NewCronScheduler(cfg.Scheduler.Location(), baseLogger)
		a.reports = usecase.NewScheduler(driver, pipeline, cronSpecs(cfg), baseLogger)
	}

	if cfg.HTTP.Enabled {
		a.http = httpapi.New(cfg.HTTP.Addr, httpapi.Deps{
			Generator:  pipeline,
			Backfiller: ingestor,
			Pinger:     repo,
			Logger:     baseLogger,
		})
	}

	return a, nil
}

// Close releases the connection pool.
func (a *Application) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// Migrate applies the embedded schema.
func (a *Application) Migrate(ctx context.Context) error {
	if err := a.repo.Migrate(ctx); err != nil {
		return err
	}
	a.logger.Info("schema applied")
	return nil
}

// Report runs a single report generation for period.
func (a *Application) Report(ctx context.Context, period domain.PeriodType) (domain.Outcome, error) {
	return a.pipeline.Generate(ctx, period)
}

// Backfill imports history from every configured source.
func (a *Application) Backfill(ctx context.Context) (domain.BackfillResult, error) {
	return a.ingestor.Backfill(ctx)
}

// Serve runs the listener, the report scheduler and the HTTP surface until ctx is done
// or one of them fails.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.Migrate(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.reports != nil {
		if err := a.reports.Start(gctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return a.reports.Stop(stopCtx)
		})
	}

	if a.listener != nil {
		g.Go(func() error {
			return a.listener.Listen(gctx, a.ingestor.Handle)
		})
	} else {
		a.logger.Warn("source channel is not configured, live ingestion disabled")
	}

	if a.http != nil {
		g.Go(a.http.Start)
		g.Go(func() error {
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return a.http.Shutdown(stopCtx)
		})
	}

	a.logger.Info("service started",
		"listener", a.listener != nil,
		"scheduler", a.reports != nil,
		"http", a.http != nil)

	err := g.Wait()
	a.logger.Info("service stopped")
	return err
}

// periodSettings converts the configured table into pipeline sizing.
func periodSettings(cfg config.Config) map[domain.PeriodType]usecase.PeriodSettings {
	out := make(map[domain.PeriodType]usecase.PeriodSettings, len(domain.Periods())+1)
	for _, p := range append(domain.Periods(), domain.PeriodAdHoc) {
		pc := cfg.Period(p)
		out[p] = usecase.PeriodSettings{Budget: pc.Chars, TopN: pc.TopN}
	}
	return out
}

// cronSpecs lists the cron expression of every scheduled period.
func cronSpecs(cfg config.Config) map[domain.PeriodType]string {
	out := make(map[domain.PeriodType]string)
	for _, p := range domain.Periods() {
		if spec := cfg.Period(p).Cron; spec != "" {
			out[p] = spec
		}
	}
	return out
}

// newTranslator returns nil when translation is off or no provider is configured.
func newTranslator(cfg config.TranslationConfig, logger *slog.Logger) usecase.Translator {
	if !cfg.Enabled {
		return nil
	}

	var providers []ports.Translator
	if mt := ml.NewClient(cfg.ML.URL, cfg.ML.APIKey); mt.Configured() {
		providers = append(providers, mt)
	}
	if gpt := llm.NewChatGPTClient(cfg.ChatGPT); gpt.Configured() {
		providers = append(providers, gpt)
	}

	chain := translate.NewChain(logger, providers...)
	if chain.Len() == 0 {
		logger.Warn("translation enabled but no provider configured")
		return nil
	}
	return chain
}
