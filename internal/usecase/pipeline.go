package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"ChannelAnalyst/internal/analysis"
	"ChannelAnalyst/internal/domain"
	"ChannelAnalyst/internal/metrics"
	"ChannelAnalyst/internal/ports"
	"ChannelAnalyst/internal/report"
)

const (
	defaultCallTimeout = 5 * time.Second
	defaultTopN        = 5
)

// defaultBudgets caps periods missing from PipelineDeps.Periods.
var defaultBudgets = map[domain.PeriodType]int{
	domain.PeriodDaily:      1500,
	domain.PeriodWeekly:     3000,
	domain.PeriodMonthly:    6000,
	domain.PeriodSemiannual: 9000,
	domain.PeriodAnnual:     10000,
	domain.PeriodAdHoc:      2000,
}

// Translator converts text and reports whether a translation happened.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) (string, bool)
}

// PeriodSettings sizes one report cadence.
type PeriodSettings struct {
	Budget int
	TopN   int
}

// PipelineDeps wires all driven adapters into the report pipeline.
type PipelineDeps struct {
	Content    ports.ContentStore
	Reports    ports.ReportStore
	Sender     ports.Sender
	Translator Translator
	Assembler  *report.Assembler
	Profile    analysis.Profile
	Targets    []int64
	Periods    map[domain.PeriodType]PeriodSettings
	// Language is the report language; items in other languages are translated.
	Language         string
	MinSources       int
	EmptyNotice      string
	SendEmptyNotice  bool
	StoreTimeout     time.Duration
	SendTimeout      time.Duration
	// TranslateTimeout bounds each translator call.
	TranslateTimeout time.Duration
	Now              func() time.Time
	Logger           *slog.Logger
}

// Pipeline turns stored posts into a delivered report.
type Pipeline struct {
	content    ports.ContentStore
	reports    ports.ReportStore
	sender     ports.Sender
	translator Translator
	assembler  *report.Assembler

	classifier *analysis.Classifier
	scorer     *analysis.Scorer
	labels     []string

	targets          []int64
	periods          map[domain.PeriodType]PeriodSettings
	language         string
	minSources       int
	emptyNotice      string
	sendEmptyNotice  bool
	storeTimeout     time.Duration
	sendTimeout      time.Duration
	translateTimeout time.Duration
	now              func() time.Time
	logger           *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	profile := deps.Profile.Normalize()

	p := &Pipeline{
		content:          deps.Content,
		reports:          deps.Reports,
		sender:           deps.Sender,
		translator:       deps.Translator,
		assembler:        deps.Assembler,
		classifier:       analysis.NewClassifier(profile),
		scorer:           analysis.NewScorer(profile),
		labels:           profile.Labels(),
		targets:          deps.Targets,
		periods:          deps.Periods,
		language:         deps.Language,
		minSources:       deps.MinSources,
		emptyNotice:      deps.EmptyNotice,
		sendEmptyNotice:  deps.SendEmptyNotice,
		storeTimeout:     deps.StoreTimeout,
		sendTimeout:      deps.SendTimeout,
		translateTimeout: deps.TranslateTimeout,
		now:              deps.Now,
		logger:           deps.Logger,
	}

	if p.now == nil {
		p.now = time.Now
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "pipeline")
	if p.storeTimeout <= 0 {
		p.storeTimeout = defaultCallTimeout
	}
	if p.sendTimeout <= 0 {
		p.sendTimeout = defaultCallTimeout
	}
	if p.translateTimeout <= 0 {
		p.translateTimeout = defaultCallTimeout
	}
	if p.language == "" {
		p.language = "ru"
	}
	return p
}

// GenerateAdHoc reports on every unanalyzed item up to now.
func (p *Pipeline) GenerateAdHoc(ctx context.Context) (domain.Outcome, error) {
	return p.Generate(ctx, domain.PeriodAdHoc)
}

// Generate builds, persists and delivers the report for period.
// The returned Outcome is always populated; err is set when the run failed.
func (p *Pipeline) Generate(ctx context.Context, period domain.PeriodType) (domain.Outcome, error) {
	started := p.now()
	out := domain.Outcome{RunID: uuid.NewString(), Mode: domain.ModeOf(period), Period: period}
	log := p.logger.With("run_id", out.RunID, "mode", string(out.Mode), "period", string(period))

	err := p.run(ctx, log, period, started, &out)
	if err != nil {
		out.Status = domain.OutcomeFailed
		out.Error = err.Error()
		log.Error("report run failed", "err", err)
	} else {
		log.Info("report run finished",
			"status", out.Status,
			"report_id", out.ReportID,
			"sources", out.SourceCount,
			"delivered", out.Delivered,
			"failed", out.Failed,
		)
	}

	metrics.RecordReport(string(period), string(out.Status), p.now().Sub(started).Seconds())
	return out, err
}

func (p *Pipeline) run(ctx context.Context, log *slog.Logger, period domain.PeriodType, now time.Time, out *domain.Outcome) error {
	if p.content == nil || p.reports == nil || p.sender == nil || p.assembler == nil {
		return fmt.Errorf("%w: pipeline is not fully wired", domain.ErrValidation)
	}
	if len(p.targets) == 0 {
		return fmt.Errorf("%w: no target channels configured", domain.ErrValidation)
	}

	window, err := p.window(period, now)
	if err != nil {
		return err
	}
	settings := p.settings(period)

	items, err := p.queryItems(ctx, window)
	if err != nil {
		return err
	}
	out.SourceCount = len(items)

	if len(items) == 0 {
		out.Status = domain.OutcomeEmpty
		if p.sendEmptyNotice && p.emptyNotice != "" {
			out.Delivered, out.Failed = p.deliver(ctx, log, p.emptyNotice)
		}
		return nil
	}

	ranked := analysis.Rank(p.scorer, items, domain.ContentItem.Text)
	cands := make([]report.Candidate, 0, len(ranked))
	for _, r := range ranked {
		text := r.Item.Text()
		cands = append(cands, report.Candidate{
			Item:     r.Item,
			Category: p.classifier.Classify(text),
			Score:    r.Score,
			Critical: p.scorer.Critical(text),
		})
	}

	input := report.Input{
		Period:      period,
		Window:      window,
		Now:         now,
		SourceCount: len(items),
		Budget:      settings.Budget,
	}
	var sel report.Selection
	translated := map[string]domain.ContentItem{}
	if period == domain.PeriodAdHoc {
		sel = report.Selection{Groups: report.GroupByLabel(cands, p.labels)}
		input.Ranked = p.translateAll(ctx, log, report.Rank(cands, settings.TopN), translated)
	} else {
		sel = report.Plan(cands, p.labels, settings.TopN)
		sel.Top = p.corroborate(ctx, log, sel.Top)
		input.Top = p.translateAll(ctx, log, sel.Top, translated)
		for _, g := range sel.Groups {
			input.Groups = append(input.Groups, report.Group{Label: g.Label, Items: p.translateAll(ctx, log, g.Items, translated)})
		}
	}

	content, err := p.assembler.Assemble(input)
	if err != nil {
		return fmt.Errorf("assemble report: %w", err)
	}

	reportDate := window.Start
	if period == domain.PeriodAdHoc {
		reportDate = now
	}
	out.ReportDate = reportDate.Format("2006-01-02")

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}

	if p.isDuplicateReport(ctx, log, reportDate, content) {
		out.Status = domain.OutcomeDuplicate
		if err := p.markAnalyzed(ctx, ids); err != nil {
			log.Warn("mark analyzed after duplicate failed", "err", err)
		}
		return nil
	}

	if err := p.markAnalyzed(ctx, ids); err != nil {
		return err
	}

	storeCtx, cancel := context.WithTimeout(ctx, p.storeTimeout)
	reportID, err := p.reports.InsertReport(storeCtx, domain.Report{
		PeriodType:  period,
		ReportDate:  reportDate,
		Content:     content,
		SourceCount: len(items),
		GeneratedAt: now,
		Categories:  sel.Audit(),
	})
	cancel()
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	out.ReportID = reportID

	out.Delivered, out.Failed = p.deliver(ctx, log, content)
	switch {
	case out.Failed == 0:
		out.Status = domain.OutcomeSent
		storeCtx, cancel := context.WithTimeout(ctx, p.storeTimeout)
		if err := p.reports.MarkSent(storeCtx, reportID); err != nil {
			log.Warn("mark sent failed", "report_id", reportID, "err", err)
		}
		cancel()
	case out.Delivered > 0:
		out.Status = domain.OutcomePartial
		out.Error = fmt.Sprintf("delivered to %d of %d channels", out.Delivered, out.Delivered+out.Failed)
	default:
		return fmt.Errorf("%w: report %d was not delivered to any channel", domain.ErrDependency, reportID)
	}
	return nil
}

func (p *Pipeline) window(period domain.PeriodType, now time.Time) (domain.Window, error) {
	if period == domain.PeriodAdHoc {
		return domain.Window{End: now}, nil
	}
	return domain.WindowFor(period, now)
}

func (p *Pipeline) settings(period domain.PeriodType) PeriodSettings {
	s := p.periods[period]
	if s.TopN <= 0 {
		s.TopN = defaultTopN
	}
	if s.Budget <= 0 {
		s.Budget = defaultBudgets[period]
	}
	return s
}

func (p *Pipeline) queryItems(ctx context.Context, window domain.Window) ([]domain.ContentItem, error) {
	ctx, cancel := context.WithTimeout(ctx, p.storeTimeout)
	defer cancel()

	items, err := p.content.QueryItemsByWindow(ctx, window, true)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	return items, nil
}

func (p *Pipeline) markAnalyzed(ctx context.Context, ids []int64) error {
	ctx, cancel := context.WithTimeout(ctx, p.storeTimeout)
	defer cancel()

	if err := p.content.MarkAnalyzed(ctx, ids); err != nil {
		return fmt.Errorf("mark analyzed: %w", err)
	}
	return nil
}

// isDuplicateReport fails open: a lookup error counts as "not a duplicate".
func (p *Pipeline) isDuplicateReport(ctx context.Context, log *slog.Logger, date time.Time, content string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.storeTimeout)
	defer cancel()

	exists, err := p.reports.ExistsByDateAndContent(ctx, date, content)
	if err != nil {
		log.Warn("report duplicate check failed, continuing", "err", err)
		return false
	}
	return exists
}

// corroborate drops top events repeated by fewer than minSources other sources.
// Lookup errors keep the event.
func (p *Pipeline) corroborate(ctx context.Context, log *slog.Logger, top []report.Candidate) []report.Candidate {
	kept := top[:0:0]
	for _, c := range top {
		body := c.Item.Content
		if body == "" {
			body = c.Item.Title
		}
		statement := report.KeyStatement(body)

		storeCtx, cancel := context.WithTimeout(ctx, p.storeTimeout)
		count, err := p.content.CountCorroborating(storeCtx, statement, c.Item.SourceURL)
		cancel()

		switch {
		case err != nil:
			log.Warn("corroboration lookup failed", "url", c.Item.SourceURL, "err", err)
		case count < p.minSources:
			log.Info("event dropped as uncorroborated", "url", c.Item.SourceURL, "sources", count, "required", p.minSources)
			continue
		default:
			log.Debug("event corroborated", "url", c.Item.SourceURL, "sources", count)
		}
		kept = append(kept, c)
	}
	return kept
}

// translateAll translates foreign items once per run; done caches results by source URL.
func (p *Pipeline) translateAll(ctx context.Context, log *slog.Logger, cands []report.Candidate, done map[string]domain.ContentItem) []report.Candidate {
	if p.translator == nil {
		return cands
	}

	out := make([]report.Candidate, len(cands))
	for i, c := range cands {
		out[i] = c
		lang := c.Item.Language
		if lang == "" || lang == p.language {
			continue
		}
		if item, ok := done[c.Item.SourceURL]; ok {
			out[i].Item = item
			continue
		}
		var titleOK, contentOK bool
		out[i].Item.Title, titleOK = p.translate(ctx, c.Item.Title, lang)
		out[i].Item.Content, contentOK = p.translate(ctx, c.Item.Content, lang)
		if !titleOK && !contentOK {
			log.Debug("item left untranslated", "url", c.Item.SourceURL, "language", lang)
		}
		done[c.Item.SourceURL] = out[i].Item
	}
	return out
}

func (p *Pipeline) translate(ctx context.Context, text, from string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, p.translateTimeout)
	defer cancel()
	return p.translator.Translate(ctx, text, from, p.language)
}

// deliver sends text to every target channel and counts the results.
func (p *Pipeline) deliver(ctx context.Context, log *slog.Logger, text string) (delivered, failed int) {
	for _, channel := range p.targets {
		sendCtx, cancel := context.WithTimeout(ctx, p.sendTimeout)
		err := p.sender.SendText(sendCtx, channel, text)
		cancel()

		if err != nil {
			failed++
			metrics.RecordSendFailure(strconv.FormatInt(channel, 10))
			log.Error("send failed", "channel", channel, "err", err, "timeout", errors.Is(err, context.DeadlineExceeded))
			continue
		}
		delivered++
		log.Info("report sent", "channel", channel)
	}
	return delivered, failed
}
