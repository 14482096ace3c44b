package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChannelAnalyst/internal/analysis"
	"ChannelAnalyst/internal/domain"
	"ChannelAnalyst/internal/report"
)

const notice = "Нет новых данных для анализа за указанный период."

var runAt = time.Date(2025, time.March, 10, 18, 0, 0, 0, time.UTC)

func scenarioItems() []domain.ContentItem {
	return []domain.ContentItem{
		{
			ID:              1,
			SourceURL:       "https://t.me/src/1",
			Title:           "Путин и санкции",
			Content:         "Путин прокомментировал новые санкции. Рынки отреагировали.",
			PublicationTime: runAt.Add(-8 * time.Hour),
			Language:        "ru",
		},
		{
			ID:              2,
			SourceURL:       "https://t.me/src/2",
			Title:           "Bitcoin",
			Content:         "Bitcoin hits a new high.",
			PublicationTime: runAt.Add(-9 * time.Hour),
			Language:        "ru",
		},
		{
			ID:              3,
			SourceURL:       "https://t.me/src/3",
			Title:           "Старое",
			Content:         "Россия и давние новости.",
			PublicationTime: runAt.AddDate(0, 0, -9),
			Language:        "ru",
		},
	}
}

func newTestPipeline(t *testing.T, content *fakeContent, reports *fakeReports, sender *fakeSender, tweak func(*PipelineDeps)) *Pipeline {
	t.Helper()

	asm, err := report.NewAssembler()
	require.NoError(t, err)

	deps := PipelineDeps{
		Content:   content,
		Reports:   reports,
		Sender:    sender,
		Assembler: asm,
		Profile:   analysis.DefaultProfile(),
		Targets:   []int64{-100111, -100222},
		Periods: map[domain.PeriodType]PeriodSettings{
			domain.PeriodDaily: {Budget: 1500, TopN: 5},
			domain.PeriodAdHoc: {Budget: 2000, TopN: 10},
		},
		Language:        "ru",
		EmptyNotice:     notice,
		SendEmptyNotice: true,
		Now:             func() time.Time { return runAt },
	}
	if tweak != nil {
		tweak(&deps)
	}
	return NewPipeline(deps)
}

func TestGenerateDailyScenario(t *testing.T) {
	content := &fakeContent{items: scenarioItems()}
	reports := &fakeReports{}
	sender := &fakeSender{}
	p := newTestPipeline(t, content, reports, sender, nil)

	out, err := p.Generate(context.Background(), domain.PeriodDaily)
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeSent, out.Status)
	assert.Equal(t, domain.ModePeriodic, out.Mode)
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, 2, out.SourceCount)
	assert.Equal(t, 2, out.Delivered)
	assert.Zero(t, out.Failed)
	assert.Equal(t, "2025-03-09", out.ReportDate)

	assert.ElementsMatch(t, []int64{1, 2}, content.marked, "the old item is outside the window")

	require.Len(t, reports.reports, 1)
	stored := reports.reports[0]
	assert.Equal(t, domain.PeriodDaily, stored.PeriodType)
	assert.Equal(t, 2, stored.SourceCount)
	assert.Equal(t, []string{"https://t.me/src/1"}, stored.Categories["Экономика и финансы"])
	assert.Equal(t, []string{"https://t.me/src/2"}, stored.Categories["Прочее"])
	assert.Equal(t, []int64{out.ReportID}, reports.sent)

	text := stored.Content
	assert.LessOrEqual(t, utf8.RuneCountInString(text), 1500)
	assert.Contains(t, text, "Событие №1: Путин и санкции")
	assert.Contains(t, text, "[https://t.me/src/1]")
	assert.Contains(t, text, "[https://t.me/src/2]")
	assert.NotContains(t, text, "https://t.me/src/3")

	require.Len(t, sender.message, 2)
	assert.Equal(t, int64(-100111), sender.message[0].channel)
	assert.Equal(t, text, sender.message[1].text)

	assert.Equal(t, []string{"Путин прокомментировал новые санкции"}, content.statements)
}

func TestGenerateEmptyWindowSendsNotice(t *testing.T) {
	content := &fakeContent{}
	reports := &fakeReports{}
	sender := &fakeSender{}
	p := newTestPipeline(t, content, reports, sender, nil)

	out, err := p.Generate(context.Background(), domain.PeriodDaily)
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeEmpty, out.Status)
	assert.Empty(t, reports.reports)
	assert.Empty(t, content.marked)
	require.Len(t, sender.message, 2)
	assert.Equal(t, notice, sender.message[0].text)
}

func TestGenerateEmptyWindowQuiet(t *testing.T) {
	sender := &fakeSender{}
	p := newTestPipeline(t, &fakeContent{}, &fakeReports{}, sender, func(d *PipelineDeps) {
		d.SendEmptyNotice = false
	})

	out, err := p.Generate(context.Background(), domain.PeriodDaily)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeEmpty, out.Status)
	assert.Empty(t, sender.message)
}

func TestGenerateIdenticalReportIsSentOnce(t *testing.T) {
	content := &fakeContent{items: scenarioItems(), keepVisible: true}
	reports := &fakeReports{}
	sender := &fakeSender{}
	p := newTestPipeline(t, content, reports, sender, func(d *PipelineDeps) {
		d.Targets = []int64{-100111}
	})

	first, err := p.Generate(context.Background(), domain.PeriodDaily)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSent, first.Status)

	second, err := p.Generate(context.Background(), domain.PeriodDaily)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDuplicate, second.Status)

	assert.Len(t, sender.message, 1)
	assert.Len(t, reports.reports, 1)
}

func TestGenerateDuplicateCheckFailsOpen(t *testing.T) {
	reports := &fakeReports{existsErr: errors.New("timeout")}
	sender := &fakeSender{}
	p := newTestPipeline(t, &fakeContent{items: scenarioItems()}, reports, sender, nil)

	out, err := p.Generate(context.Background(), domain.PeriodDaily)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSent, out.Status)
	assert.Len(t, sender.message, 2)
}

func TestGeneratePartialDelivery(t *testing.T) {
	reports := &fakeReports{}
	sender := &fakeSender{fail: map[int64]bool{-100222: true}}
	p := newTestPipeline(t, &fakeContent{items: scenarioItems()}, reports, sender, nil)

	out, err := p.Generate(context.Background(), domain.PeriodDaily)
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomePartial, out.Status)
	assert.Equal(t, 1, out.Delivered)
	assert.Equal(t, 1, out.Failed)
	assert.Empty(t, reports.sent, "a partially delivered report stays unsent")
}

func TestGenerateNothingDelivered(t *testing.T) {
	reports := &fakeReports{}
	sender := &fakeSender{fail: map[int64]bool{-100111: true, -100222: true}}
	p := newTestPipeline(t, &fakeContent{items: scenarioItems()}, reports, sender, nil)

	out, err := p.Generate(context.Background(), domain.PeriodDaily)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDependency)
	assert.Equal(t, domain.OutcomeFailed, out.Status)
	assert.NotEmpty(t, out.Error)
	assert.Len(t, reports.reports, 1, "the report row is kept for a later resend")
}

func TestGenerateStoreFailure(t *testing.T) {
	sender := &fakeSender{}
	content := &fakeContent{queryErr: domain.ErrDependency}
	p := newTestPipeline(t, content, &fakeReports{}, sender, nil)

	out, err := p.Generate(context.Background(), domain.PeriodDaily)
	assert.ErrorIs(t, err, domain.ErrDependency)
	assert.Equal(t, domain.OutcomeFailed, out.Status)
	assert.Empty(t, sender.message)
}

func TestGenerateInsertFailureSkipsSend(t *testing.T) {
	sender := &fakeSender{}
	p := newTestPipeline(t, &fakeContent{items: scenarioItems()}, &fakeReports{insertErr: errors.New("disk full")}, sender, nil)

	out, err := p.Generate(context.Background(), domain.PeriodDaily)
	assert.Error(t, err)
	assert.Equal(t, domain.OutcomeFailed, out.Status)
	assert.Empty(t, sender.message)
}

func TestGenerateUnknownPeriod(t *testing.T) {
	p := newTestPipeline(t, &fakeContent{}, &fakeReports{}, &fakeSender{}, nil)

	out, err := p.Generate(context.Background(), domain.PeriodType("hourly"))
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, domain.OutcomeFailed, out.Status)
}

func TestGenerateWithoutTargets(t *testing.T) {
	p := newTestPipeline(t, &fakeContent{items: scenarioItems()}, &fakeReports{}, &fakeSender{}, func(d *PipelineDeps) {
		d.Targets = nil
	})

	_, err := p.Generate(context.Background(), domain.PeriodDaily)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGenerateDropsUncorroboratedEvents(t *testing.T) {
	reports := &fakeReports{}
	p := newTestPipeline(t, &fakeContent{items: scenarioItems(), count: 0}, reports, &fakeSender{}, func(d *PipelineDeps) {
		d.MinSources = 2
	})

	out, err := p.Generate(context.Background(), domain.PeriodDaily)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSent, out.Status)

	text := reports.reports[0].Content
	assert.NotContains(t, text, "ТОП-")
	assert.Contains(t, text, "— Путин и санкции [https://t.me/src/1]", "the item still appears in its category")
}

func TestGenerateKeepsEventWhenCorroborationLookupFails(t *testing.T) {
	reports := &fakeReports{}
	content := &fakeContent{items: scenarioItems(), countErr: errors.New("timeout")}
	p := newTestPipeline(t, content, reports, &fakeSender{}, func(d *PipelineDeps) {
		d.MinSources = 2
	})

	_, err := p.Generate(context.Background(), domain.PeriodDaily)
	require.NoError(t, err)
	assert.Contains(t, reports.reports[0].Content, "Событие №1: Путин и санкции")
}

func TestGenerateTranslatesForeignItems(t *testing.T) {
	items := scenarioItems()
	items[1].Title = "Sanctions on Russia"
	items[1].Content = "Putin discussed the economy."
	items[1].Language = "en"

	reports := &fakeReports{}
	tr := &upperTranslator{}
	p := newTestPipeline(t, &fakeContent{items: items}, reports, &fakeSender{}, func(d *PipelineDeps) {
		d.Translator = tr
	})

	_, err := p.Generate(context.Background(), domain.PeriodDaily)
	require.NoError(t, err)

	text := reports.reports[0].Content
	assert.Contains(t, text, "SANCTIONS ON RUSSIA [en→ru]")
	assert.Contains(t, text, "Путин и санкции", "items already in the report language stay as they are")
	assert.Positive(t, tr.calls)
}

func TestGenerateAdHoc(t *testing.T) {
	content := &fakeContent{items: scenarioItems()}
	reports := &fakeReports{}
	sender := &fakeSender{}
	p := newTestPipeline(t, content, reports, sender, nil)

	out, err := p.GenerateAdHoc(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.PeriodAdHoc, out.Period)
	assert.Equal(t, domain.ModeAdHoc, out.Mode)
	assert.Equal(t, domain.OutcomeSent, out.Status)
	assert.Equal(t, 3, out.SourceCount)
	assert.Equal(t, "2025-03-10", out.ReportDate)

	text := reports.reports[0].Content
	assert.True(t, strings.HasPrefix(text, "📊 Аналитический отчёт (всего постов: 3)"))
	assert.Contains(t, text, "Сформирован: 10.03.2025 18:00 UTC")
	assert.Less(t, strings.Index(text, "[https://t.me/src/1]"), strings.Index(text, "[https://t.me/src/2]"), "higher score ranks first")
	assert.LessOrEqual(t, utf8.RuneCountInString(text), 2000)
	assert.ElementsMatch(t, []int64{1, 2, 3}, content.marked)
}

type deadlineTranslator struct {
	calls     int
	remaining []time.Duration
}

func (d *deadlineTranslator) Translate(ctx context.Context, text, from, to string) (string, bool) {
	d.calls++
	if deadline, ok := ctx.Deadline(); ok {
		d.remaining = append(d.remaining, time.Until(deadline))
	}
	return strings.ToUpper(text), true
}

func TestGenerateTranslatesEachItemOnceWithinTimeout(t *testing.T) {
	items := scenarioItems()
	items[0].Language = "en"

	reports := &fakeReports{}
	tr := &deadlineTranslator{}
	p := newTestPipeline(t, &fakeContent{items: items}, reports, &fakeSender{}, func(d *PipelineDeps) {
		d.Translator = tr
		d.TranslateTimeout = 2 * time.Second
	})

	_, err := p.Generate(context.Background(), domain.PeriodDaily)
	require.NoError(t, err)

	text := reports.reports[0].Content
	assert.Contains(t, text, "Событие №1: ПУТИН И САНКЦИИ")
	assert.Contains(t, text, "— ПУТИН И САНКЦИИ [https://t.me/src/1]")
	assert.Equal(t, 2, tr.calls, "title and content are translated once though the item is rendered twice")
	require.Len(t, tr.remaining, 2)
	for _, left := range tr.remaining {
		assert.LessOrEqual(t, left, 2*time.Second)
	}
}

func TestGenerateDefaultsMissingBudget(t *testing.T) {
	var items []domain.ContentItem
	for i := 1; i <= 100; i++ {
		items = append(items, domain.ContentItem{
			ID:              int64(i),
			SourceURL:       fmt.Sprintf("https://t.me/src/%d", i),
			Title:           fmt.Sprintf("Россия и санкции, выпуск %d", i),
			Content:         "Путин обсудил экономику и новые санкции. Подробности позже.",
			PublicationTime: runAt.Add(-time.Duration(i) * time.Minute),
			Language:        "ru",
		})
	}

	reports := &fakeReports{}
	p := newTestPipeline(t, &fakeContent{items: items}, reports, &fakeSender{}, func(d *PipelineDeps) {
		d.Periods = nil
	})

	out, err := p.Generate(context.Background(), domain.PeriodDaily)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSent, out.Status)

	text := reports.reports[0].Content
	assert.LessOrEqual(t, utf8.RuneCountInString(text), 1500)
	assert.True(t, strings.HasSuffix(text, "..."))
}
