package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"ChannelAnalyst/internal/domain"
)

type fakeContent struct {
	mu sync.Mutex

	items []domain.ContentItem
	// keepVisible makes analyzed items show up again, as if marking had been lost.
	keepVisible bool

	queryErr  error
	existsErr error
	insertErr error
	markErr   error
	countErr  error
	count     int

	marked     []int64
	statements []string
	nextID     int64
}

func (f *fakeContent) InsertItem(_ context.Context, item domain.ContentItem) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.insertErr != nil {
		return 0, f.insertErr
	}
	for _, existing := range f.items {
		if existing.SourceURL == item.SourceURL {
			return 0, domain.ErrDuplicate
		}
	}
	f.nextID++
	item.ID = f.nextID
	f.items = append(f.items, item)
	return item.ID, nil
}

func (f *fakeContent) ExistsByURL(_ context.Context, url string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, item := range f.items {
		if item.SourceURL == url {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeContent) QueryItemsByWindow(_ context.Context, window domain.Window, onlyUnanalyzed bool) ([]domain.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []domain.ContentItem
	for _, item := range f.items {
		if !window.Contains(item.PublicationTime) {
			continue
		}
		if onlyUnanalyzed && item.IsAnalyzed && !f.keepVisible {
			continue
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublicationTime.After(out[j].PublicationTime)
	})
	return out, nil
}

func (f *fakeContent) MarkAnalyzed(_ context.Context, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, ids...)
	for i := range f.items {
		for _, id := range ids {
			if f.items[i].ID == id {
				f.items[i].IsAnalyzed = true
			}
		}
	}
	return nil
}

func (f *fakeContent) CountCorroborating(_ context.Context, statement, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statements = append(f.statements, statement)
	return f.count, f.countErr
}

type fakeReports struct {
	mu sync.Mutex

	reports   []domain.Report
	existsErr error
	insertErr error
	sent      []int64
}

func (f *fakeReports) InsertReport(_ context.Context, r domain.Report) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.insertErr != nil {
		return 0, f.insertErr
	}
	r.ID = int64(len(f.reports) + 1)
	f.reports = append(f.reports, r)
	return r.ID, nil
}

func (f *fakeReports) ExistsByDateAndContent(_ context.Context, date time.Time, content string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, r := range f.reports {
		if sameDay(r.ReportDate, date) && r.Content == content {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeReports) MarkSent(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, id)
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

type sentMessage struct {
	channel int64
	text    string
}

type fakeSender struct {
	mu      sync.Mutex
	fail    map[int64]bool
	message []sentMessage
}

func (f *fakeSender) SendText(_ context.Context, channel int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail[channel] {
		return errors.New("chat not found")
	}
	f.message = append(f.message, sentMessage{channel: channel, text: text})
	return nil
}

type upperTranslator struct{ calls int }

func (u *upperTranslator) Translate(_ context.Context, text, from, to string) (string, bool) {
	u.calls++
	if text == "" {
		return text, false
	}
	return strings.ToUpper(text) + " [" + from + "→" + to + "]", true
}

type fakeHistory struct {
	posts []domain.Post
	err   error
}

func (f *fakeHistory) FetchHistory(context.Context) ([]domain.Post, error) {
	return f.posts, f.err
}
