package domain

import (
	"fmt"
	"strings"
	"time"
)

// PeriodType is a scheduled report cadence.
type PeriodType string

const (
	PeriodDaily      PeriodType = "daily"
	PeriodWeekly     PeriodType = "weekly"
	PeriodMonthly    PeriodType = "monthly"
	PeriodSemiannual PeriodType = "semiannual"
	PeriodAnnual     PeriodType = "annual"

	// PeriodAdHoc tags reports produced outside the schedule from every unanalyzed item.
	PeriodAdHoc PeriodType = "adhoc"
)

var periodSpans = map[PeriodType]time.Duration{
	PeriodDaily:      24 * time.Hour,
	PeriodWeekly:     7 * 24 * time.Hour,
	PeriodMonthly:    30 * 24 * time.Hour,
	PeriodSemiannual: 180 * 24 * time.Hour,
	PeriodAnnual:     365 * 24 * time.Hour,
}

// Periods lists scheduled cadences from shortest to longest.
func Periods() []PeriodType {
	return []PeriodType{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodSemiannual, PeriodAnnual}
}

// ParsePeriod validates user supplied period names, ad hoc included.
func ParsePeriod(value string) (PeriodType, error) {
	p := PeriodType(strings.ToLower(strings.TrimSpace(value)))
	if p == PeriodAdHoc {
		return p, nil
	}
	if _, ok := periodSpans[p]; !ok {
		return "", fmt.Errorf("%w: unknown period type %q", ErrValidation, value)
	}
	return p, nil
}

// Window is the [Start, End] range of publication times eligible for a report.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, both ends inclusive.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// WindowFor maps a scheduled period to the window ending at now.
func WindowFor(period PeriodType, now time.Time) (Window, error) {
	span, ok := periodSpans[period]
	if !ok {
		return Window{}, fmt.Errorf("%w: unknown period type %q", ErrValidation, period)
	}
	return Window{Start: now.Add(-span), End: now}, nil
}
