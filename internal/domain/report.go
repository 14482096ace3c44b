package domain

import "time"

// Report is one generated document as persisted in generated_reports.
type Report struct {
	ID          int64
	PeriodType  PeriodType
	ReportDate  time.Time
	Content     string
	SourceCount int
	IsSent      bool
	GeneratedAt time.Time
	// Categories maps category label to the source URLs included under it.
	Categories map[string][]string
}

// OutcomeStatus enumerates the terminal states of a report run.
type OutcomeStatus string

const (
	OutcomeSent      OutcomeStatus = "sent"
	OutcomePartial   OutcomeStatus = "partial"
	OutcomeDuplicate OutcomeStatus = "duplicate"
	OutcomeEmpty     OutcomeStatus = "empty"
	OutcomeFailed    OutcomeStatus = "failed"
)

// Mode distinguishes scheduled period reports from ad hoc ones.
type Mode string

const (
	ModePeriodic Mode = "periodic"
	ModeAdHoc    Mode = "adhoc"
)

// ModeOf reports the mode a run for period executes in.
func ModeOf(period PeriodType) Mode {
	if period == PeriodAdHoc {
		return ModeAdHoc
	}
	return ModePeriodic
}

// Outcome is the structured result every trigger receives.
type Outcome struct {
	RunID       string        `json:"runId"`
	Mode        Mode          `json:"mode"`
	Period      PeriodType    `json:"period"`
	Status      OutcomeStatus `json:"status"`
	ReportID    int64         `json:"reportId,omitempty"`
	ReportDate  string        `json:"reportDate,omitempty"`
	SourceCount int           `json:"sourceCount"`
	Delivered   int           `json:"delivered"`
	Failed      int           `json:"failed"`
	Error       string        `json:"error,omitempty"`
}

// BackfillResult summarizes a history import.
type BackfillResult struct {
	Seen       int `json:"seen"`
	Stored     int `json:"stored"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"`
	Failed     int `json:"failed"`
}
