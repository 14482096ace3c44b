package report

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"

	"ChannelAnalyst/internal/domain"
)

const (
	dateLayout  = "02.01.2006"
	stampLayout = "02.01.2006 15:04"
	headlineMax = 100
	missingURL  = "N/A"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var blankRuns = regexp.MustCompile(`\n{3,}`)

var periodHeadings = map[domain.PeriodType]string{
	domain.PeriodDaily:      "Ежедневный аналитический отчёт",
	domain.PeriodWeekly:     "Еженедельный аналитический отчёт",
	domain.PeriodMonthly:    "Ежемесячный аналитический отчёт",
	domain.PeriodSemiannual: "Полугодовой аналитический отчёт",
	domain.PeriodAnnual:     "Годовой аналитический отчёт",
}

// Input is everything a render depends on; Now is injected by the caller.
type Input struct {
	Period      domain.PeriodType
	Window      domain.Window
	Now         time.Time
	SourceCount int
	Top         []Candidate
	Groups      []Group
	// Ranked feeds the ad hoc layout.
	Ranked []Candidate
	Budget int
}

// Assembler renders reports from the embedded templates.
type Assembler struct {
	periodic *template.Template
	adhoc    *template.Template
}

// NewAssembler parses the embedded templates.
func NewAssembler() (*Assembler, error) {
	funcs := template.FuncMap{
		"inc":  func(i int) int { return i + 1 },
		"next": func() int { return 0 },
	}

	periodic, err := template.New("periodic.tmpl").Funcs(funcs).ParseFS(templateFS, "templates/periodic.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse periodic template: %w", err)
	}
	adhoc, err := template.New("adhoc.tmpl").Funcs(funcs).ParseFS(templateFS, "templates/adhoc.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse adhoc template: %w", err)
	}

	return &Assembler{periodic: periodic, adhoc: adhoc}, nil
}

type entryView struct {
	Title string
	Lead  string
	URL   string
}

type groupView struct {
	Label   string
	Entries []entryView
}

type periodicView struct {
	Heading     string
	Range       string
	Date        string
	SourceCount int
	Top         []entryView
	Groups      []groupView
	FirstURL    string
}

type adhocView struct {
	SourceCount int
	Stamp       string
	Ranked      []entryView
}

// Assemble renders the report for in and truncates it to in.Budget characters.
func (a *Assembler) Assemble(in Input) (string, error) {
	var (
		tmpl *template.Template
		data any
	)

	if in.Period == domain.PeriodAdHoc {
		tmpl = a.adhoc
		data = adhocView{
			SourceCount: in.SourceCount,
			Stamp:       in.Now.UTC().Format(stampLayout),
			Ranked:      entries(in.Ranked),
		}
	} else {
		tmpl = a.periodic
		view := periodicView{
			Heading:     heading(in.Period),
			Range:       in.Window.Start.Format(dateLayout) + " — " + in.Window.End.Format(dateLayout),
			Date:        in.Now.Format(dateLayout),
			SourceCount: in.SourceCount,
			Top:         entries(in.Top),
			FirstURL:    missingURL,
		}
		if len(in.Top) > 0 {
			view.FirstURL = in.Top[0].Item.SourceURL
		}
		for _, g := range in.Groups {
			view.Groups = append(view.Groups, groupView{Label: g.Label, Entries: entries(g.Items)})
		}
		data = view
	}

	clone, err := tmpl.Clone()
	if err != nil {
		return "", fmt.Errorf("clone template: %w", err)
	}
	section := 0
	clone.Funcs(template.FuncMap{"next": func() int {
		section++
		return section
	}})

	var buf bytes.Buffer
	if err := clone.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	text := blankRuns.ReplaceAllString(buf.String(), "\n\n")
	text = strings.TrimSpace(text)

	if in.Budget > 0 {
		text = Truncate(text, in.Budget)
	}
	return text, nil
}

func heading(p domain.PeriodType) string {
	if h, ok := periodHeadings[p]; ok {
		return h
	}
	return "Аналитический отчёт"
}

func entries(cands []Candidate) []entryView {
	out := make([]entryView, 0, len(cands))
	for _, c := range cands {
		out = append(out, entryView{
			Title: Headline(c.Item),
			Lead:  leadOf(c.Item),
			URL:   c.Item.SourceURL,
		})
	}
	return out
}

// Headline is the first line of the title (or body) cut to 100 characters.
func Headline(item domain.ContentItem) string {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = strings.TrimSpace(item.Content)
	}
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	if len([]rune(title)) > headlineMax {
		return strings.TrimSpace(Clip(title, headlineMax)) + Ellipsis
	}
	return title
}

func leadOf(item domain.ContentItem) string {
	if lead := Lead(item.Content); lead != "" {
		return lead
	}
	return Lead(item.Title)
}
