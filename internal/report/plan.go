package report

import (
	"sort"

	"ChannelAnalyst/internal/analysis"
	"ChannelAnalyst/internal/domain"
)

// Candidate is a classified and scored item eligible for a report.
type Candidate struct {
	Item     domain.ContentItem
	Category analysis.Category
	Score    float64
	Critical bool
}

// Group is one thematic section.
type Group struct {
	Label string
	Items []Candidate
}

// Selection is what a periodic report renders.
type Selection struct {
	Top    []Candidate
	Groups []Group
}

// Plan picks up to topN critical candidates by score and groups all candidates
// by category label following order. Labels absent from order go last.
func Plan(cands []Candidate, order []string, topN int) Selection {
	var critical []Candidate
	for _, c := range cands {
		if c.Critical {
			critical = append(critical, c)
		}
	}

	return Selection{
		Top:    Rank(critical, topN),
		Groups: GroupByLabel(cands, order),
	}
}

// Rank orders candidates by score, stable on ties, keeping at most n.
func Rank(cands []Candidate, n int) []Candidate {
	ranked := append([]Candidate(nil), cands...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// GroupByLabel buckets candidates per category label, preserving item order.
func GroupByLabel(cands []Candidate, order []string) []Group {
	index := make(map[string]int, len(order))
	for i, label := range order {
		index[label] = i
	}

	byLabel := map[string][]Candidate{}
	var extra []string
	for _, c := range cands {
		label := c.Category.Label
		if _, ok := byLabel[label]; !ok {
			if _, known := index[label]; !known {
				extra = append(extra, label)
			}
		}
		byLabel[label] = append(byLabel[label], c)
	}

	groups := make([]Group, 0, len(byLabel))
	for _, label := range append(append([]string(nil), order...), extra...) {
		if items, ok := byLabel[label]; ok {
			groups = append(groups, Group{Label: label, Items: items})
			delete(byLabel, label)
		}
	}
	return groups
}

// Audit maps each category label to the source URLs rendered under it.
func (s Selection) Audit() map[string][]string {
	out := make(map[string][]string, len(s.Groups))
	for _, g := range s.Groups {
		urls := make([]string, 0, len(g.Items))
		for _, c := range g.Items {
			urls = append(urls, c.Item.SourceURL)
		}
		out[g.Label] = urls
	}
	return out
}
