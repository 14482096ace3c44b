package analysis

import (
	"sort"
	"strings"
)

// Scorer computes a bounded additive importance score.
type Scorer struct {
	groups   []ScoreGroup
	topic    []string
	critical []string
	max      float64
}

// NewScorer builds a scorer from a normalized profile.
func NewScorer(p Profile) *Scorer {
	return &Scorer{
		groups:   p.Groups,
		topic:    p.Topic,
		critical: p.Critical,
		max:      p.MaxScore,
	}
}

// Score sums the weight of every group with at least one hit, clamped to [0, max].
func (s *Scorer) Score(text string) float64 {
	lowered := strings.ToLower(text)
	score := 0.0
	for _, g := range s.groups {
		if containsAny(lowered, g.Keywords) {
			score += g.Weight
		}
	}

	switch {
	case score > s.max:
		return s.max
	case score < 0:
		return 0
	default:
		return score
	}
}

// Critical reports whether text mentions a topic keyword and a critical keyword.
func (s *Scorer) Critical(text string) bool {
	lowered := strings.ToLower(text)
	return containsAny(lowered, s.topic) && containsAny(lowered, s.critical)
}

// Scored pairs a value with its score.
type Scored[T any] struct {
	Item  T
	Score float64
}

// Rank scores every item with text and sorts by score descending.
// Equal scores keep their input order.
func Rank[T any](s *Scorer, items []T, text func(T) string) []Scored[T] {
	ranked := make([]Scored[T], len(items))
	for i, item := range items {
		ranked[i] = Scored[T]{Item: item, Score: s.Score(text(item))}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// TopN returns at most n leading entries of a ranked slice.
func TopN[T any](ranked []Scored[T], n int) []Scored[T] {
	if n < 0 {
		n = 0
	}
	if len(ranked) > n {
		return ranked[:n]
	}
	return ranked
}
