package analysis

import "strings"

// Classifier assigns exactly one category per text, first match wins.
type Classifier struct {
	categories []Category
	fallback   Category
}

// NewClassifier builds a classifier from a normalized profile.
func NewClassifier(p Profile) *Classifier {
	return &Classifier{categories: p.Categories, fallback: p.Default}
}

// Classify returns the earliest listed category with a keyword hit, or the default.
func (c *Classifier) Classify(text string) Category {
	lowered := strings.ToLower(text)
	for _, cat := range c.categories {
		if containsAny(lowered, cat.Keywords) {
			return cat
		}
	}
	return c.fallback
}
