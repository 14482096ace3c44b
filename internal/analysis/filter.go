package analysis

import "strings"

// leadLines is how many leading lines the topic filter inspects.
const leadLines = 2

// Filter retains posts whose opening lines mention a topic keyword.
type Filter struct {
	topic []string
}

// NewFilter builds a filter from a normalized profile.
func NewFilter(p Profile) *Filter {
	return &Filter{topic: p.Topic}
}

// Accept reports whether text mentions a topic keyword in its first two lines.
// Empty text is never accepted.
func (f *Filter) Accept(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	lines := strings.SplitN(text, "\n", leadLines+1)
	if len(lines) > leadLines {
		lines = lines[:leadLines]
	}
	head := strings.ToLower(strings.Join(lines, " "))

	return containsAny(head, f.topic)
}
