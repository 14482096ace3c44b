package report

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// Ellipsis marks every cut made by this package.
	Ellipsis = "..."

	leadMaxRunes   = 150
	leadShortRunes = 100
	// StatementRunes bounds the key statement used for corroboration lookups.
	StatementRunes = 100
)

var sentenceBreak = regexp.MustCompile(`[.!?]+`)

func sentences(body string) []string {
	parts := sentenceBreak.Split(body, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Lead derives a one-sentence summary of body.
// A short first sentence is extended with the second one; the result is capped
// at 150 characters plus an ellipsis.
func Lead(body string) string {
	parts := sentences(body)
	if len(parts) == 0 {
		return ""
	}

	lead := parts[0]
	if len([]rune(lead)) < leadShortRunes && len(parts) > 1 {
		lead = lead + ". " + parts[1]
	}

	runes := []rune(lead)
	if len(runes) > leadMaxRunes {
		return strings.TrimRightFunc(string(runes[:leadMaxRunes]), unicode.IsSpace) + Ellipsis
	}
	return lead
}

// KeyStatement returns the first sentence of body cut to 100 characters.
func KeyStatement(body string) string {
	parts := sentences(body)
	if len(parts) == 0 {
		return ""
	}
	runes := []rune(parts[0])
	if len(runes) > StatementRunes {
		runes = runes[:StatementRunes]
	}
	return strings.TrimSpace(string(runes))
}

// Truncate limits text to budget characters. Longer text is cut at the last
// whitespace that leaves room for the ellipsis, so the result never exceeds
// budget and never splits a word or a code point.
func Truncate(text string, budget int) string {
	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}

	marker := []rune(Ellipsis)
	limit := budget - len(marker)
	if limit <= 0 {
		if budget <= 0 {
			return ""
		}
		return string(runes[:budget])
	}

	cut := limit
	if !unicode.IsSpace(runes[limit]) {
		cut = -1
		for i := limit - 1; i >= 0; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
		if cut < 0 {
			cut = limit
		}
	}

	head := strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace)
	return head + Ellipsis
}

// Clip cuts s to n characters without an ellipsis.
func Clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
