package services

import (
	"strings"
	"unicode"
)

// NormalizeTitle lower-cases, replaces non-alphanumerics with spaces and
// collapses whitespace
func NormalizeTitle(title string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, title)
	return strings.Join(strings.Fields(mapped), " ")
}

// meaningfulWords returns the distinct words of a normalized title that are
// at least minLen characters long
func meaningfulWords(normalized string, minLen int) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(normalized) {
		if len([]rune(w)) >= minLen {
			words[w] = struct{}{}
		}
	}
	return words
}

// overlap is the share of a's words that also appear in b
func overlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 {
		return 0
	}
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(a))
}

// TitlesSimilar applies the symmetric word-overlap test. Titles with fewer
// than cfg.ShortTitleWords meaningful words must match exactly after
// normalization.
func TitlesSimilar(a, b string, cfg GroupingConfig) bool {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na == nb {
		return true
	}

	wa := meaningfulWords(na, cfg.MinWordLength)
	wb := meaningfulWords(nb, cfg.MinWordLength)
	if len(wa) < cfg.ShortTitleWords || len(wb) < cfg.ShortTitleWords {
		return false
	}

	threshold := cfg.SimilarityThreshold - floatTolerance
	return overlap(wa, wb) >= threshold && overlap(wb, wa) >= threshold
}
