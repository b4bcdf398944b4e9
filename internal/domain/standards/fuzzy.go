package standards

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Fuzzy ranking limits for the two standard searches
const (
	referenceThreshold = 20
	referenceLimit     = 20
	lookupThreshold    = 30
	lookupLimit        = 10
)

// FuzzyMatch is a candidate name with its similarity score
type FuzzyMatch struct {
	Name  string
	Score int // 0-100, 100 is an exact match
}

// CloseMatches returns at most limit distinct candidates scoring at least
// threshold against query, best first. Equal scores keep candidate order.
func CloseMatches(query string, candidates []string, limit, threshold int) []FuzzyMatch {
	q := normalize(query)
	if q == "" {
		return nil
	}

	seen := make(map[string]bool, len(candidates))
	matches := make([]FuzzyMatch, 0)
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true

		score := fuzzyScore(q, normalize(c))
		if score >= threshold {
			matches = append(matches, FuzzyMatch{Name: c, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}
	return matches
}

// containsFold reports whether name contains keyword, ignoring case
func containsFold(name, keyword string) bool {
	return strings.Contains(normalize(name), normalize(keyword))
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// fuzzyScore combines containment, edit distance and in-order subsequence
// matching into a 0-100 similarity. Lengths are counted in runes.
func fuzzyScore(s1, s2 string) int {
	if s1 == s2 {
		return 100
	}

	len1 := utf8.RuneCountInString(s1)
	len2 := utf8.RuneCountInString(s2)
	if len1 == 0 || len2 == 0 {
		return 0
	}

	if strings.Contains(s1, s2) {
		return 75 + (25 * len2 / len1)
	}
	if strings.Contains(s2, s1) {
		return 75 + (25 * len1 / len2)
	}

	maxLen := max(len1, len2)
	distance := fuzzy.LevenshteinDistance(s1, s2)
	levenshteinScore := 100 * (maxLen - distance) / maxLen

	// Characters of the shorter name appearing in order in the longer one.
	subsequenceScore := 0
	switch {
	case len1 <= len2 && fuzzy.Match(s1, s2):
		subsequenceScore = 60 * len1 / len2
	case len2 < len1 && fuzzy.Match(s2, s1):
		subsequenceScore = 60 * len2 / len1
	}

	return max(levenshteinScore, subsequenceScore)
}
