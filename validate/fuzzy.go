package validate

import (
	"sort"
	"strings"
)

// matchCutoff is the minimum similarity for a suggestion. Below it the
// candidate is more likely noise than a typo.
const matchCutoff = 0.6

// maxSuggestions caps how many near-matches a diagnostic carries.
const maxSuggestions = 3

// similarity scores two strings in [0,1] as 2*LCS/(len(a)+len(b)),
// case-insensitive. Equivalent in spirit to a sequence-matcher ratio:
// 1.0 is identical, 0.0 shares nothing.
func similarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	// Longest common subsequence, single-row DP.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[len(b)]
	return 2.0 * float64(lcs) / float64(len(a)+len(b))
}

// closestMatches returns up to maxSuggestions candidates scoring at or
// above matchCutoff, best first. Ties break alphabetically so output is
// deterministic.
func closestMatches(target string, candidates []string) []string {
	type scored struct {
		value string
		score float64
	}
	var matches []scored
	for _, c := range candidates {
		if s := similarity(target, c); s >= matchCutoff {
			matches = append(matches, scored{value: c, score: s})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].value < matches[j].value
	})

	if len(matches) > maxSuggestions {
		matches = matches[:maxSuggestions]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.value
	}
	return out
}
