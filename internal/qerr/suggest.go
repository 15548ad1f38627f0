package qerr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// maxSuggestDistance bounds the edit distance for typo suggestions.
const maxSuggestDistance = 3

// Suggest returns a did-you-mean hint for unknown among candidates, or ""
// when nothing is close enough.
//
// Subsequence matches (case-insensitive) are preferred, e.g. "Intger" for
// "Integer"; otherwise the candidate with the smallest Levenshtein distance
// within maxSuggestDistance is used.
func Suggest(unknown string, candidates []string) string {
	if unknown == "" || len(candidates) == 0 {
		return ""
	}

	ranks := fuzzy.RankFindFold(unknown, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return fmt.Sprintf("did you mean %q?", ranks[0].Target)
	}

	best := ""
	bestDist := maxSuggestDistance + 1
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)
	for _, c := range sorted {
		d := fuzzy.LevenshteinDistance(strings.ToLower(unknown), strings.ToLower(c))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	if best == "" {
		return ""
	}
	return fmt.Sprintf("did you mean %q?", best)
}
