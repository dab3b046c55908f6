package symbols

import (
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

const maxHintDistance = 2

// suggest picks the visible name closest to an unresolved one: first a
// case-insensitive subsequence match, then the smallest edit distance.
// Both are bounded by the length of name, so a one-letter name is not
// matched to every candidate that happens to contain it.
func suggest(name string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}

	ranks := fuzzy.RankFindFold(name, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		if ranks[0].Distance <= len(name)+maxHintDistance {
			return fmt.Sprintf("did you mean '%s'?", ranks[0].Target)
		}
	}

	best, bestDist := "", min(maxHintDistance, len(name)-1)+1
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	if best == "" {
		return ""
	}
	return fmt.Sprintf("did you mean '%s'?", best)
}
