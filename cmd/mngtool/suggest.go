package main

import (
	"github.com/agnivade/levenshtein"
)

const maxSuggestDistance = 2

// suggest returns the closest candidate within maxSuggestDistance edits,
// or "" when nothing is close enough.
func suggest(input string, candidates []string) string {
	best, bestDist := "", maxSuggestDistance+1
	for _, c := range candidates {
		if d := levenshtein.ComputeDistance(input, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
