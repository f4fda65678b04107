// Package similarity computes the edit-similarity ratio used by the flood
// scorer and the fuzzy content filter.
package similarity

import "github.com/agnivade/levenshtein"

// Ratio returns a similarity score in [0, 1] between two strings: 1 for
// identical inputs, 0 for completely disjoint ones. The score is derived
// from the Levenshtein edit distance normalized by the longer input, so it
// is symmetric and rune-aware.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
