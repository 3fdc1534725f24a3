// Package fuzzy implements the case-insensitive edit-distance similarity
// used to resolve near-miss crop and region names.
package fuzzy

import "unicode"

// Distance returns the Levenshtein edit distance between a and b,
// comparing runes case-insensitively.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	m, n := len(ra), len(rb)
	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}
	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 1
			if unicode.ToLower(ra[i-1]) == unicode.ToLower(rb[j-1]) {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[n]
}

// Similarity returns 1 − distance/max(len(a), len(b)), in [0,1].
// Two empty strings are identical; one empty string scores 0.
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	return 1 - float64(Distance(a, b))/float64(maxLen)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
