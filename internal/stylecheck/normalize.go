// Package stylecheck matches design text layers to live DOM text nodes
// and compares declared styles against computed styles.
package stylecheck

import "strings"

// NormalizeText produces the canonical form used for matching: trimmed,
// case-folded, inner whitespace collapsed to single spaces.
func NormalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Similarity returns a score in [0,1] for two normalized strings.
// Identical strings score 1.0; otherwise the score is the Levenshtein
// distance normalized by the longer length. Substring containment falls
// out of this naturally: a string scores len(short)/len(long) against
// any superstring.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	maxLen := max(len([]rune(a)), len([]rune(b)))
	return 1.0 - float64(levenshtein(a, b))/float64(maxLen)
}

// levenshtein computes the edit distance between two strings over runes.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
