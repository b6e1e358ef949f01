package ui

import (
	"sort"
	"strings"
)

const (
	maxSuggestionDistance = 3
	maxSuggestions        = 3
)

// FindSimilar returns up to three candidates within edit distance three of
// target, closest first. Matching is case-insensitive; results keep the
// candidates' original spelling.
func FindSimilar(target string, candidates []string) []string {
	type scored struct {
		value string
		dist  int
	}
	want := strings.ToLower(target)

	var near []scored
	for _, candidate := range candidates {
		d := LevenshteinDistance(want, strings.ToLower(candidate))
		if d <= maxSuggestionDistance {
			near = append(near, scored{candidate, d})
		}
	}
	sort.SliceStable(near, func(i, j int) bool { return near[i].dist < near[j].dist })
	if len(near) > maxSuggestions {
		near = near[:maxSuggestions]
	}

	out := make([]string, len(near))
	for i, s := range near {
		out[i] = s.value
	}
	return out
}

// LevenshteinDistance counts the single-character insertions, deletions, and
// substitutions needed to turn a into b. Two-row dynamic programming, so
// memory stays O(len(b)).
func LevenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
