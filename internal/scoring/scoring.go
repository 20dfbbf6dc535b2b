// Package scoring derives confidence and skill coverage from retrieval hits.
package scoring

import (
	"strings"

	"github.com/sheikhmdsamiul/swiftme/internal/retrieval"
)

// Confidence is the mean hit relevance doubled and clamped to [0, 1].
// No hits means 0.
func Confidence(hits []retrieval.Hit) float64 {
	if len(hits) == 0 {
		return 0
	}
	var sum float64
	for _, h := range hits {
		sum += h.Relevance
	}
	return clamp(sum/float64(len(hits))*2, 0, 1)
}

// MatchedSkills returns the required skills that occur, case-insensitively,
// as substrings of contextText. Input order is kept and a skill repeated
// with different casing is reported once, as first written.
func MatchedSkills(required []string, contextText string) []string {
	haystack := strings.ToLower(contextText)
	seen := make(map[string]bool, len(required))
	matched := []string{}
	for _, skill := range required {
		key := strings.ToLower(skill)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		if strings.Contains(haystack, key) {
			matched = append(matched, skill)
		}
	}
	return matched
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
