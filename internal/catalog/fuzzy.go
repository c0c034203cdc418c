package catalog

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultFuzzyThreshold is the similarity a window must reach to count as a
// reflection of the vector.
const DefaultFuzzyThreshold = 0.8

// FuzzyMatcher finds payloads that come back slightly mangled: a stripped
// quote, a changed case, an inserted space.
type FuzzyMatcher struct {
	threshold float64
	dmp       *diffmatchpatch.DiffMatchPatch
}

// NewFuzzyMatcher creates a matcher. Thresholds outside (0, 1] fall back to
// DefaultFuzzyThreshold.
func NewFuzzyMatcher(threshold float64) *FuzzyMatcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultFuzzyThreshold
	}
	return &FuzzyMatcher{threshold: threshold, dmp: diffmatchpatch.New()}
}

// Similarity returns 1 - editDistance/maxLen for a and b.
func (fm *FuzzyMatcher) Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	diffs := fm.dmp.DiffMain(a, b, false)
	return 1.0 - float64(fm.dmp.DiffLevenshtein(diffs))/float64(maxLen)
}

// Find searches body for the window most similar to payload, case
// insensitively. It returns the matched text and its offset, or "" and -1.
func (fm *FuzzyMatcher) Find(body, payload string) (string, int) {
	if payload == "" || len(body) < len(payload)/2 {
		return "", -1
	}
	lowerBody := foldASCII(body)
	lowerPayload := foldASCII(payload)

	if idx := strings.Index(lowerBody, lowerPayload); idx != -1 {
		return body[idx : idx+len(payload)], idx
	}

	// A window may be up to 30% longer than the payload to absorb insertions.
	windowSize := len(payload) + len(payload)*3/10
	first := lowerPayload[0]

	bestMatch, bestIdx, bestRatio := "", -1, 0.0
	for i := 0; i < len(lowerBody); i++ {
		// windows start where the payload could start
		if lowerBody[i] != first {
			continue
		}
		end := i + windowSize
		if end > len(lowerBody) {
			end = len(lowerBody)
		}
		window := lowerBody[i:end]
		ratio := fm.bestPrefix(lowerPayload, window)
		if ratio > bestRatio && ratio >= fm.threshold {
			bestRatio = ratio
			bestMatch = body[i:end]
			bestIdx = i
		}
	}
	return bestMatch, bestIdx
}

// foldASCII lowercases A-Z only. Offsets into the result stay valid in s,
// which strings.ToLower does not promise for invalid UTF-8 or runes whose
// lower case is longer.
func foldASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

// bestPrefix compares payload against every prefix of window no shorter than
// payload minus 30% and returns the best similarity.
func (fm *FuzzyMatcher) bestPrefix(payload, window string) float64 {
	minLen := len(payload) - len(payload)*3/10
	if minLen < 1 {
		minLen = 1
	}
	best := 0.0
	for n := len(window); n >= minLen; n-- {
		if r := fm.Similarity(payload, window[:n]); r > best {
			best = r
		}
	}
	return best
}

// Matches reports whether a fuzzy reflection of payload is present in body.
func (fm *FuzzyMatcher) Matches(body, payload string) bool {
	_, idx := fm.Find(body, payload)
	return idx >= 0
}
