package resolver

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	// phoneticThreshold is the minimum Jaro-Winkler score for a
	// phonetically-aligned roster name to be accepted.
	phoneticThreshold = 0.70

	// fuzzyThreshold is the higher bar applied when no phonetic candidate
	// exists and pure string similarity is the only signal.
	fuzzyThreshold = 0.85
)

// matchRoster maps a spoken name onto the closest roster name. STT engines
// routinely mangle player names ("Jaylen Green" for "Jalen Green"), so when
// exact matching fails the resolver consults this before giving up.
//
// Stage 1 filters roster names by Double Metaphone code overlap on any word
// pair, then ranks candidates by Jaro-Winkler similarity of the full names.
// Stage 2, reached only when no phonetic candidate clears the bar, accepts
// a pure Jaro-Winkler match above the stricter fuzzy threshold.
//
// Returns ("", false) when nothing on the roster is close enough.
func matchRoster(spoken string, roster []string) (string, bool) {
	spoken = strings.ToLower(strings.TrimSpace(spoken))
	if spoken == "" || len(roster) == 0 {
		return "", false
	}

	var (
		best      string
		bestScore float64
	)
	for _, name := range roster {
		if !phoneticOverlap(spoken, strings.ToLower(name)) {
			continue
		}
		if score := matchr.JaroWinkler(spoken, strings.ToLower(name), true); score > bestScore {
			best, bestScore = name, score
		}
	}
	if best != "" && bestScore >= phoneticThreshold {
		return best, true
	}

	best, bestScore = "", 0
	for _, name := range roster {
		if score := matchr.JaroWinkler(spoken, strings.ToLower(name), true); score > bestScore {
			best, bestScore = name, score
		}
	}
	if best != "" && bestScore >= fuzzyThreshold {
		return best, true
	}
	return "", false
}

// phoneticOverlap reports whether any word of a shares a Double Metaphone
// code with any word of b.
func phoneticOverlap(a, b string) bool {
	for _, wa := range strings.Fields(a) {
		pa, sa := matchr.DoubleMetaphone(wa)
		for _, wb := range strings.Fields(b) {
			pb, sb := matchr.DoubleMetaphone(wb)
			if codeMatch(pa, sa, pb, sb) {
				return true
			}
		}
	}
	return false
}

// codeMatch compares primary/secondary metaphone code pairs.
func codeMatch(pa, sa, pb, sb string) bool {
	if pa != "" && (pa == pb || pa == sb) {
		return true
	}
	if sa != "" && (sa == pb || sa == sb) {
		return true
	}
	return false
}
