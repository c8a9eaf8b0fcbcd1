package grammar

import (
	"strconv"
	"strings"
)

// numberWords maps spoken number words to their digit values. Covers the
// range an equipment manager plausibly speaks in one command.
var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18,
	"nineteen": 19, "twenty": 20,
	"a": 1, "an": 1,
}

// homophones maps words STT engines commonly emit in place of digits.
// This is a known-risky heuristic: "to", "for", and "ate" are ordinary
// English words, so they are only rewritten when they sit in a quantity
// slot (see quantitySlot).
var homophones = map[string]int{
	"to": 2, "too": 2, "for": 4, "ate": 8,
}

// quantityTriggers are verbs that commonly precede a spoken quantity.
var quantityTriggers = map[string]bool{
	"add": true, "remove": true, "delete": true, "give": true,
	"gave": true, "order": true, "buy": true, "subtract": true,
	"plus": true, "minus": true, "away": true, "in": true,
	"over": true, "pass": true, "donate": true, "put": true,
	"place": true, "create": true, "increase": true, "decrease": true,
	"got": true, "received": true,
}

// quantityNouns are words that commonly follow a spoken quantity.
var quantityNouns = map[string]bool{
	"jersey": true, "jerseys": true, "icon": true, "statement": true,
	"statements": true, "association": true, "associations": true,
	"city": true, "more": true, "units": true, "icons": true,
}

// normalize lowercases the transcript and rewrites spoken numbers to digits.
// Plain number words ("five") are always rewritten; ambiguous homophones
// ("for" → 4) only when both neighbours suggest a quantity position, so
// "for Jalen" and "set size to 48" survive untouched.
func normalize(transcript string) string {
	tokens := strings.Fields(strings.ToLower(transcript))
	for i, tok := range tokens {
		clean := strings.Trim(tok, ".,!?;:'\"")
		if n, ok := numberWords[clean]; ok {
			// "a"/"an" only count as a quantity right before a noun:
			// "add a jersey" yes, "a size 48" no.
			if (clean == "a" || clean == "an") && !followedByNoun(tokens, i) {
				continue
			}
			tokens[i] = strconv.Itoa(n)
			continue
		}
		if n, ok := homophones[clean]; ok && quantitySlot(tokens, i) {
			tokens[i] = strconv.Itoa(n)
		}
	}
	return strings.Join(tokens, " ")
}

// quantitySlot reports whether the token at position i sits where a spoken
// quantity belongs: directly after a quantity verb, or directly before a
// jersey/edition noun.
func quantitySlot(tokens []string, i int) bool {
	if i > 0 {
		prev := strings.Trim(tokens[i-1], ".,!?;:'\"")
		if quantityTriggers[prev] {
			return true
		}
	}
	return followedByNoun(tokens, i)
}

// followedByNoun reports whether the token after position i is a quantity
// noun (jersey, an edition name, "more", ...).
func followedByNoun(tokens []string, i int) bool {
	if i+1 >= len(tokens) {
		return false
	}
	next := strings.Trim(tokens[i+1], ".,!?;:'\"")
	return quantityNouns[next]
}
