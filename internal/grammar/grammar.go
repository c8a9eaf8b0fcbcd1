// Package grammar implements the deterministic, rule-based transcript
// interpreter. It is the guaranteed fallback path when the NLU adapter is
// unavailable: a fixed table of regex patterns is checked in priority order
// and the first match wins.
//
// Interpret never fails — input that matches no pattern yields a command of
// type unknown.
package grammar

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/equiproom/jerseyvox/internal/command"
)

// pattern pairs a compiled trigger regex with the builder that turns the
// normalised transcript into a command. Patterns are checked in table order;
// the first whose trigger matches produces the result.
type pattern struct {
	// name is a human-readable label for logging and tests.
	name string

	// trigger decides whether this pattern applies.
	trigger *regexp.Regexp

	// build constructs the command from the normalised transcript.
	build func(in *Interpreter, s string) command.Command
}

// Interpreter maps transcripts to structured commands using a fixed rule
// table. It is stateless and safe for concurrent use.
type Interpreter struct {
	patterns []pattern
}

// New returns an Interpreter with the built-in pattern table.
func New() *Interpreter {
	in := &Interpreter{}
	in.patterns = defaultPatterns()
	return in
}

// Interpret maps a raw transcript to exactly one command. It never returns
// an error; unparseable input yields a command of type unknown.
func (in *Interpreter) Interpret(transcript string) command.Command {
	s := normalize(transcript)
	if strings.TrimSpace(s) == "" {
		return command.Unknown()
	}
	for _, p := range in.patterns {
		if p.trigger.MatchString(s) {
			return p.build(in, s)
		}
	}
	return command.Unknown()
}

// ─── pattern table ───────────────────────────────────────────────────────────

var (
	reTurnIn       = regexp.MustCompile(`\b(give away|hand over|turn in|turn over|give|pass|donate)\b`)
	reDirectDelete = regexp.MustCompile(`\b(delete|remove)\s+(\d+)\s+(icons?|statements?|associations?|city)\s+jerseys?\b`)
	reClearDelete  = regexp.MustCompile(`\b(delete|remove all|clear)\b`)
	reAdd          = regexp.MustCompile(`\b(add|plus|increase|more|additional|put|place|create)\b`)
	reRemove       = regexp.MustCompile(`\b(remove|subtract|minus|decrease|take away)\b`)
	reSet          = regexp.MustCompile(`\b(set|update)\b.*\bto\s+\d+\b`)
	reOrder        = regexp.MustCompile(`\b(order|reorder|buy)\b`)
	reLaundry      = regexp.MustCompile(`\b(arrived|returned|back|received|delivered)\b.*\bfrom\s+(the\s+)?(laundry|cleaners?|wash)\b`)

	reSetSize   = regexp.MustCompile(`\bsize\s+to\s+(\d+)\b`)
	reSetTarget = regexp.MustCompile(`\bto\s+(\d+)\b`)
	reSizeField = regexp.MustCompile(`\bsize\s+(\d+)\b`)
	reRecipient = regexp.MustCompile(`\bto\s+([a-z]+(?:\s+[a-z]+)?)\s*$`)
)

// defaultPatterns returns the rule table. Order is significant: give-away
// verbs outrank delete, delete outranks add, and so on down to the laundry
// return catch-all.
func defaultPatterns() []pattern {
	return []pattern{
		{
			name:    "turn-in",
			trigger: reTurnIn,
			build: func(in *Interpreter, s string) command.Command {
				c := command.Command{
					Type:     command.TypeTurnIn,
					Quantity: extractQuantity(s),
					Size:     extractSize(s),
				}
				c.Edition, _ = extractEdition(s)
				c.Recipient = extractRecipient(s)
				if c.Recipient != "" {
					// Drop the trailing "to <name>" so the recipient
					// cannot be mistaken for the player.
					s = reRecipient.ReplaceAllString(s, "")
				}
				c.PlayerName = extractPlayer(s)
				return c
			},
		},
		{
			name:    "direct-delete",
			trigger: reDirectDelete,
			build: func(in *Interpreter, s string) command.Command {
				m := reDirectDelete.FindStringSubmatch(s)
				qty, _ := strconv.Atoi(m[2])
				ed, _ := command.ParseEdition(m[3])
				return command.Command{
					Type:     command.TypeDelete,
					Quantity: qty,
					Edition:  ed,
					Size:     extractSize(s),
				}
			},
		},
		{
			name:    "clear-delete",
			trigger: reClearDelete,
			build: func(in *Interpreter, s string) command.Command {
				c := command.Command{
					Type:       command.TypeDelete,
					Quantity:   extractQuantity(s),
					Size:       extractSize(s),
					PlayerName: extractPlayer(s),
				}
				c.Edition, _ = extractEdition(s)
				return c
			},
		},
		{
			name:    "add",
			trigger: reAdd,
			build: func(in *Interpreter, s string) command.Command {
				c := command.Command{
					Type:       command.TypeAdd,
					Quantity:   extractQuantity(s),
					Size:       extractSize(s),
					PlayerName: extractPlayer(s),
				}
				c.Edition, _ = extractEdition(s)
				return c
			},
		},
		{
			name:    "remove",
			trigger: reRemove,
			build: func(in *Interpreter, s string) command.Command {
				c := command.Command{
					Type:       command.TypeRemove,
					Quantity:   extractQuantity(s),
					Size:       extractSize(s),
					PlayerName: extractPlayer(s),
				}
				c.Edition, _ = extractEdition(s)
				return c
			},
		},
		{
			name:    "set",
			trigger: reSet,
			build: func(in *Interpreter, s string) command.Command {
				// "set size to 52" mutates the size field; any other
				// "set ... to N" mutates the quantity. The surrounding
				// "size" keyword is the disambiguator.
				if m := reSetSize.FindStringSubmatch(s); m != nil {
					c := command.Command{
						Type:       command.TypeSet,
						Notes:      command.NotesSetSize,
						Size:       m[1],
						PlayerName: extractPlayer(s),
					}
					c.Edition, _ = extractEdition(s)
					return c
				}
				m := reSetTarget.FindStringSubmatch(s)
				target, _ := strconv.Atoi(m[1])
				c := command.Command{
					Type:           command.TypeSet,
					TargetQuantity: target,
					Size:           extractSize(s),
					PlayerName:     extractPlayer(s),
				}
				c.Edition, _ = extractEdition(s)
				return c
			},
		},
		{
			name:    "order",
			trigger: reOrder,
			build: func(in *Interpreter, s string) command.Command {
				c := command.Command{
					Type:       command.TypeOrder,
					Quantity:   extractQuantity(s),
					Size:       extractSize(s),
					PlayerName: extractPlayer(s),
				}
				c.Edition, _ = extractEdition(s)
				return c
			},
		},
		{
			name:    "laundry-return",
			trigger: reLaundry,
			build: func(in *Interpreter, s string) command.Command {
				c := command.Command{
					Type:       command.TypeLaundryReturn,
					Quantity:   extractQuantity(s),
					Size:       extractSize(s),
					PlayerName: extractPlayer(s),
				}
				c.Edition, _ = extractEdition(s)
				return c
			},
		},
	}
}

// ─── field extraction ────────────────────────────────────────────────────────

// stopWords are domain keywords that can never be part of a player name.
var stopWords = map[string]bool{
	"jersey": true, "jerseys": true, "size": true, "edition": true,
	"icon": true, "icons": true, "statement": true, "statements": true,
	"association": true, "associations": true, "city": true,
	"to": true, "for": true, "of": true, "the": true,
	"all": true, "laundry": true, "cleaners": true, "wash": true,
	"from": true, "back": true, "more": true,
	// command verbs that can end up adjacent to the "jerseys" anchor
	"add": true, "remove": true, "delete": true, "set": true,
	"give": true, "turn": true, "order": true, "clear": true,
	"put": true, "place": true, "create": true, "buy": true,
	"update": true, "in": true, "away": true, "over": true,
}

// extractQuantity returns the first standalone integer that is not a size
// value ("size 48") and not a set target ("to 5"). Returns 0 when the
// transcript carries no usable quantity.
func extractQuantity(s string) int {
	tokens := strings.Fields(s)
	for i, tok := range tokens {
		n, err := strconv.Atoi(tok)
		if err != nil {
			continue
		}
		if i > 0 {
			prev := tokens[i-1]
			if prev == "size" || prev == "to" {
				continue
			}
		}
		return n
	}
	return 0
}

// extractSize returns the value of an explicit "size N" phrase, or "".
func extractSize(s string) string {
	if m := reSizeField.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

// extractEdition scans for any canonical edition name in the transcript.
func extractEdition(s string) (command.Edition, bool) {
	for _, tok := range strings.Fields(s) {
		if ed, ok := command.ParseEdition(tok); ok {
			return ed, true
		}
	}
	return "", false
}

// extractRecipient captures the trailing "to <name>" of a give-away phrase.
// Digits and stop-listed words never form a recipient.
func extractRecipient(s string) string {
	m := reRecipient.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	name := cleanName(m[1])
	return name
}

// playerPatterns are tried in order against the normalised transcript.
// Each captures a candidate one- or two-word name span.
var playerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:for|to)\s+([a-z]+(?:\s+[a-z]+)?)`),
	regexp.MustCompile(`\b([a-z]+(?:\s+[a-z]+)?)(?:'s)?\s+jerseys?\b`),
	regexp.MustCompile(`\b(?:add|remove|set|delete|order)\s+([a-z]+(?:\s+[a-z]+)?)`),
}

// extractPlayer extracts a best-effort player name. Edition words, size
// phrases, and bare numbers are stripped first so "jalen green icon
// jerseys" yields the full name rather than the word next to "jerseys".
func extractPlayer(s string) string {
	s = stripFieldTokens(s)
	for _, re := range playerPatterns {
		for _, m := range re.FindAllStringSubmatch(s, -1) {
			if name := cleanName(m[1]); name != "" {
				return name
			}
		}
	}
	return ""
}

// fieldTokens are transcript words that carry edition or size information
// and therefore sit between the player name and the "jerseys" anchor.
var fieldTokens = map[string]bool{
	"icon": true, "icons": true, "statement": true, "statements": true,
	"association": true, "associations": true, "city": true, "size": true,
}

// stripFieldTokens removes edition words, the "size" keyword, and bare
// numbers from the transcript before player-name matching.
func stripFieldTokens(s string) string {
	var kept []string
	for _, tok := range strings.Fields(s) {
		if fieldTokens[tok] {
			continue
		}
		if _, err := strconv.Atoi(tok); err == nil {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// cleanName drops stop words and digits from a candidate span and
// title-cases the remainder. Returns "" when no name tokens survive.
func cleanName(span string) string {
	var kept []string
	for _, tok := range strings.Fields(span) {
		tok = strings.TrimSuffix(tok, "'s")
		if stopWords[tok] {
			// A stop word ends the name span; "jalen green for the team"
			// must not leak "the team" into the name.
			if len(kept) > 0 {
				break
			}
			continue
		}
		if _, err := strconv.Atoi(tok); err == nil {
			continue
		}
		kept = append(kept, titleCase(tok))
	}
	return strings.Join(kept, " ")
}

// titleCase uppercases the first letter of an ASCII word.
func titleCase(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}
