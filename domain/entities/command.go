package entities

import (
	"strings"
	"time"
	"unicode"
)

// Utterance is one recognized speech result. It lives only for the duration
// of a single dispatch.
type Utterance struct {
	Raw        string    `json:"raw"`
	Seq        uint64    `json:"seq"`
	ReceivedAt time.Time `json:"received_at"`
}

// NormalizedCommand is an utterance lower-cased, trimmed, with punctuation
// stripped. Never mutated after creation.
type NormalizedCommand string

// NormalizeCommand derives a NormalizedCommand from raw recognized text.
func NormalizeCommand(raw string) NormalizedCommand {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return NormalizedCommand(strings.Join(strings.Fields(b.String()), " "))
}

// Contains reports whether the command contains the given phrase.
func (c NormalizedCommand) Contains(phrase string) bool {
	return strings.Contains(string(c), phrase)
}

// ContainsWord reports whether the command contains word as a whole word.
func (c NormalizedCommand) ContainsWord(word string) bool {
	for _, f := range strings.Fields(string(c)) {
		if f == word {
			return true
		}
	}
	return false
}

// ContainsAny reports whether the command contains any of the given phrases.
func (c NormalizedCommand) ContainsAny(phrases ...string) bool {
	for _, p := range phrases {
		if c.Contains(p) {
			return true
		}
	}
	return false
}

// String returns the normalized text.
func (c NormalizedCommand) String() string {
	return string(c)
}
