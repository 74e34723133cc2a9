package voice

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/voxballot/server/domain/entities"
)

const (
	minOrdinal = 1
	maxOrdinal = 10
)

// Numeric patterns in fixed priority order. The first pattern that captures
// an in-range integer wins.
var ordinalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`candidate\s+(\d+)`),
	regexp.MustCompile(`number\s+(\d+)`),
	regexp.MustCompile(`vote\s+(?:for\s+)?(\d+)`),
	regexp.MustCompile(`select\s+(\d+)`),
	regexp.MustCompile(`choose\s+(\d+)`),
	regexp.MustCompile(`(?:^|\s)(\d+)(?:\s|$)`),
}

// ExtractOrdinal parses a normalized command for a target ordinal in
// [1, 10]. Absence is a missing result, never an error.
//
// When no numeric pattern matches, the word-number table is scanned in
// table order and the first table entry found as a substring wins, even if
// another number word occurs earlier in the utterance. That matches the
// long-standing dispatch behavior callers depend on.
func ExtractOrdinal(cmd entities.NormalizedCommand) (int, bool) {
	s := cmd.String()
	for _, pat := range ordinalPatterns {
		m := pat.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < minOrdinal || n > maxOrdinal {
			continue
		}
		return n, true
	}
	return wordNumber(s)
}

// wordNumber scans the word-number table in table order for the first entry
// occurring as a substring of the command.
func wordNumber(s string) (int, bool) {
	for _, wn := range wordNumbers {
		if strings.Contains(s, wn.word) {
			return wn.value, true
		}
	}
	return 0, false
}

// ContainsWordNumber reports whether the command mentions any spoken number
// word. Used by the vote-intent gate.
func ContainsWordNumber(cmd entities.NormalizedCommand) bool {
	_, ok := wordNumber(cmd.String())
	return ok
}
