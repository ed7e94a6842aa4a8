package strings

import (
	"strings"
)

// DefaultErrorMaxLen is the maximum length of error text in console output.
const DefaultErrorMaxLen = 60

// MaxChatMessageLen is the longest message most chat platforms accept.
const MaxChatMessageLen = 2000

// MinTruncateLen is the minimum maxLen value for Truncate.
// Values smaller than this would not leave room for meaningful content plus "...".
const MinTruncateLen = 4

// Truncate collapses whitespace runs (including newlines) to single spaces and
// shortens s to at most maxLen runes, ending in "..." when shortened. maxLen is
// raised to MinTruncateLen.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
