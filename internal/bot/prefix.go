package bot

import (
	"fmt"
	"strings"
	"unicode"
)

// PrefixDelimiter terminates every command prefix.
const PrefixDelimiter = "!"

// InvalidPrefixKey is the translation key reported for a malformed prefix.
const InvalidPrefixKey = "#DiscordBot_InvalidPrefixError"

// ConfigError rejects a bot configuration. Its message is a "#"-prefixed
// translation key.
type ConfigError struct {
	Key   string
	Value string
}

func (e *ConfigError) Error() string {
	return e.Key
}

// NormalizePrefix validates prefix and makes sure it ends with PrefixDelimiter.
// Applying it to its own result returns the same value.
func NormalizePrefix(prefix string) (string, error) {
	body := strings.TrimSuffix(prefix, PrefixDelimiter)
	if body == "" {
		return "", &ConfigError{Key: InvalidPrefixKey, Value: prefix}
	}
	for _, r := range body {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return "", &ConfigError{Key: InvalidPrefixKey, Value: prefix}
		}
	}
	return body + PrefixDelimiter, nil
}

// describe is used in log lines only.
func (e *ConfigError) describe() string {
	return fmt.Sprintf("%s (%q)", strings.TrimPrefix(e.Key, "#"), e.Value)
}
