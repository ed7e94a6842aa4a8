package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks a loaded configuration. Bot settings are not checked here: the
// bot session host treats a missing token as "not configured" and reports a
// malformed prefix itself.
func Validate(c *Config) error {
	var errs ValidationErrors

	if strings.TrimSpace(c.DataPath) == "" {
		errs.Add("dataPath", "is required")
	}
	relative := []struct{ field, value string }{
		{"profilesRelativePath", c.ProfilesRelativePath},
		{"logsRelativePath", c.LogsRelativePath},
		{"backupRelativePath", c.BackupRelativePath},
	}
	for _, rel := range relative {
		if filepath.IsAbs(rel.value) {
			errs.Add(rel.field, "must be relative to dataPath", rel.value)
		}
	}
	if c.Automation.Parallelism < 0 {
		errs.Add("automation.parallelism", "must not be negative", c.Automation.Parallelism)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
