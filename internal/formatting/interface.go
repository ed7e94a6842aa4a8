// Package formatting renders fleet status and action output for the CLI and
// the interactive shell, in console, table, JSON or YAML form.
package formatting

import (
	"fmt"
	"io"
	"strings"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatConsole OutputFormat = "console" // Simple console output
	FormatJSON    OutputFormat = "json"    // JSON output
	FormatYAML    OutputFormat = "yaml"    // YAML output
	FormatTable   OutputFormat = "table"   // Rich table output
)

// ParseOutputFormat resolves a format name case-insensitively.
func ParseOutputFormat(name string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatConsole, FormatJSON, FormatYAML, FormatTable:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use table, console, json or yaml)", name)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Quiet  bool // Suppress decorative elements
	Color  bool // Enable colored output
}

// Formatter renders fleet data.
type Formatter interface {
	// FormatServers renders one row per profile.
	FormatServers(w io.Writer, rows []ServerRow) error

	// FormatLines renders the output lines of an action.
	FormatLines(w io.Writer, lines []string) error

	GetOptions() Options
}

// New creates the formatter for options.Format.
func New(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return &jsonFormatter{options: options}
	case FormatYAML:
		return &yamlFormatter{options: options}
	case FormatConsole:
		return &consoleFormatter{options: options}
	case FormatTable:
		fallthrough
	default:
		return &tableFormatter{options: options}
	}
}
