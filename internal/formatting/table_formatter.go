package formatting

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	pkgstrings "servermanager/pkg/strings"
)

// tableFormatter provides rich table output formatting
type tableFormatter struct {
	options Options
}

func (f *tableFormatter) GetOptions() Options {
	return f.options
}

// createTable creates a new table with standard styling
func (f *tableFormatter) createTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	if !f.options.Color {
		t.Style().Color = table.ColorOptionsDefault
	}
	return t
}

func (f *tableFormatter) colorize(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}

func (f *tableFormatter) FormatServers(w io.Writer, rows []ServerRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, f.colorize(text.FgYellow, "No servers configured"))
		return err
	}

	t := f.createTable(w)
	t.AppendHeader(table.Row{"ID", "NAME", "STATE", "PID", "CPU", "MEMORY", "UPTIME", "AUTO"})
	for _, r := range rows {
		t.AppendRow(table.Row{
			r.ID,
			r.Name,
			f.colorize(stateColor(r.State), r.State),
			optional(r.PID != 0, fmt.Sprint(r.PID)),
			optional(r.PID != 0, fmt.Sprintf("%.1f%%", r.CPUPercent)),
			optional(r.MemoryRSS != 0, pkgstrings.HumanBytes(r.MemoryRSS)),
			optional(r.Uptime != 0, r.Uptime.String()),
			autoFlags(r),
		})
	}
	if !f.options.Quiet {
		t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d server(s)", len(rows))})
	}
	t.Render()
	return nil
}

func (f *tableFormatter) FormatLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func stateColor(state string) text.Color {
	switch state {
	case "Running":
		return text.FgGreen
	case "Failed":
		return text.FgRed
	case "Starting", "Stopping", "Updating":
		return text.FgYellow
	default:
		return text.FgHiBlack
	}
}

func optional(ok bool, s string) string {
	if !ok {
		return "-"
	}
	return s
}

func autoFlags(r ServerRow) string {
	switch {
	case r.AutoUpdate && r.AutoBackup:
		return "update,backup"
	case r.AutoUpdate:
		return "update"
	case r.AutoBackup:
		return "backup"
	default:
		return "-"
	}
}
