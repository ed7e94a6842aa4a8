package formatting

import (
	"fmt"
	"io"

	pkgstrings "servermanager/pkg/strings"
)

// consoleFormatter prints one plain line per server.
type consoleFormatter struct {
	options Options
}

func (f *consoleFormatter) GetOptions() Options {
	return f.options
}

func (f *consoleFormatter) FormatServers(w io.Writer, rows []ServerRow) error {
	for _, r := range rows {
		line := fmt.Sprintf("%s\t%s", r.ID, r.State)
		if r.PID != 0 {
			line += fmt.Sprintf("\tpid=%d", r.PID)
		}
		if r.Error != "" && !f.options.Quiet {
			line += "\t" + pkgstrings.Truncate(r.Error, pkgstrings.DefaultErrorMaxLen)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func (f *consoleFormatter) FormatLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
