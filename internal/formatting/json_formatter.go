package formatting

import (
	"fmt"
	"io"
)

// jsonFormatter provides structured JSON output formatting
type jsonFormatter struct {
	options Options
}

func (f *jsonFormatter) GetOptions() Options {
	return f.options
}

func (f *jsonFormatter) FormatServers(w io.Writer, rows []ServerRow) error {
	if rows == nil {
		rows = []ServerRow{}
	}
	_, err := fmt.Fprintln(w, PrettyJSON(map[string]interface{}{"servers": rows, "count": len(rows)}))
	return err
}

func (f *jsonFormatter) FormatLines(w io.Writer, lines []string) error {
	if lines == nil {
		lines = []string{}
	}
	_, err := fmt.Fprintln(w, PrettyJSON(map[string]interface{}{"lines": lines}))
	return err
}
