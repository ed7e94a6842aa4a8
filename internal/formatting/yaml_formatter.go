package formatting

import (
	"io"

	"gopkg.in/yaml.v3"
)

// yamlFormatter provides YAML output formatting
type yamlFormatter struct {
	options Options
}

func (f *yamlFormatter) GetOptions() Options {
	return f.options
}

func (f *yamlFormatter) encode(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (f *yamlFormatter) FormatServers(w io.Writer, rows []ServerRow) error {
	if rows == nil {
		rows = []ServerRow{}
	}
	return f.encode(w, map[string]interface{}{"servers": rows, "count": len(rows)})
}

func (f *yamlFormatter) FormatLines(w io.Writer, lines []string) error {
	if lines == nil {
		lines = []string{}
	}
	return f.encode(w, map[string]interface{}{"lines": lines})
}
