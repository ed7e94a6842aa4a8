package template

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Engine renders profile launch arguments. Arguments are Go templates with the
// sprig function set, for example "-name {{ .Name | quote }}".
type Engine struct {
	// Pattern to match plain template variables like {{ .variableName }}
	templatePattern *regexp.Regexp

	mu    sync.Mutex
	cache map[string]*template.Template
}

// New creates a new template engine
func New() *Engine {
	return &Engine{
		templatePattern: regexp.MustCompile(`\{\{-?\s*\.([a-zA-Z_][a-zA-Z0-9_]*)`),
		cache:           make(map[string]*template.Template),
	}
}

// Render executes text against data. Text without actions is returned unchanged.
// Referencing a key that is missing from data is an error.
func (e *Engine) Render(text string, data map[string]interface{}) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := e.parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %q: %w", text, err)
	}
	return buf.String(), nil
}

// RenderAll renders every element of args.
func (e *Engine) RenderAll(args []string, data map[string]interface{}) ([]string, error) {
	result := make([]string, 0, len(args))
	for i, arg := range args {
		rendered, err := e.Render(arg, data)
		if err != nil {
			return nil, fmt.Errorf("error at index %d: %w", i, err)
		}
		result = append(result, rendered)
	}
	return result, nil
}

func (e *Engine) parse(text string) (*template.Template, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if tmpl, ok := e.cache[text]; ok {
		return tmpl, nil
	}
	tmpl, err := template.New("arg").
		Option("missingkey=error").
		Funcs(sprig.TxtFuncMap()).
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid template %q: %w", text, err)
	}
	e.cache[text] = tmpl
	return tmpl, nil
}

// ExtractVariables returns the sorted names of the top-level fields referenced by values.
func (e *Engine) ExtractVariables(values ...string) []string {
	variables := make(map[string]bool)
	for _, v := range values {
		for _, match := range e.templatePattern.FindAllStringSubmatch(v, -1) {
			if len(match) >= 2 {
				variables[match[1]] = true
			}
		}
	}

	result := make([]string, 0, len(variables))
	for varName := range variables {
		result = append(result, varName)
	}
	sort.Strings(result)
	return result
}

// Validate checks that values parse and only reference keys present in data.
func (e *Engine) Validate(values []string, data map[string]interface{}) error {
	for _, v := range values {
		if strings.Contains(v, "{{") {
			if _, err := e.parse(v); err != nil {
				return err
			}
		}
	}

	var missing []string
	for _, name := range e.ExtractVariables(values...) {
		if _, ok := data[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing template variables: %s", strings.Join(missing, ", "))
	}
	return nil
}
