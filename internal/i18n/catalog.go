// Package i18n resolves message keys to localized strings.
//
// Catalogs are embedded yaml files, one per language. The catalog for the
// configured culture is matched with golang.org/x/text/language; keys missing in
// that catalog fall back to English.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

var fallbackTag = language.English

// Catalog is a read-only set of translations for one language.
type Catalog struct {
	tag      language.Tag
	messages map[string]string
	fallback map[string]string
}

// New returns the catalog best matching cultureName (for example "de-DE").
// An empty or unknown culture yields English.
func New(cultureName string) (*Catalog, error) {
	all, err := loadAll()
	if err != nil {
		return nil, err
	}

	tags := make([]language.Tag, 0, len(all))
	tags = append(tags, fallbackTag)
	for tag := range all {
		if tag != fallbackTag {
			tags = append(tags, tag)
		}
	}

	chosen := fallbackTag
	if strings.TrimSpace(cultureName) != "" {
		desired, err := language.Parse(cultureName)
		if err == nil {
			_, index, confidence := language.NewMatcher(tags).Match(desired)
			if confidence != language.No {
				chosen = tags[index]
			}
		}
	}

	return &Catalog{
		tag:      chosen,
		messages: all[chosen],
		fallback: all[fallbackTag],
	}, nil
}

func loadAll() (map[language.Tag]map[string]string, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded locales: %w", err)
	}

	all := make(map[language.Tag]map[string]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		tag, err := language.Parse(strings.TrimSuffix(name, path.Ext(name)))
		if err != nil {
			return nil, fmt.Errorf("locale file %s: %w", name, err)
		}
		data, err := localeFS.ReadFile(path.Join("locales", name))
		if err != nil {
			return nil, err
		}
		messages := map[string]string{}
		if err := yaml.Unmarshal(data, &messages); err != nil {
			return nil, fmt.Errorf("locale file %s: %w", name, err)
		}
		all[tag] = messages
	}
	if _, ok := all[fallbackTag]; !ok {
		return nil, fmt.Errorf("fallback locale %s is missing", fallbackTag)
	}
	return all, nil
}

// Language returns the language of the catalog.
func (c *Catalog) Language() language.Tag {
	return c.tag
}

// Translate returns the message for key. The second result is false when the key
// is unknown in both the selected and the fallback language.
func (c *Catalog) Translate(key string) (string, bool) {
	if msg, ok := c.messages[key]; ok {
		return msg, true
	}
	if msg, ok := c.fallback[key]; ok {
		return msg, true
	}
	return "", false
}

// T returns the message for key, or key itself when it is unknown.
func (c *Catalog) T(key string) string {
	if msg, ok := c.Translate(key); ok {
		return msg
	}
	return key
}

// Sprintf formats the message for key with args.
func (c *Catalog) Sprintf(key string, args ...interface{}) string {
	return fmt.Sprintf(c.T(key), args...)
}

// ResolveKey turns a "#"-prefixed message into its translation. Messages without
// the prefix are returned unchanged; unknown keys are returned without the "#".
func ResolveKey(message string, translate func(string) (string, bool)) string {
	if !strings.HasPrefix(message, "#") {
		return message
	}
	key := strings.TrimPrefix(message, "#")
	if translate != nil {
		if msg, ok := translate(key); ok && msg != "" {
			return msg
		}
	}
	return key
}
