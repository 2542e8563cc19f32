package locale

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed *.yaml
var bundled embed.FS

// DefaultLanguage is used when no language is configured.
const DefaultLanguage = "en"

// Bundle is a flat key → text table for one language.
// Unknown keys resolve to themselves.
type Bundle struct {
	lang    string
	entries map[string]string
}

// Load returns the embedded bundle for lang.
func Load(lang string) (*Bundle, error) {
	if lang == "" {
		lang = DefaultLanguage
	}
	data, err := bundled.ReadFile(lang + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unsupported language %q: %w", lang, err)
	}
	return parse(lang, data)
}

// LoadFile reads a bundle from disk, e.g. a customer-provided translation.
func LoadFile(lang, path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read locale file: %w", err)
	}
	return parse(lang, data)
}

func parse(lang string, data []byte) (*Bundle, error) {
	entries := make(map[string]string)
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse locale %s: %w", lang, err)
	}
	return &Bundle{lang: lang, entries: entries}, nil
}

// Language returns the bundle language code.
func (b *Bundle) Language() string { return b.lang }

// Text resolves key.
func (b *Bundle) Text(key string) string {
	if v, ok := b.entries[key]; ok {
		return v
	}
	return key
}

// Format resolves key and applies it as a fmt template.
func (b *Bundle) Format(key string, args ...any) string {
	return fmt.Sprintf(b.Text(key), args...)
}

// Merge overlays other on top of b; entries in other win.
func (b *Bundle) Merge(other *Bundle) *Bundle {
	merged := make(map[string]string, len(b.entries)+len(other.entries))
	for k, v := range b.entries {
		merged[k] = v
	}
	for k, v := range other.entries {
		merged[k] = v
	}
	return &Bundle{lang: b.lang, entries: merged}
}
