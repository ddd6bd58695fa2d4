package validate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Overrides maps a canonical key to the key intentionally persisted
// instead: disambiguation, URL readability, punctuation preferences.
type Overrides map[string]string

// Resolve returns the key expected in storage for a canonical key.
func (o Overrides) Resolve(canonical string) string {
	if actual, ok := o[canonical]; ok {
		return actual
	}
	return canonical
}

// DefaultArtistOverrides returns the built-in artist override table.
func DefaultArtistOverrides() Overrides {
	return Overrides{
		// Remove "The" prefix for cleaner keys.
		"the-beach-boys": "beach-boys",
		"art-of-noise":   "the-art-of-noise",

		// Preserve "and" for readability.
		"echo-the-bunnymen":    "echo-and-the-bunnymen",
		"peter-hook-the-light": "peter-hook-and-the-light",

		// The Beat (UK) vs The Beat (US).
		"the-beat": "the-english-beat",

		// Keep recognizable abbreviations.
		"run-d-m-c": "run-dmc",
		"tone-l-c":  "tone-loc",

		// Yazoo (UK) known as Yaz (US).
		"yazoo": "yaz",
	}
}

// LoadOverrides reads an override table document. A missing file
// falls back to the built-in table.
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultArtistOverrides(), nil
		}
		return nil, fmt.Errorf("reading override table: %w", err)
	}
	overrides := Overrides{}
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parsing override table %s: %w", path, err)
	}
	return overrides, nil
}
