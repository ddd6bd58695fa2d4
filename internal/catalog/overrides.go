package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GenreOverrides maps a normalized artist key to a hand-picked genre
// that beats whatever enrichment derives.
type GenreOverrides map[string]string

// LoadGenreOverrides reads the genre override document. A missing file
// means no overrides.
func LoadGenreOverrides(path string) (GenreOverrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return GenreOverrides{}, nil
		}
		return nil, fmt.Errorf("reading genre overrides: %w", err)
	}
	overrides := GenreOverrides{}
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parsing genre overrides %s: %w", path, err)
	}
	return overrides, nil
}
