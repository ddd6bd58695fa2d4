// Package config loads gigbook configuration from a YAML file with
// environment overrides. Provider credentials come exclusively from
// the environment; a missing optional credential disables that
// provider rather than failing the run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Data    DataConfig    `yaml:"data"`
	Backup  BackupConfig  `yaml:"backup"`
	Watch   WatchConfig   `yaml:"watch"`
	Logging LoggingConfig `yaml:"logging"`

	// Credentials are populated from the environment, never from the
	// config file.
	Credentials Credentials `yaml:"-"`
}

// DataConfig holds the artifact and cache file locations.
type DataConfig struct {
	Dir            string `yaml:"dir"`
	InputCSV       string `yaml:"input_csv"`
	Catalog        string `yaml:"catalog"`
	ArtistMetadata string `yaml:"artist_metadata"`
	GeocodeCache   string `yaml:"geocode_cache"`
	PlacesCache    string `yaml:"places_cache"`
	GenreOverrides string `yaml:"genre_overrides"`
	KeyOverrides   string `yaml:"key_overrides"`
	JournalDB      string `yaml:"journal_db"`
}

// BackupConfig holds backup rotation settings.
type BackupConfig struct {
	Retention int `yaml:"retention"`
}

// WatchConfig holds watch-command settings.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Credentials holds the provider API keys, all optional.
type Credentials struct {
	SpotifyClientID     string
	SpotifyClientSecret string
	TheAudioDBKey       string
	LastFMKey           string
	GoogleMapsKey       string
	GooglePlacesKey     string
}

// SpotifyConfigured reports whether both Spotify credentials are set.
func (c Credentials) SpotifyConfigured() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}

// Default returns a Config with sensible defaults rooted in dir.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Dir: "data",
		},
		Backup: BackupConfig{
			Retention: 10,
		},
		Watch: WatchConfig{
			Debounce: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()
	cfg.applyDataDir()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("GB_DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv("GB_INPUT_CSV"); v != "" {
		c.Data.InputCSV = v
	}
	if v := os.Getenv("GB_BACKUP_RETENTION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Backup.Retention = n
		}
	}
	if v := os.Getenv("GB_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("GB_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("GB_LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	c.Credentials = Credentials{
		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		TheAudioDBKey:       os.Getenv("THEAUDIODB_API_KEY"),
		LastFMKey:           os.Getenv("LASTFM_API_KEY"),
		GoogleMapsKey:       os.Getenv("GOOGLE_MAPS_API_KEY"),
		GooglePlacesKey:     os.Getenv("GOOGLE_PLACES_API_KEY"),
	}
}

// applyDataDir fills in any unset file locations relative to the data
// directory.
func (c *Config) applyDataDir() {
	def := func(field *string, name string) {
		if *field == "" {
			*field = filepath.Join(c.Data.Dir, name)
		}
	}
	def(&c.Data.InputCSV, "user-concerts.csv")
	def(&c.Data.Catalog, "concerts.json")
	def(&c.Data.ArtistMetadata, "artists-metadata.json")
	def(&c.Data.GeocodeCache, "geocode-cache.json")
	def(&c.Data.PlacesCache, "venue-photos-cache.json")
	def(&c.Data.GenreOverrides, "genre-overrides.yaml")
	def(&c.Data.KeyOverrides, "key-overrides.yaml")
	def(&c.Data.JournalDB, "gigbook.db")
}

func (c *Config) validate() error {
	if c.Data.Dir == "" {
		return fmt.Errorf("data directory is required")
	}
	if c.Backup.Retention < 1 {
		return fmt.Errorf("backup retention must be at least 1, got %d", c.Backup.Retention)
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = 2 * time.Second
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}
