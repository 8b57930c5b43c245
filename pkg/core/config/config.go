// Package config loads pipeline configuration from the environment and an
// optional YAML watchlist file. The Config value is constructed once in main
// and passed down; nothing in this module reads credentials from ambient state.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	// DefaultBaseURL is the source site. Overridable for tests via SCREENER_BASE_URL.
	DefaultBaseURL = "https://www.screener.in"

	defaultFetchDelay = time.Second
)

// Watchlist is one named watchlist to scrape. Order matters: dedup across
// watchlists is first-seen wins, in configuration order.
type Watchlist struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// watchlistFile is the shape of the YAML file pointed at by WATCHLISTS_FILE.
type watchlistFile struct {
	Watchlists []Watchlist `yaml:"watchlists"`
}

// Config holds everything the pipeline needs for one run.
type Config struct {
	BaseURL  string
	Username string
	Password string

	Watchlists []Watchlist

	// Google Sheets backup. Both must be set for the publisher to be enabled.
	SheetID           string
	CredentialsBase64 string

	// Optional Postgres snapshot history. Empty disables it.
	DatabaseURL string

	OutputDir  string
	LogLevel   string
	FetchDelay time.Duration
}

// Load reads configuration from the environment. It fails when credentials
// are missing or no watchlist URL is configured, since the run could not
// produce any data.
func Load() (*Config, error) {
	cfg := &Config{
		BaseURL:           getEnv("SCREENER_BASE_URL", DefaultBaseURL),
		Username:          os.Getenv("SCREENER_USERNAME"),
		Password:          os.Getenv("SCREENER_PASSWORD"),
		SheetID:           os.Getenv("GOOGLE_SHEET_ID"),
		CredentialsBase64: os.Getenv("GOOGLE_CREDENTIALS_BASE64"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		OutputDir:         getEnv("OUTPUT_DIR", "."),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		FetchDelay:        defaultFetchDelay,
	}

	if d := os.Getenv("FETCH_DELAY"); d != "" {
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return nil, fmt.Errorf("invalid FETCH_DELAY %q: %w", d, err)
		}
		cfg.FetchDelay = parsed
	}

	watchlists, err := loadWatchlists()
	if err != nil {
		return nil, err
	}
	cfg.Watchlists = watchlists

	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("SCREENER_USERNAME and SCREENER_PASSWORD must be set")
	}
	if len(cfg.Watchlists) == 0 {
		return nil, fmt.Errorf("no watchlist URLs configured (set WATCHLISTS_FILE or the *_WATCHLIST_URL variables)")
	}
	return cfg, nil
}

// loadWatchlists reads the YAML file when WATCHLISTS_FILE is set, otherwise
// falls back to the fixed env vars the tool has always supported. Entries
// with an empty URL are skipped: an absent URL means that watchlist is off.
func loadWatchlists() ([]Watchlist, error) {
	if path := os.Getenv("WATCHLISTS_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read watchlists file: %w", err)
		}
		var file watchlistFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse watchlists file %s: %w", path, err)
		}
		return filterEmpty(file.Watchlists), nil
	}

	return filterEmpty([]Watchlist{
		{Name: "My Stonks", URL: os.Getenv("MY_STONKS_WATCHLIST_URL")},
		{Name: "Core Watchlist", URL: os.Getenv("CORE_WATCHLIST_URL")},
	}), nil
}

func filterEmpty(in []Watchlist) []Watchlist {
	out := make([]Watchlist, 0, len(in))
	for _, w := range in {
		if w.URL == "" {
			continue
		}
		if w.Name == "" {
			w.Name = w.URL
		}
		out = append(out, w)
	}
	return out
}

// PublishToSheets reports whether the Google Sheets publisher is configured.
func (c *Config) PublishToSheets() bool {
	return c.SheetID != "" && c.CredentialsBase64 != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
