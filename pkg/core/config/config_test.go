package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so tests do not inherit state
// from the host environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SCREENER_BASE_URL", "SCREENER_USERNAME", "SCREENER_PASSWORD",
		"WATCHLISTS_FILE", "MY_STONKS_WATCHLIST_URL", "CORE_WATCHLIST_URL",
		"GOOGLE_SHEET_ID", "GOOGLE_CREDENTIALS_BASE64", "DATABASE_URL",
		"OUTPUT_DIR", "LOG_LEVEL", "FETCH_DELAY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("MY_STONKS_WATCHLIST_URL", "https://example.com/wl/1/")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing credentials, got nil")
	}
}

func TestLoad_NoWatchlists(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCREENER_USERNAME", "user")
	t.Setenv("SCREENER_PASSWORD", "pass")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for empty watchlist config, got nil")
	}
}

func TestLoad_EnvWatchlistFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCREENER_USERNAME", "user")
	t.Setenv("SCREENER_PASSWORD", "pass")
	t.Setenv("MY_STONKS_WATCHLIST_URL", "https://example.com/wl/1/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Watchlists) != 1 {
		t.Fatalf("expected 1 watchlist, got %d", len(cfg.Watchlists))
	}
	if cfg.Watchlists[0].Name != "My Stonks" {
		t.Errorf("unexpected watchlist name %q", cfg.Watchlists[0].Name)
	}
	if cfg.FetchDelay != time.Second {
		t.Errorf("expected default fetch delay 1s, got %v", cfg.FetchDelay)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base URL, got %q", cfg.BaseURL)
	}
	if cfg.PublishToSheets() {
		t.Error("sheets publishing should be off without sheet config")
	}
}

func TestLoad_WatchlistsFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCREENER_USERNAME", "user")
	t.Setenv("SCREENER_PASSWORD", "pass")

	path := filepath.Join(t.TempDir(), "watchlists.yaml")
	content := `watchlists:
  - name: Core
    url: https://example.com/wl/1/
  - name: Disabled
    url: ""
  - url: https://example.com/wl/2/
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WATCHLISTS_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Watchlists) != 2 {
		t.Fatalf("expected 2 watchlists (empty URL skipped), got %d", len(cfg.Watchlists))
	}
	if cfg.Watchlists[0].Name != "Core" {
		t.Errorf("expected configuration order preserved, first = %q", cfg.Watchlists[0].Name)
	}
	// Nameless entries fall back to their URL for reporting.
	if cfg.Watchlists[1].Name != "https://example.com/wl/2/" {
		t.Errorf("unexpected fallback name %q", cfg.Watchlists[1].Name)
	}
}

func TestLoad_FetchDelay(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCREENER_USERNAME", "user")
	t.Setenv("SCREENER_PASSWORD", "pass")
	t.Setenv("MY_STONKS_WATCHLIST_URL", "https://example.com/wl/1/")

	t.Setenv("FETCH_DELAY", "250ms")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FetchDelay != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", cfg.FetchDelay)
	}

	t.Setenv("FETCH_DELAY", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid FETCH_DELAY, got nil")
	}
}
