package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalConfig = `
tickers_file: "config/tickers.json"
sentiment:
  models:
    - name: "finbert"
      endpoint: "https://example.com/finbert"
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Scraper.MaxEntries != 100 {
		t.Errorf("MaxEntries = %d, want 100", cfg.Scraper.MaxEntries)
	}
	if cfg.Sentiment.MaxTextLen != 512 {
		t.Errorf("MaxTextLen = %d, want 512", cfg.Sentiment.MaxTextLen)
	}
	if cfg.Sentiment.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Sentiment.Workers)
	}
	if cfg.Prices.BufferDays != 3 {
		t.Errorf("BufferDays = %d, want 3", cfg.Prices.BufferDays)
	}
	if cfg.Validation.AllowedLatenessDays != 1 {
		t.Errorf("AllowedLatenessDays = %d, want 1", cfg.Validation.AllowedLatenessDays)
	}
	if cfg.Alerts.Mode != "LOG" {
		t.Errorf("Alerts.Mode = %q, want LOG", cfg.Alerts.Mode)
	}
	if cfg.Schedule != "30 6 * * *" {
		t.Errorf("Schedule = %q", cfg.Schedule)
	}
	if cfg.Server.Addr != ":8090" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	want := []string{"date", "close", "nextdayclose", "nextdayreturn"}
	if len(cfg.Validation.CriticalColumns) != len(want) {
		t.Errorf("CriticalColumns = %v", cfg.Validation.CriticalColumns)
	}
}

func TestLoadConfigRejectsMissingTickersFile(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
sentiment:
  models:
    - name: "finbert"
      endpoint: "https://example.com"
`))
	if err == nil || !strings.Contains(err.Error(), "tickers_file") {
		t.Errorf("err = %v, want tickers_file validation error", err)
	}
}

func TestLoadConfigRejectsNoModels(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `tickers_file: "config/tickers.json"`))
	if err == nil || !strings.Contains(err.Error(), "models") {
		t.Errorf("err = %v, want models validation error", err)
	}
}

func TestLoadConfigRejectsBadAlertMode(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, minimalConfig+`
alerts:
  mode: "CARRIER_PIGEON"
`))
	if err == nil || !strings.Contains(err.Error(), "alerts.mode") {
		t.Errorf("err = %v, want alerts.mode validation error", err)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := &Config{}
	cfg.DataDir = "data"
	cfg.OutputDir = "outputs"

	if got := cfg.NewsPath("AAPL"); got != filepath.Join("data", "raw_news", "AAPL_news.csv") {
		t.Errorf("NewsPath = %q", got)
	}
	if got := cfg.MergedPath("BRK.B"); got != filepath.Join("outputs", "results", "merged", "merged_BRK.B.csv") {
		t.Errorf("MergedPath = %q", got)
	}
	if got := cfg.UnifiedPath(); got != filepath.Join("outputs", "results", "merged_sentiment_price.csv") {
		t.Errorf("UnifiedPath = %q", got)
	}
}
