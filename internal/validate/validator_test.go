package validate

import (
	"context"
	"strings"
	"testing"
	"time"

	"news-sentiment-pipeline/internal/store"
	"news-sentiment-pipeline/internal/table"
	"news-sentiment-pipeline/internal/types"
)

func testConfig(t *testing.T) *store.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &store.Config{}
	cfg.DataDir = dir + "/data"
	cfg.OutputDir = dir + "/outputs"
	cfg.Validation.AllowedLatenessDays = 1
	cfg.Validation.CriticalColumns = []string{"date", "close", "nextdayclose", "nextdayreturn"}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func testValidator(cfg *store.Config, now time.Time) *Validator {
	v := NewValidator(cfg)
	v.now = func() time.Time { return now }
	return v
}

func mergedTable(rows []table.Row) *table.Table {
	tab := table.New("title", "date", "close", "nextdayclose", "nextdayreturn")
	tab.Rows = rows
	return tab
}

func TestValidateTickerOK(t *testing.T) {
	cfg := testConfig(t)
	now := time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)

	tab := mergedTable([]table.Row{
		{"title": "Story", "date": "2024-05-02 09:30:00", "close": "100", "nextdayclose": "105", "nextdayreturn": "0.05"},
	})
	if err := tab.WriteFile(cfg.MergedPath("AAPL")); err != nil {
		t.Fatal(err)
	}

	e := testValidator(cfg, now).ValidateTicker("AAPL")
	if e.Status != StatusOK {
		t.Errorf("status = %q (%s), want OK", e.Status, e.Issues)
	}
}

func TestValidateTickerMissingFile(t *testing.T) {
	cfg := testConfig(t)
	e := testValidator(cfg, time.Now()).ValidateTicker("AAPL")
	if e.Status != StatusFailed {
		t.Errorf("status = %q, want FAILED", e.Status)
	}
}

func TestValidateTickerEmptyTable(t *testing.T) {
	cfg := testConfig(t)
	if err := mergedTable(nil).WriteFile(cfg.MergedPath("AAPL")); err != nil {
		t.Fatal(err)
	}
	e := testValidator(cfg, time.Now()).ValidateTicker("AAPL")
	if e.Status != StatusFailed {
		t.Errorf("status = %q, want FAILED", e.Status)
	}
}

func TestValidateTickerMissingCriticalColumn(t *testing.T) {
	cfg := testConfig(t)
	tab := table.New("title", "date")
	tab.Rows = []table.Row{{"title": "Story", "date": "2024-05-02 09:30:00"}}
	if err := tab.WriteFile(cfg.MergedPath("AAPL")); err != nil {
		t.Fatal(err)
	}

	e := testValidator(cfg, time.Now()).ValidateTicker("AAPL")
	if e.Status != StatusFailed {
		t.Errorf("status = %q, want FAILED", e.Status)
	}
	if !strings.Contains(e.Issues, "close") {
		t.Errorf("issues should name the missing column, got %q", e.Issues)
	}
}

func TestValidateTickerAllNullCritical(t *testing.T) {
	cfg := testConfig(t)
	tab := mergedTable([]table.Row{
		{"title": "Story", "date": "2024-05-02 09:30:00", "close": "", "nextdayclose": "", "nextdayreturn": ""},
	})
	if err := tab.WriteFile(cfg.MergedPath("AAPL")); err != nil {
		t.Fatal(err)
	}

	e := testValidator(cfg, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)).ValidateTicker("AAPL")
	if e.Status != StatusFailed {
		t.Errorf("status = %q, want FAILED", e.Status)
	}
}

func TestValidateTickerStale(t *testing.T) {
	cfg := testConfig(t)
	tab := mergedTable([]table.Row{
		{"title": "Story", "date": "2024-05-01 09:30:00", "close": "100", "nextdayclose": "105", "nextdayreturn": "0.05"},
	})
	if err := tab.WriteFile(cfg.MergedPath("AAPL")); err != nil {
		t.Fatal(err)
	}

	e := testValidator(cfg, time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)).ValidateTicker("AAPL")
	if e.Status != StatusStale {
		t.Errorf("status = %q, want STALE", e.Status)
	}
}

// A structurally broken table must report FAILED even when its newest date is
// fresh enough to pass the staleness check.
func TestFailedNotDowngradedToStale(t *testing.T) {
	cfg := testConfig(t)
	now := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	tab := mergedTable([]table.Row{
		{"title": "Story", "date": "2024-05-02 09:30:00", "close": "", "nextdayclose": "", "nextdayreturn": ""},
	})
	if err := tab.WriteFile(cfg.MergedPath("AAPL")); err != nil {
		t.Fatal(err)
	}

	e := testValidator(cfg, now).ValidateTicker("AAPL")
	if e.Status != StatusFailed {
		t.Errorf("status = %q, want FAILED despite fresh date", e.Status)
	}
}

func TestRunWritesValidationLog(t *testing.T) {
	cfg := testConfig(t)
	tab := mergedTable([]table.Row{
		{"title": "Story", "date": "2024-05-02 09:30:00", "close": "100", "nextdayclose": "105", "nextdayreturn": "0.05"},
	})
	if err := tab.WriteFile(cfg.MergedPath("AAPL")); err != nil {
		t.Fatal(err)
	}

	v := testValidator(cfg, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC))
	entries, err := v.Run(context.Background(), []string{"AAPL", "MSFT"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Status != StatusOK || entries[1].Status != StatusFailed {
		t.Errorf("statuses = %q/%q", entries[0].Status, entries[1].Status)
	}

	logged, err := table.ReadRecords[Entry](cfg.ValidationLogPath())
	if err != nil {
		t.Fatalf("read validation log: %v", err)
	}
	if len(logged) != 2 {
		t.Errorf("logged entries = %d, want 2", len(logged))
	}
}

func TestAlertLines(t *testing.T) {
	entries := []Entry{
		{Symbol: "AAPL", Status: StatusOK},
		{Symbol: "MSFT", Status: StatusStale, Issues: "latest date 2024-05-01 older than 2024-05-09"},
	}
	diffs := map[string]types.RowDiff{
		"AAPL": {Yesterday: 10, Today: 12, NewRows: 2},
		"TSLA": {Yesterday: 8, Today: 8, NewRows: 0},
	}

	lines := AlertLines(entries, diffs)
	if len(lines) != 2 {
		t.Fatalf("len = %d, want 2: %v", len(lines), lines)
	}
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "MSFT") || !strings.Contains(joined, StatusStale) {
		t.Errorf("stale verdict missing from %q", joined)
	}
	if !strings.Contains(joined, "TSLA") {
		t.Errorf("zero-growth ticker missing from %q", joined)
	}
}
