package validate

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"news-sentiment-pipeline/internal/snapshot"
	"news-sentiment-pipeline/internal/table"
	"news-sentiment-pipeline/internal/types"
)

func TestFileChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte("date,close\n2024-05-01,100\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sum1, err := FileChecksum(path)
	if err != nil {
		t.Fatalf("FileChecksum: %v", err)
	}
	sum2, err := FileChecksum(path)
	if err != nil {
		t.Fatal(err)
	}
	if sum1 != sum2 {
		t.Error("checksum not stable across reads")
	}

	if err := os.WriteFile(path, []byte("date,close\n2024-05-01,101\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sum3, err := FileChecksum(path)
	if err != nil {
		t.Fatal(err)
	}
	if sum3 == sum1 {
		t.Error("checksum unchanged after content change")
	}
}

func TestDriftRecordsAndDiffs(t *testing.T) {
	cfg := testConfig(t)
	snaps, err := snapshot.Open(cfg.SnapshotDBPath())
	if err != nil {
		t.Fatalf("open snapshot store: %v", err)
	}
	defer snaps.Close()

	writeMerged := func(rows int) {
		tab := table.New("title", "date", "close")
		for i := 0; i < rows; i++ {
			tab.Rows = append(tab.Rows, table.Row{"title": "Story", "date": "2024-05-01 09:30:00", "close": "100"})
		}
		if err := tab.WriteFile(cfg.MergedPath("AAPL")); err != nil {
			t.Fatal(err)
		}
	}

	d := NewDrift(cfg, snaps)
	ctx := context.Background()

	writeMerged(3)
	diffs, err := d.Run(ctx, []string{"AAPL"}, "2024-05-01")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if got := diffs["AAPL"]; got.Yesterday != 0 || got.Today != 3 || got.NewRows != 3 {
		t.Errorf("first diff = %+v", got)
	}

	writeMerged(5)
	diffs, err = d.Run(ctx, []string{"AAPL"}, "2024-05-02")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := diffs["AAPL"]; got.Yesterday != 3 || got.Today != 5 || got.NewRows != 2 {
		t.Errorf("second diff = %+v", got)
	}

	// The dated diff artifact is written alongside the run logs.
	b, err := os.ReadFile(filepath.Join(cfg.LogsDir(), "rowdiff_2024-05-02.json"))
	if err != nil {
		t.Fatalf("read diff file: %v", err)
	}
	var onDisk map[string]types.RowDiff
	if err := json.Unmarshal(b, &onDisk); err != nil {
		t.Fatalf("parse diff file: %v", err)
	}
	if onDisk["AAPL"].NewRows != 2 {
		t.Errorf("diff file NewRows = %d, want 2", onDisk["AAPL"].NewRows)
	}
}

func TestDriftSkipsMissingTables(t *testing.T) {
	cfg := testConfig(t)
	snaps, err := snapshot.Open(cfg.SnapshotDBPath())
	if err != nil {
		t.Fatal(err)
	}
	defer snaps.Close()

	diffs, err := NewDrift(cfg, snaps).Run(context.Background(), []string{"AAPL"}, "2024-05-01")
	if err != nil {
		t.Fatalf("Run with no tables: %v", err)
	}
	if len(diffs) != 0 {
		t.Errorf("diffs = %v, want empty", diffs)
	}
}

func TestArchiveCopiesMergedTables(t *testing.T) {
	cfg := testConfig(t)
	tab := table.New("title", "date")
	tab.Rows = []table.Row{{"title": "Story", "date": "2024-05-01 09:30:00"}}
	if err := tab.WriteFile(cfg.MergedPath("AAPL")); err != nil {
		t.Fatal(err)
	}

	failures, err := Archive(context.Background(), cfg, []string{"AAPL", "MSFT"}, "2024-05-01")
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if len(failures) != 0 {
		t.Errorf("failures = %v, want none", failures)
	}

	copied := filepath.Join(cfg.ArchiveDir(), "2024-05-01", "merged_AAPL.csv")
	if _, err := os.Stat(copied); err != nil {
		t.Errorf("archived copy missing: %v", err)
	}
	// MSFT has no merged table; it is skipped, not an error.
	if _, err := os.Stat(filepath.Join(cfg.ArchiveDir(), "2024-05-01", "merged_MSFT.csv")); !os.IsNotExist(err) {
		t.Error("unexpected archive file for ticker without a table")
	}
}

func TestArchiveToleratesCopyFailure(t *testing.T) {
	cfg := testConfig(t)
	for _, sym := range []string{"AAPL", "MSFT"} {
		tab := table.New("title", "date")
		tab.Rows = []table.Row{{"title": "Story", "date": "2024-05-01 09:30:00"}}
		if err := tab.WriteFile(cfg.MergedPath(sym)); err != nil {
			t.Fatal(err)
		}
	}

	// A directory squatting on AAPL's destination makes that copy fail.
	blocked := filepath.Join(cfg.ArchiveDir(), "2024-05-01", "merged_AAPL.csv")
	if err := os.MkdirAll(blocked, 0o755); err != nil {
		t.Fatal(err)
	}

	failures, err := Archive(context.Background(), cfg, []string{"AAPL", "MSFT"}, "2024-05-01")
	if err != nil {
		t.Fatalf("copy failures must not fail the stage: %v", err)
	}
	if len(failures) != 1 || !strings.Contains(failures[0], "AAPL") {
		t.Errorf("failures = %v, want one line naming AAPL", failures)
	}
	// The remaining tickers are still archived.
	if _, err := os.Stat(filepath.Join(cfg.ArchiveDir(), "2024-05-01", "merged_MSFT.csv")); err != nil {
		t.Errorf("copy after the failed one missing: %v", err)
	}
}
