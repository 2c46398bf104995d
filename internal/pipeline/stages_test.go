package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"news-sentiment-pipeline/internal/classify"
	"news-sentiment-pipeline/internal/store"
	"news-sentiment-pipeline/internal/table"
	"news-sentiment-pipeline/internal/types"
)

func testPipeline(t *testing.T) (*Pipeline, *store.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := &store.Config{}
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.OutputDir = filepath.Join(dir, "outputs")
	cfg.TickersFile = filepath.Join(dir, "tickers.json")
	cfg.Keywords.LearnedFile = filepath.Join(dir, "config", "learned_keywords.txt")
	cfg.Keywords.MaxFeatures = 100
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	tickers := `[{"ticker": "AAPL", "query": "Apple"}]`
	if err := os.WriteFile(cfg.TickersFile, []byte(tickers), 0o644); err != nil {
		t.Fatal(err)
	}
	registry, err := store.LoadRegistry(cfg.TickersFile)
	if err != nil {
		t.Fatal(err)
	}
	return New(cfg, registry, nil), cfg
}

func TestLearnKeywordsIgnoresUnflaggedCorpus(t *testing.T) {
	p, cfg := testPipeline(t)

	// A relevant table exists but no reviewer flagged anything yet.
	relevant := table.New("title", "link", "published", "date", "source")
	relevant.Rows = []table.Row{
		{"title": "Bitcoin rally extends overnight as asia continues", "date": "2024-05-01 09:30:00"},
	}
	if err := relevant.WriteFile(cfg.NewsPath("AAPL")); err != nil {
		t.Fatal(err)
	}

	if err := p.runLearnKeywords(context.Background()); err != nil {
		t.Fatalf("runLearnKeywords: %v", err)
	}

	learned, err := classify.LoadKeywordFile(cfg.Keywords.LearnedFile)
	if err != nil {
		t.Fatal(err)
	}
	if learned.Len() != 0 {
		t.Errorf("nothing was flagged, yet learned keywords = %v", learned.Words())
	}
}

func TestLearnKeywordsFromFlaggedTitles(t *testing.T) {
	p, cfg := testPipeline(t)

	relevant := table.New("title", "link", "published", "date", "source")
	relevant.Rows = []table.Row{
		{"title": "Bitcoin rally extends overnight", "date": "2024-05-01 09:30:00"},
	}
	if err := relevant.WriteFile(cfg.NewsPath("AAPL")); err != nil {
		t.Fatal(err)
	}

	flagged := []types.HeadlineRecord{
		{Title: "Dividend payout raised after guidance", Date: "2024-05-01 10:00:00"},
		{Title: "Dividend schedule confirmed by board", Date: "2024-05-02 10:00:00"},
	}
	if err := table.WriteRecords(cfg.FlaggedPath("AAPL"), flagged); err != nil {
		t.Fatal(err)
	}

	if err := p.runLearnKeywords(context.Background()); err != nil {
		t.Fatalf("runLearnKeywords: %v", err)
	}

	learned, err := classify.LoadKeywordFile(cfg.Keywords.LearnedFile)
	if err != nil {
		t.Fatal(err)
	}
	if !learned.Contains("dividend") {
		t.Errorf("flagged term 'dividend' not learned: %v", learned.Words())
	}
	if learned.Contains("bitcoin") {
		t.Error("term from the unflagged relevant table was learned")
	}
}

func TestRunArchiveFailureDoesNotFailStage(t *testing.T) {
	p, cfg := testPipeline(t)
	p.runDate = "2024-05-01"

	tab := table.New("title", "date")
	tab.Rows = []table.Row{{"title": "Story", "date": "2024-05-01 09:30:00"}}
	if err := tab.WriteFile(cfg.MergedPath("AAPL")); err != nil {
		t.Fatal(err)
	}

	// A directory squatting on the destination path makes the copy fail.
	dst := filepath.Join(cfg.ArchiveDir(), "2024-05-01", "merged_AAPL.csv")
	if err := os.MkdirAll(dst, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := p.runArchive(context.Background()); err != nil {
		t.Fatalf("a failed copy must not fail the stage: %v", err)
	}
	if len(p.archiveFailures) != 1 {
		t.Fatalf("archiveFailures = %v, want one entry", p.archiveFailures)
	}
}
