package pipeline

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"news-sentiment-pipeline/internal/store"
)

func testConfig(t *testing.T) *store.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &store.Config{}
	cfg.DataDir = dir + "/data"
	cfg.OutputDir = dir + "/outputs"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestRunnerExecutesInOrder(t *testing.T) {
	cfg := testConfig(t)

	var order []string
	stages := []Stage{
		{Name: "first", Run: func(ctx context.Context) error {
			order = append(order, "first")
			return nil
		}},
		{Name: "second", Run: func(ctx context.Context) error {
			order = append(order, "second")
			return nil
		}},
	}

	if err := NewRunner(cfg, stages).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("order = %v", order)
	}

	log, err := os.ReadFile(cfg.RunLogPath())
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	text := string(log)
	for _, want := range []string{"run started", "stage first completed", "stage second completed", "run completed"} {
		if !strings.Contains(text, want) {
			t.Errorf("run log missing %q:\n%s", want, text)
		}
	}
}

func TestRunnerStopsOnFirstFailure(t *testing.T) {
	cfg := testConfig(t)

	boom := errors.New("boom")
	ran := false
	stages := []Stage{
		{Name: "broken", Run: func(ctx context.Context) error { return boom }},
		{Name: "never", Run: func(ctx context.Context) error {
			ran = true
			return nil
		}},
	}

	err := NewRunner(cfg, stages).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("error should name the stage: %v", err)
	}
	if ran {
		t.Error("stage after a failure must not run")
	}

	log, _ := os.ReadFile(cfg.RunLogPath())
	if !strings.Contains(string(log), "stage broken failed") {
		t.Errorf("run log missing failure line:\n%s", log)
	}
}

func TestPipelineStageOrder(t *testing.T) {
	cfg := testConfig(t)
	cfg.TickersFile = "unused"
	p := New(cfg, nil, nil)

	want := []string{
		"scrape_news", "score_sentiment", "merge_prices", "update_next_day",
		"apply_manual_flags", "learn_keywords", "auto_rescue", "prune_keywords",
		"validate", "record_drift", "archive", "send_alerts", "unify",
	}
	stages := p.Stages()
	if len(stages) != len(want) {
		t.Fatalf("stage count = %d, want %d", len(stages), len(want))
	}
	for i, name := range want {
		if stages[i].Name != name {
			t.Errorf("stage[%d] = %q, want %q", i, stages[i].Name, name)
		}
	}
}
