// Package pipeline assembles the daily batch run: ingestion, scoring, price
// merge, keyword maintenance, rescue, validation, and the unified table.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"news-sentiment-pipeline/internal/logger"
	"news-sentiment-pipeline/internal/store"
)

// Stage is one named step of the run. Stages execute in order and the run
// stops at the first failure; later stages assume earlier outputs exist.
type Stage struct {
	Name string
	Run  func(ctx context.Context) error
}

// Runner executes a stage list, mirroring each transition into the run log
// file and the structured log.
type Runner struct {
	cfg    *store.Config
	stages []Stage
}

// NewRunner creates a runner over the given stages.
func NewRunner(cfg *store.Config, stages []Stage) *Runner {
	return &Runner{cfg: cfg, stages: stages}
}

// Run executes every stage in order.
func (r *Runner) Run(ctx context.Context) error {
	timer := logger.StartOperation(ctx, "pipeline_run", "stages", len(r.stages))
	ctx = timer.GetContext()

	r.logLine("run started")
	for _, st := range r.stages {
		logger.Stage(ctx, st.Name, "started")
		r.logLine("stage %s started", st.Name)

		start := time.Now()
		if err := st.Run(ctx); err != nil {
			logger.Stage(ctx, st.Name, "failed", "error", err.Error())
			r.logLine("stage %s failed: %v", st.Name, err)
			timer.EndWithError(err, "stage", st.Name)
			return fmt.Errorf("stage %s: %w", st.Name, err)
		}

		logger.Stage(ctx, st.Name, "completed", "duration_ms", time.Since(start).Milliseconds())
		r.logLine("stage %s completed in %s", st.Name, time.Since(start).Round(time.Millisecond))
	}
	r.logLine("run completed")
	timer.End()
	return nil
}

// logLine appends a timestamped line to the plain-text run log. The run log
// is append-only history across runs; failures to write it never fail a run.
func (r *Runner) logLine(format string, args ...any) {
	f, err := os.OpenFile(r.cfg.RunLogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	ts := time.Now().UTC().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] %s\n", ts, fmt.Sprintf(format, args...))
}
