// Package validate checks the per-ticker merged tables after a run, records
// day-over-day drift, archives outputs, and raises alerts on anomalies.
package validate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"news-sentiment-pipeline/internal/logger"
	"news-sentiment-pipeline/internal/store"
	"news-sentiment-pipeline/internal/table"
)

// Validation statuses, ordered by severity. FAILED and ERROR short-circuit
// the staleness check; a broken table is never reported as merely stale.
const (
	StatusOK     = "OK"
	StatusStale  = "STALE"
	StatusFailed = "FAILED"
	StatusError  = "ERROR"
)

// Entry is one ticker's validation verdict for a run.
type Entry struct {
	Symbol string `csv:"symbol"`
	Status string `csv:"status"`
	Issues string `csv:"issues"`
}

// Validator checks merged tables for structural and freshness problems.
type Validator struct {
	cfg *store.Config
	now func() time.Time
}

// NewValidator creates a validator.
func NewValidator(cfg *store.Config) *Validator {
	return &Validator{cfg: cfg, now: time.Now}
}

// Run validates every symbol and replaces the validation log. Non-OK verdicts
// are surfaced as anomalies but never abort the stage; the log is the record.
func (v *Validator) Run(ctx context.Context, symbols []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(symbols))
	for _, sym := range symbols {
		e := v.ValidateTicker(sym)
		entries = append(entries, e)
		if e.Status != StatusOK {
			logger.Anomaly(ctx, sym, e.Status, "issues", e.Issues)
		}
	}
	if err := table.WriteRecords(v.cfg.ValidationLogPath(), entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ValidateTicker checks one ticker's merged table. FAILED covers structural
// breakage (empty table, missing or fully null critical column); STALE means
// the table is intact but its newest date is past the allowed lateness.
func (v *Validator) ValidateTicker(symbol string) Entry {
	t, found, err := table.ReadFileIfExists(v.cfg.MergedPath(symbol))
	if err != nil {
		return Entry{Symbol: symbol, Status: StatusError, Issues: err.Error()}
	}

	var issues []string
	if !found {
		issues = append(issues, "merged table missing")
	} else if t.Len() == 0 {
		issues = append(issues, "merged table empty")
	} else {
		for _, col := range v.cfg.Validation.CriticalColumns {
			if !t.HasColumn(col) {
				issues = append(issues, fmt.Sprintf("critical column %q missing", col))
			} else if t.AllNull(col) {
				issues = append(issues, fmt.Sprintf("critical column %q all null", col))
			}
		}
	}
	if len(issues) > 0 {
		return Entry{Symbol: symbol, Status: StatusFailed, Issues: strings.Join(issues, "; ")}
	}

	latest := latestDate(t)
	cutoff := v.now().UTC().AddDate(0, 0, -v.cfg.Validation.AllowedLatenessDays).Format("2006-01-02")
	if latest < cutoff {
		return Entry{
			Symbol: symbol,
			Status: StatusStale,
			Issues: fmt.Sprintf("latest date %s older than %s", latest, cutoff),
		}
	}

	return Entry{Symbol: symbol, Status: StatusOK}
}

// latestDate returns the newest non-null calendar date in the table.
func latestDate(t *table.Table) string {
	latest := ""
	for _, r := range t.Rows {
		d := r["date"]
		if len(d) >= 10 {
			d = d[:10]
		}
		if d > latest {
			latest = d
		}
	}
	return latest
}
