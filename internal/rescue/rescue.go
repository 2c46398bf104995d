// Package rescue promotes previously skipped headlines back into the relevant
// set, either automatically when the keyword list has grown or manually via
// reviewer flag files. Every promotion is recorded in the rescue log.
package rescue

import (
	"context"
	"strconv"
	"time"

	"news-sentiment-pipeline/internal/classify"
	"news-sentiment-pipeline/internal/logger"
	"news-sentiment-pipeline/internal/news"
	"news-sentiment-pipeline/internal/sentiment"
	"news-sentiment-pipeline/internal/store"
	"news-sentiment-pipeline/internal/table"
	"news-sentiment-pipeline/internal/types"
)

// RescuedColumn marks sentiment rows that entered through a rescue rather
// than the primary ingestion path.
const RescuedColumn = "rescued"

// Service re-evaluates skipped headlines and moves the rescued ones through
// scoring into the sentiment tables.
type Service struct {
	cfg      *store.Config
	registry *store.Registry
	scorer   *sentiment.Scorer
}

// NewService creates a rescue service sharing the scoring stage's model set.
func NewService(cfg *store.Config, registry *store.Registry, scorer *sentiment.Scorer) *Service {
	return &Service{cfg: cfg, registry: registry, scorer: scorer}
}

// AutoRescue re-runs classification over every ticker's skipped table with
// the current keyword set. Rescued rows are scored, merged into the sentiment
// table, logged, and removed from the skipped table. Promotions only: a row
// that stays irrelevant is untouched.
func (s *Service) AutoRescue(ctx context.Context, keywords *classify.KeywordSet) error {
	symbols := s.registry.Symbols()

	for _, t := range s.registry.Tickers() {
		skipped, found, err := table.ReadFileIfExists(s.cfg.SkippedPath(t.Symbol))
		if err != nil {
			return err
		}
		if !found || skipped.Len() == 0 {
			continue
		}

		remaining := table.New(skipped.Columns...)
		var rescued []table.Row
		var reasons []string
		for _, r := range skipped.Rows {
			ok, reason := classify.Classify(r["title"], symbols, t.Query, keywords)
			if ok {
				rescued = append(rescued, r)
				reasons = append(reasons, reason)
			} else {
				remaining.Rows = append(remaining.Rows, r)
			}
		}
		if len(rescued) == 0 {
			continue
		}

		if err := s.promote(ctx, t.Symbol, rescued, reasons); err != nil {
			return err
		}
		if err := remaining.WriteFile(s.cfg.SkippedPath(t.Symbol)); err != nil {
			return err
		}

		logger.Info(ctx, "Auto-rescue completed for ticker",
			"symbol", t.Symbol, "rescued", len(rescued), "still_skipped", remaining.Len())
	}
	return nil
}

// promote scores rescued rows, merges them into the relevant and sentiment
// tables, and appends rescue log entries. The skipped table is rewritten by
// the caller only after promotion succeeds so a failure loses nothing.
func (s *Service) promote(ctx context.Context, symbol string, rescued []table.Row, reasons []string) error {
	records := make([]types.HeadlineRecord, 0, len(rescued))
	for _, r := range rescued {
		records = append(records, news.HeadlineFromRow(r))
	}
	if _, err := news.MergeHeadlines(s.cfg.NewsPath(symbol), records); err != nil {
		return err
	}

	existing, _, err := table.ReadFileIfExists(s.cfg.SentimentPath(symbol))
	if err != nil {
		return err
	}
	already := make(map[string]struct{}, existing.Len())
	for _, r := range existing.Rows {
		already[table.RowKey(r)] = struct{}{}
	}

	now := time.Now().UTC().Format("2006-01-02 15:04:05")
	cols := append(s.scorer.Columns(), RescuedColumn)
	incoming := table.New(cols...)
	var entries []types.RescueLogEntry
	for i, r := range rescued {
		if _, dup := already[table.RowKey(r)]; dup {
			continue
		}
		scores := s.scorer.ScoreText(ctx, r["title"])
		row := table.Row{RescuedColumn: "true"}
		for _, c := range news.HeadlineColumns {
			row[c] = r[c]
		}
		for name, score := range scores {
			row[sentiment.LabelColumn(name)] = score.Label
			row[sentiment.ScoreColumn(name)] = strconv.FormatFloat(score.Score, 'f', -1, 64)
		}
		incoming.Rows = append(incoming.Rows, row)
		entries = append(entries, types.RescueLogEntry{
			Timestamp: now,
			Symbol:    symbol,
			Title:     r["title"],
			Date:      r["date"],
			Source:    r["source"],
			RescuedBy: reasons[i],
		})
	}
	if len(entries) == 0 {
		return nil
	}

	merged := table.MergeDedup(existing, incoming)
	merged.SortBy("date", true)
	if err := merged.WriteFile(s.cfg.SentimentPath(symbol)); err != nil {
		return err
	}
	return table.AppendRecords(s.cfg.RescueLogPath(), entries)
}
