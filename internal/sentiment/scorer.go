package sentiment

import (
	"context"
	"strconv"
	"sync"
	"time"

	"news-sentiment-pipeline/internal/logger"
	"news-sentiment-pipeline/internal/news"
	"news-sentiment-pipeline/internal/store"
	"news-sentiment-pipeline/internal/table"
	"news-sentiment-pipeline/internal/types"
)

// Scorer runs the sentiment stage: every relevant headline not yet scored is
// sent to each model, and the verdicts are merged into the per-ticker
// sentiment table.
type Scorer struct {
	cfg    *store.Config
	models []Model
}

// NewScorer creates the scoring stage from the configured model set.
func NewScorer(cfg *store.Config) *Scorer {
	timeout := time.Duration(cfg.Scraper.TimeoutSeconds) * time.Second
	models := make([]Model, 0, len(cfg.Sentiment.Models))
	for _, mc := range cfg.Sentiment.Models {
		models = append(models, NewHTTPModel(mc, timeout))
	}
	return &Scorer{cfg: cfg, models: models}
}

// NewScorerWithModels creates a scoring stage over an explicit model set.
func NewScorerWithModels(cfg *store.Config, models []Model) *Scorer {
	return &Scorer{cfg: cfg, models: models}
}

// LabelColumn returns the label column name for a model.
func LabelColumn(model string) string { return "label_" + model }

// ScoreColumn returns the score column name for a model.
func ScoreColumn(model string) string { return "score_" + model }

// Columns returns the full sentiment table schema for this model set.
func (s *Scorer) Columns() []string {
	cols := append([]string(nil), news.HeadlineColumns...)
	for _, m := range s.models {
		cols = append(cols, LabelColumn(m.Name()), ScoreColumn(m.Name()))
	}
	return cols
}

// ScoreText runs every model against one title. A failing model contributes
// the ERROR sentinel for that title only; the remaining models still score
// it independently.
func (s *Scorer) ScoreText(ctx context.Context, title string) map[string]types.ModelScore {
	text := Truncate(title, s.cfg.Sentiment.MaxTextLen)
	out := make(map[string]types.ModelScore, len(s.models))
	for _, m := range s.models {
		score, err := m.Score(ctx, text)
		if err != nil {
			logger.ErrorWithErr(ctx, "Model scoring failed", err, "model", m.Name(), "title", title)
			out[m.Name()] = ErrorScore
			continue
		}
		out[m.Name()] = score
	}
	return out
}

// Run scores the unscored headlines of every symbol.
func (s *Scorer) Run(ctx context.Context, symbols []string) error {
	for _, sym := range symbols {
		if err := s.ScoreTicker(ctx, sym); err != nil {
			return err
		}
	}
	return nil
}

// ScoreTicker scores a single ticker's new headlines and folds the results
// into its sentiment table. Already scored rows are never re-sent to a model.
func (s *Scorer) ScoreTicker(ctx context.Context, symbol string) error {
	timer := logger.StartOperation(ctx, "score_ticker", "symbol", symbol)
	ctx = timer.GetContext()

	relevant, found, err := table.ReadFileIfExists(s.cfg.NewsPath(symbol))
	if err != nil {
		timer.EndWithError(err)
		return err
	}
	if !found || relevant.Len() == 0 {
		timer.End("scored", 0)
		return nil
	}

	existing, _, err := table.ReadFileIfExists(s.cfg.SentimentPath(symbol))
	if err != nil {
		timer.EndWithError(err)
		return err
	}

	scored := make(map[string]struct{}, existing.Len())
	for _, r := range existing.Rows {
		scored[table.RowKey(r)] = struct{}{}
	}

	var pending []table.Row
	for _, r := range relevant.Rows {
		if _, done := scored[table.RowKey(r)]; !done {
			pending = append(pending, r)
		}
	}
	if len(pending) == 0 {
		timer.End("scored", 0)
		return nil
	}

	incoming := table.New(s.Columns()...)
	incoming.Rows = s.scoreRows(ctx, pending)

	merged := table.MergeDedup(existing, incoming)
	for _, c := range s.Columns() {
		merged.AddColumn(c)
	}
	merged.SortBy("date", true)
	if err := merged.WriteFile(s.cfg.SentimentPath(symbol)); err != nil {
		timer.EndWithError(err)
		return err
	}

	timer.End("scored", len(pending), "total", merged.Len())
	return nil
}

// scoreRows fans pending rows out to a worker pool. Workers only call model
// endpoints; all table mutation happens on the caller's goroutine.
func (s *Scorer) scoreRows(ctx context.Context, pending []table.Row) []table.Row {
	workers := s.cfg.Sentiment.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(pending) {
		workers = len(pending)
	}

	results := make([]map[string]types.ModelScore, len(pending))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.ScoreText(ctx, pending[i]["title"])
			}
		}()
	}
	for i := range pending {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	rows := make([]table.Row, 0, len(pending))
	for i, src := range pending {
		row := table.Row{}
		for _, c := range news.HeadlineColumns {
			row[c] = src[c]
		}
		for name, score := range results[i] {
			row[LabelColumn(name)] = score.Label
			row[ScoreColumn(name)] = strconv.FormatFloat(score.Score, 'f', -1, 64)
		}
		rows = append(rows, row)
	}
	return rows
}
