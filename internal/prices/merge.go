package prices

import (
	"context"
	"strconv"
	"time"

	"news-sentiment-pipeline/internal/logger"
	"news-sentiment-pipeline/internal/store"
	"news-sentiment-pipeline/internal/table"
	"news-sentiment-pipeline/internal/types"
)

// Price columns appended to the sentiment schema by the merge.
var PriceColumns = []string{"close", "nextdayclose", "nextdayreturn"}

// Merger left-joins daily close bars onto the per-ticker sentiment tables.
type Merger struct {
	cfg    *store.Config
	client *Client
}

// NewMerger creates the price merge stage.
func NewMerger(cfg *store.Config, client *Client) *Merger {
	return &Merger{cfg: cfg, client: client}
}

// Run merges prices for every symbol. A ticker with no sentiment rows or no
// bars in its window is skipped with a log line, never an error; a later run
// picks it up once data exists.
func (m *Merger) Run(ctx context.Context, symbols []string) error {
	for _, sym := range symbols {
		if err := m.MergeTicker(ctx, sym); err != nil {
			return err
		}
	}
	return nil
}

// MergeTicker joins price bars onto one ticker's sentiment table by calendar
// date and writes the merged table. Headlines with no bar on their date keep
// null price fields; that preserves the row for later joins.
func (m *Merger) MergeTicker(ctx context.Context, symbol string) error {
	sentiments, found, err := table.ReadFileIfExists(m.cfg.SentimentPath(symbol))
	if err != nil {
		return err
	}
	if !found || sentiments.Len() == 0 {
		logger.Info(ctx, "No sentiment rows to merge", "symbol", symbol)
		return nil
	}

	earliest, latest := dateRange(sentiments)
	if earliest == "" {
		logger.Warn(ctx, "No dated headlines for ticker, skipping price merge", "symbol", symbol)
		return nil
	}

	from, to := FetchWindow(earliest, latest, m.cfg.Prices.BufferDays, time.Now())
	bars, err := m.client.FetchBars(ctx, symbol, from, to)
	if err != nil {
		logger.ErrorWithErr(ctx, "Price fetch failed, skipping ticker", err, "symbol", symbol)
		return nil
	}
	if len(bars) == 0 {
		logger.Warn(ctx, "No price bars in window, skipping ticker",
			"symbol", symbol, "from", from, "to", to)
		return nil
	}
	DeriveNextDay(bars)

	byDate := make(map[string]types.PriceBar, len(bars))
	for _, b := range bars {
		byDate[b.Date] = b
	}

	merged := table.New(sentiments.Columns...)
	for _, c := range PriceColumns {
		merged.AddColumn(c)
	}
	for _, r := range sentiments.Rows {
		row := table.Row{}
		for k, v := range r {
			row[k] = v
		}
		if bar, ok := byDate[calendarDate(r["date"])]; ok {
			row["close"] = formatFloat(bar.Close)
			row["nextdayclose"] = formatPtr(bar.NextDayClose)
			row["nextdayreturn"] = formatPtr(bar.NextDayReturn)
		} else {
			row["close"] = ""
			row["nextdayclose"] = ""
			row["nextdayreturn"] = ""
		}
		merged.Rows = append(merged.Rows, row)
	}
	merged.SortBy("date", false)

	if err := merged.WriteFile(m.cfg.MergedPath(symbol)); err != nil {
		return err
	}
	logger.Info(ctx, "Price merge completed for ticker",
		"symbol", symbol, "rows", merged.Len(), "bars", len(bars))
	return nil
}

// dateRange returns the earliest and latest calendar dates present in a
// table's date column, ignoring null dates.
func dateRange(t *table.Table) (earliest, latest string) {
	for _, r := range t.Rows {
		d := calendarDate(r["date"])
		if d == "" {
			continue
		}
		if earliest == "" || d < earliest {
			earliest = d
		}
		if latest == "" || d > latest {
			latest = d
		}
	}
	return earliest, latest
}

// calendarDate reduces a "2006-01-02 15:04:05" timestamp to its date part.
func calendarDate(ts string) string {
	if len(ts) < 10 {
		return ""
	}
	return ts[:10]
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatPtr(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}
