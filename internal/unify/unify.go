// Package unify recomputes next-day price fields on the per-ticker merged
// tables and concatenates them into the single unified table the query API
// serves.
package unify

import (
	"context"
	"sort"
	"strconv"

	"news-sentiment-pipeline/internal/logger"
	"news-sentiment-pipeline/internal/store"
	"news-sentiment-pipeline/internal/table"
)

// TickerColumn identifies the owning ticker in the unified table.
const TickerColumn = "ticker"

// Service owns the unify stage.
type Service struct {
	cfg *store.Config
}

// NewService creates the unify stage.
func NewService(cfg *store.Config) *Service {
	return &Service{cfg: cfg}
}

// UpdateNextDay recomputes nextdayclose and nextdayreturn on every ticker's
// merged table from the close column. A bar that had no successor when first
// merged gains its next-day fields here once later runs extend the series.
func (s *Service) UpdateNextDay(ctx context.Context, symbols []string) error {
	for _, sym := range symbols {
		t, found, err := table.ReadFileIfExists(s.cfg.MergedPath(sym))
		if err != nil {
			return err
		}
		if !found || t.Len() == 0 {
			continue
		}

		changed := recomputeNextDay(t)
		if !changed {
			continue
		}
		if err := t.WriteFile(s.cfg.MergedPath(sym)); err != nil {
			return err
		}
		logger.Info(ctx, "Next-day fields updated", "symbol", sym, "rows", t.Len())
	}
	return nil
}

// Run concatenates every ticker's merged table, tagged with a ticker column,
// into the unified table. Tickers with no merged table yet are simply absent.
func (s *Service) Run(ctx context.Context, symbols []string) error {
	unified := table.New()

	for _, sym := range symbols {
		t, found, err := table.ReadFileIfExists(s.cfg.MergedPath(sym))
		if err != nil {
			return err
		}
		if !found || t.Len() == 0 {
			continue
		}

		unified.AddColumn(TickerColumn)
		for _, c := range t.Columns {
			unified.AddColumn(c)
		}
		for _, r := range t.Rows {
			row := table.Row{TickerColumn: sym}
			for k, v := range r {
				row[k] = v
			}
			unified.Rows = append(unified.Rows, row)
		}
	}

	unified.SortBy("date", false)
	if err := unified.WriteFile(s.cfg.UnifiedPath()); err != nil {
		return err
	}
	logger.Info(ctx, "Unified table written", "rows", unified.Len(), "tickers", len(symbols))
	return nil
}

// recomputeNextDay rebuilds the next-day columns from the per-date close
// series. Multiple headlines share one bar per date, so the series is built
// over distinct dates. Returns whether any cell changed.
func recomputeNextDay(t *table.Table) bool {
	closeByDate := make(map[string]string)
	for _, r := range t.Rows {
		d := calendarDate(r["date"])
		if d == "" || r["close"] == "" {
			continue
		}
		closeByDate[d] = r["close"]
	}
	if len(closeByDate) == 0 {
		return false
	}

	dates := make([]string, 0, len(closeByDate))
	for d := range closeByDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	nextClose := make(map[string]string, len(dates))
	nextReturn := make(map[string]string, len(dates))
	for i, d := range dates {
		if i+1 >= len(dates) {
			continue
		}
		nc := closeByDate[dates[i+1]]
		nextClose[d] = nc

		c, errC := strconv.ParseFloat(closeByDate[d], 64)
		n, errN := strconv.ParseFloat(nc, 64)
		if errC == nil && errN == nil && c != 0 {
			nextReturn[d] = strconv.FormatFloat(n/c-1, 'f', -1, 64)
		}
	}

	changed := false
	for _, r := range t.Rows {
		d := calendarDate(r["date"])
		if d == "" || r["close"] == "" {
			continue
		}
		if nc := nextClose[d]; nc != r["nextdayclose"] {
			r["nextdayclose"] = nc
			changed = true
		}
		if nr := nextReturn[d]; nr != r["nextdayreturn"] {
			r["nextdayreturn"] = nr
			changed = true
		}
	}
	return changed
}

func calendarDate(ts string) string {
	if len(ts) < 10 {
		return ""
	}
	return ts[:10]
}
