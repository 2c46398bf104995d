package news

import (
	"context"
	"os"
	"time"

	"news-sentiment-pipeline/internal/classify"
	"news-sentiment-pipeline/internal/logger"
	"news-sentiment-pipeline/internal/store"
	"news-sentiment-pipeline/internal/table"
	"news-sentiment-pipeline/internal/types"
)

// HeadlineColumns is the schema of the relevant and skipped headline tables.
var HeadlineColumns = []string{"title", "link", "published", "date", "source"}

// Service runs the headline ingestion stage: it pulls raw records from every
// configured source, classifies them, and folds both partitions into the
// per-ticker cumulative tables.
type Service struct {
	cfg      *store.Config
	registry *store.Registry
	scraper  *Scraper
	fmp      *FMPClient
}

// NewService creates the ingestion service. The FMP vendor source is only
// attached when enabled and an API key is present in the environment.
func NewService(cfg *store.Config, registry *store.Registry) *Service {
	timeout := time.Duration(cfg.Scraper.TimeoutSeconds) * time.Second

	s := &Service{
		cfg:      cfg,
		registry: registry,
		scraper:  NewScraper(timeout, cfg.Scraper.MaxEntries),
	}

	if cfg.Scraper.FMPEnabled {
		if key := os.Getenv("FMP_API_KEY"); key != "" {
			s.fmp = NewFMPClient(cfg.Prices.BaseURL, key, cfg.Scraper.FMPNewsLimit, timeout)
		}
	}
	return s
}

// Partition classifies raw headline records into relevant and skipped sets.
func Partition(records []types.HeadlineRecord, symbols []string, query string, keywords *classify.KeywordSet) (relevant, skipped []types.HeadlineRecord) {
	for _, rec := range records {
		ok, reason := classify.Classify(rec.Title, symbols, query, keywords)
		if ok {
			if reason != classify.ReasonKeyword {
				logger.Info(context.Background(), "Headline rescued at ingestion", "reason", reason, "title", rec.Title)
			}
			relevant = append(relevant, rec)
		} else {
			skipped = append(skipped, rec)
		}
	}
	return relevant, skipped
}

// Run ingests headlines for every registry ticker. A source failing for one
// ticker is logged and skipped; it never aborts the batch.
func (s *Service) Run(ctx context.Context, keywords *classify.KeywordSet) error {
	symbols := s.registry.Symbols()

	for _, t := range s.registry.Tickers() {
		var raw []types.HeadlineRecord

		feed, err := s.scraper.ScrapeGoogleNews(ctx, t.Query)
		if err != nil {
			logger.ErrorWithErr(ctx, "Feed source failed", err, "symbol", t.Symbol)
		} else {
			raw = append(raw, feed...)
		}

		if s.fmp != nil {
			vendor, err := s.fmp.FetchNews(ctx, t.Symbol)
			if err != nil {
				logger.ErrorWithErr(ctx, "Vendor news source failed", err, "symbol", t.Symbol)
			} else {
				raw = append(raw, vendor...)
			}
		}

		relevant, skipped := Partition(raw, symbols, t.Query, keywords)

		relTotal, err := MergeHeadlines(s.cfg.NewsPath(t.Symbol), relevant)
		if err != nil {
			return err
		}
		skipTotal, err := MergeHeadlines(s.cfg.SkippedPath(t.Symbol), skipped)
		if err != nil {
			return err
		}

		logger.Info(ctx, "Ingestion completed for ticker",
			"symbol", t.Symbol,
			"fetched", len(raw),
			"relevant_new", len(relevant),
			"skipped_new", len(skipped),
			"relevant_total", relTotal,
			"skipped_total", skipTotal)
	}
	return nil
}

// MergeHeadlines unions new headline records into a cumulative table file,
// deduplicated by (date, title). Returns the resulting row count.
func MergeHeadlines(path string, records []types.HeadlineRecord) (int, error) {
	existing, _, err := table.ReadFileIfExists(path)
	if err != nil {
		return 0, err
	}

	incoming := table.New(HeadlineColumns...)
	for _, h := range records {
		incoming.Rows = append(incoming.Rows, HeadlineRow(h))
	}

	merged := table.MergeDedup(existing, incoming)
	merged.SortBy("date", false)
	if err := merged.WriteFile(path); err != nil {
		return 0, err
	}
	return merged.Len(), nil
}

// HeadlineRow converts a headline record into a table row.
func HeadlineRow(h types.HeadlineRecord) table.Row {
	return table.Row{
		"title":     h.Title,
		"link":      h.Link,
		"published": h.Published,
		"date":      h.Date,
		"source":    h.Source,
	}
}

// HeadlineFromRow converts a table row back into a headline record.
func HeadlineFromRow(r table.Row) types.HeadlineRecord {
	return types.HeadlineRecord{
		Title:     r["title"],
		Link:      r["link"],
		Published: r["published"],
		Date:      r["date"],
		Source:    r["source"],
	}
}
