package rescue

import (
	"context"

	"news-sentiment-pipeline/internal/logger"
	"news-sentiment-pipeline/internal/news"
	"news-sentiment-pipeline/internal/table"
	"news-sentiment-pipeline/internal/types"
)

// manualReason is recorded in the rescue log for reviewer promotions.
const manualReason = "manual"

// ApplyManualFlags folds reviewer flag files into the relevant tables. A flag
// file lists headlines a human marked relevant; each is merged into the
// ticker's relevant table, scored into its sentiment table, logged, and
// dropped from the skipped table. Flag files are left in place so a rerun is
// a no-op through dedup.
func (s *Service) ApplyManualFlags(ctx context.Context) error {
	for _, t := range s.registry.Tickers() {
		flagged, err := table.ReadRecords[types.HeadlineRecord](s.cfg.FlaggedPath(t.Symbol))
		if err != nil {
			return err
		}
		if len(flagged) == 0 {
			continue
		}

		skipped, found, err := table.ReadFileIfExists(s.cfg.SkippedPath(t.Symbol))
		if err != nil {
			return err
		}

		flaggedKeys := make(map[string]struct{}, len(flagged))
		rows := make([]table.Row, 0, len(flagged))
		reasons := make([]string, 0, len(flagged))
		for _, h := range flagged {
			flaggedKeys[table.Key(h.Date, h.Title)] = struct{}{}
			rows = append(rows, news.HeadlineRow(h))
			reasons = append(reasons, manualReason)
		}

		if err := s.promote(ctx, t.Symbol, rows, reasons); err != nil {
			return err
		}

		if found {
			remaining := table.New(skipped.Columns...)
			for _, r := range skipped.Rows {
				if _, isFlagged := flaggedKeys[table.RowKey(r)]; !isFlagged {
					remaining.Rows = append(remaining.Rows, r)
				}
			}
			if remaining.Len() != skipped.Len() {
				if err := remaining.WriteFile(s.cfg.SkippedPath(t.Symbol)); err != nil {
					return err
				}
			}
		}

		logger.Info(ctx, "Manual flags applied for ticker",
			"symbol", t.Symbol, "flagged", len(flagged))
	}
	return nil
}
