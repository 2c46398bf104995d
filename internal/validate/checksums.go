package validate

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"news-sentiment-pipeline/internal/logger"
	"news-sentiment-pipeline/internal/snapshot"
	"news-sentiment-pipeline/internal/store"
	"news-sentiment-pipeline/internal/table"
	"news-sentiment-pipeline/internal/types"
)

// Drift records checksums and row counts for a run and compares them against
// the latest prior snapshot of each ticker.
type Drift struct {
	cfg   *store.Config
	snaps *snapshot.Store
}

// NewDrift creates the drift stage over an open snapshot store.
func NewDrift(cfg *store.Config, snaps *snapshot.Store) *Drift {
	return &Drift{cfg: cfg, snaps: snaps}
}

// Run snapshots every ticker's merged table for runDate and writes the
// row-count diff file. A run where no ticker gained a single row is reported
// as an anomaly; the sources went quiet or the pipeline stopped ingesting.
func (d *Drift) Run(ctx context.Context, symbols []string, runDate string) (map[string]types.RowDiff, error) {
	diffs := make(map[string]types.RowDiff, len(symbols))
	anyNew := false
	anyTable := false

	for _, sym := range symbols {
		path := d.cfg.MergedPath(sym)
		t, found, err := table.ReadFileIfExists(path)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		anyTable = true

		sum, err := FileChecksum(path)
		if err != nil {
			return nil, err
		}
		if err := d.snaps.Record(ctx, snapshot.Entry{
			RunDate:  runDate,
			Symbol:   sym,
			Checksum: sum,
			RowCount: t.Len(),
		}); err != nil {
			return nil, err
		}

		prev, err := d.snaps.LatestBefore(ctx, sym, runDate)
		if err != nil {
			if !errors.Is(err, snapshot.ErrNoSnapshot) {
				return nil, err
			}
			prev = snapshot.Entry{}
		}

		diff := types.RowDiff{
			Yesterday: prev.RowCount,
			Today:     t.Len(),
			NewRows:   t.Len() - prev.RowCount,
		}
		diffs[sym] = diff
		if diff.NewRows > 0 {
			anyNew = true
		}
	}

	if err := d.writeDiffFile(runDate, diffs); err != nil {
		return nil, err
	}
	if anyTable && !anyNew {
		logger.Anomaly(ctx, "ALL", "no_new_rows", "run_date", runDate)
	}
	return diffs, nil
}

// writeDiffFile writes the per-ticker row diff as a dated JSON artifact next
// to the run logs.
func (d *Drift) writeDiffFile(runDate string, diffs map[string]types.RowDiff) error {
	path := filepath.Join(d.cfg.LogsDir(), "rowdiff_"+runDate+".json")
	b, err := json.MarshalIndent(diffs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal row diff: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// FileChecksum returns the md5 hex digest of a file's contents.
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
