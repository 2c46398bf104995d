package validate

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"news-sentiment-pipeline/internal/logger"
	"news-sentiment-pipeline/internal/store"
)

// Archive copies every ticker's merged table into a dated archive directory.
// One ticker failing to copy does not stop the rest and does not fail the
// stage; the failures come back as alert lines for the anomaly report. Only
// an unusable archive directory is a hard error.
func Archive(ctx context.Context, cfg *store.Config, symbols []string, runDate string) ([]string, error) {
	dir := filepath.Join(cfg.ArchiveDir(), runDate)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir %s: %w", dir, err)
	}

	var failures []string
	archived := 0
	for _, sym := range symbols {
		src := cfg.MergedPath(sym)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		dst := filepath.Join(dir, filepath.Base(src))
		if err := copyFile(src, dst); err != nil {
			logger.ErrorWithErr(ctx, "Archive copy failed", err, "symbol", sym)
			failures = append(failures, fmt.Sprintf("ARCHIVE %s: %v", sym, err))
			continue
		}
		archived++
	}

	logger.Info(ctx, "Archive completed", "run_date", runDate, "archived", archived, "failed", len(failures))
	return failures, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
