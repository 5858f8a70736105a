// Package artifact writes normalized rows to the durable CSV file that sits
// between normalization and the warehouse load.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jszwec/csvutil"

	"github.com/brightonpier/sales-etl/internal/etl"
)

// Artifact identifies one written snapshot. It is immutable once created;
// the next run for the same day supersedes it by overwriting the same path.
type Artifact struct {
	Path  string
	Bytes int64
	Rows  int
}

// Filename returns the deterministic artifact name for a run day, e.g.
// "TotalSales_20240610.csv". One file per calendar run day keeps same-day
// re-runs idempotent on disk.
func Filename(prefix string, runDay time.Time) string {
	return fmt.Sprintf("%s_%s.csv", prefix, runDay.Format("20060102"))
}

// Write serializes rows as UTF-8 CSV with a header row and stable column
// order taken from the row struct tags. The directory is created if absent.
// The file is verified to exist after the write; a missing file is a
// FileWriteFailed error, never silently ignored.
func Write[T any](rows []T, dir, prefix string, runDay time.Time) (*Artifact, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating directory %s: %v", etl.ErrFileWriteFailed, dir, err)
	}

	data, err := csvutil.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding rows: %v", etl.ErrFileWriteFailed, err)
	}

	path := filepath.Join(dir, Filename(prefix, runDay))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("%w: writing %s: %v", etl.ErrFileWriteFailed, path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: artifact %s missing after write: %v", etl.ErrFileWriteFailed, path, err)
	}

	return &Artifact{Path: path, Bytes: info.Size(), Rows: len(rows)}, nil
}

// ReadHeader returns the artifact's header columns. The loader compares them
// against the declared destination schema before submitting a load job.
func ReadHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact header: %w", err)
	}
	defer f.Close()

	return readHeaderFrom(f)
}
