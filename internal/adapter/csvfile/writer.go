package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/covid-cohort-etl/internal/domain"
	"github.com/couchcryptid/covid-cohort-etl/internal/observability"
)

const sinkLabel = "csv"

// Writer writes a table to a CSV file.
// It implements pipeline.Loader[domain.Table].
type Writer struct {
	path    string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a writer for dir/filename.
func NewWriter(dir, filename string, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	return &Writer{
		path:    filepath.Join(dir, filename),
		logger:  logger,
		metrics: metrics,
	}
}

// Path returns the destination file.
func (w *Writer) Path() string {
	return w.path
}

// Load writes the Date column followed by every table column, one row per
// date. The file is written beside the destination and renamed into place,
// so readers see the old file or the complete new one.
func (w *Writer) Load(ctx context.Context, t domain.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := writeTable(tmp, t); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("rename into %s: %w", w.path, err)
	}
	committed = true

	w.metrics.RowsWritten.WithLabelValues(sinkLabel).Add(float64(len(t.Rows)))
	w.logger.Info("table written", "path", w.path, "table", t.Name, "rows", len(t.Rows), "columns", len(t.Columns)+1)
	return nil
}

func writeTable(f *os.File, t domain.Table) error {
	cw := csv.NewWriter(f)
	if err := cw.Write(append([]string{domain.DateColumn}, t.Columns...)); err != nil {
		return err
	}
	record := make([]string, len(t.Columns)+1)
	for _, r := range t.Rows {
		record[0] = r.Date.Format(time.DateOnly)
		for i := range t.Columns {
			v := domain.Missing()
			if i < len(r.Values) {
				v = r.Values[i]
			}
			record[i+1] = FormatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatValue renders a cell: missing values are empty, whole numbers have no
// fractional part, everything else uses the shortest exact representation.
func FormatValue(v float64) string {
	if domain.IsMissing(v) {
		return ""
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
