package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/covid-cohort-etl/internal/domain"
	"github.com/couchcryptid/covid-cohort-etl/internal/observability"
)

// DatePlaceholder marks where a candidate date goes in the workbook URL template.
const DatePlaceholder = "{date}"

// headerLayouts are tried for header cells stored as text rather than as
// Excel date serials.
var headerLayouts = []string{"2006-01-02", "1/2/2006", "1/2/06", "2006-01-02 15:04:05"}

// WorkbookFetcher finds the most recent published jurisdiction workbook.
type WorkbookFetcher struct {
	client   *Client
	template string
	sheets   []string
	policy   domain.SearchPolicy
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewWorkbookFetcher creates a fetcher that substitutes each candidate date
// stamp into template and reads the first of sheets that opens.
func NewWorkbookFetcher(client *Client, template string, sheets []string, policy domain.SearchPolicy, logger *slog.Logger, metrics *observability.Metrics) *WorkbookFetcher {
	return &WorkbookFetcher{
		client:   client,
		template: template,
		sheets:   sheets,
		policy:   policy,
		logger:   logger,
		metrics:  metrics,
	}
}

// Fetch searches backward from today for a workbook that downloads and
// parses. When every candidate fails the error is SourceUnavailable and
// wraps a *domain.SearchError listing each attempt.
func (w *WorkbookFetcher) Fetch(ctx context.Context) (domain.Sheet, error) {
	candidates := w.policy.Candidates(domain.Today())
	sheet, c, err := domain.FirstSuccess(ctx, candidates, w.try, w.logger)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Sheet{}, err
		}
		return domain.Sheet{}, domain.SourceUnavailable(SourceWorkbook, err)
	}
	w.logger.Info("workbook found",
		"url", sheet.URL,
		"sheet", sheet.Name,
		"published", c.Date.Format(time.DateOnly),
		"layout", c.Layout,
	)
	return sheet, nil
}

// URL renders the workbook address for a candidate.
func (w *WorkbookFetcher) URL(c domain.Candidate) string {
	return strings.ReplaceAll(w.template, DatePlaceholder, c.Stamp())
}

func (w *WorkbookFetcher) try(ctx context.Context, c domain.Candidate) (domain.Sheet, error) {
	url := w.URL(c)
	sheet, err := w.fetchSheet(ctx, url)
	if err != nil {
		w.metrics.WorkbookCandidates.WithLabelValues("error").Inc()
		w.logger.Info("workbook candidate", "url", url, "outcome", "error", "error", err)
		return sheet, err
	}
	w.metrics.WorkbookCandidates.WithLabelValues("success").Inc()
	return sheet, nil
}

func (w *WorkbookFetcher) fetchSheet(ctx context.Context, url string) (domain.Sheet, error) {
	body, err := w.client.get(ctx, SourceWorkbook, url)
	if err != nil {
		return domain.Sheet{}, err
	}
	sheet, err := ReadSheet(bytes.NewReader(body), w.sheets)
	if err != nil {
		return domain.Sheet{}, err
	}
	sheet.URL = url
	return sheet, nil
}

// ReadSheet opens an xlsx workbook and reads the first sheet in names that
// exists. The first row is parsed as dates; the rest is returned as text.
func ReadSheet(r io.Reader, names []string) (domain.Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return domain.Sheet{}, domain.ParseFailure(SourceWorkbook, fmt.Errorf("open workbook: %w", err))
	}
	defer f.Close()

	var (
		name    string
		rows    [][]string
		readErr error
	)
	for _, n := range names {
		rows, err = f.GetRows(n, excelize.Options{RawCellValue: true})
		if err == nil {
			name = n
			break
		}
		readErr = errors.Join(readErr, err)
	}
	if name == "" {
		return domain.Sheet{}, domain.ParseFailure(SourceWorkbook, fmt.Errorf("no sheet among %q: %w", names, readErr))
	}
	if len(rows) == 0 {
		return domain.Sheet{}, domain.ParseFailure(SourceWorkbook, fmt.Errorf("sheet %q is empty", name))
	}

	dates := make([]time.Time, len(rows[0]))
	found := 0
	for i, cell := range rows[0] {
		if d, ok := parseHeaderDate(cell); ok {
			dates[i] = d
			found++
		}
	}
	if found == 0 {
		return domain.Sheet{}, domain.ParseFailure(SourceWorkbook, fmt.Errorf("sheet %q: no date columns in header row", name))
	}

	return domain.Sheet{Name: name, Dates: dates, Rows: rows[1:]}, nil
}

// parseHeaderDate reads a header cell as an Excel date serial or as text in
// one of headerLayouts.
func parseHeaderDate(cell string) (time.Time, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(cell, 64); err == nil {
		if serial < 1 {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return domain.Day(t), true
	}
	for _, layout := range headerLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return domain.Day(t), true
		}
	}
	return time.Time{}, false
}
