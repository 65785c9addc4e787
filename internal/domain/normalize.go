package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateHeaderRe matches JHU date column headers such as "1/22/20".
var dateHeaderRe = regexp.MustCompile(`^\d{1,2}/\d{1,2}/(\d{2}|\d{4})$`)

// NormalizeTimeSeries pivots a wide JHU table (one row per sub-region, one
// column per date) into a long series keyed by (region, date). Rows whose
// region is excluded are dropped and duplicate keys are summed. A table with
// no date columns yields an empty series.
func NormalizeTimeSeries(raw RawTable, regionColumn, metric string, excluded []string) (*Series, error) {
	regionIdx := raw.Column(regionColumn)
	if regionIdx < 0 {
		return nil, ParseFailure(metric, fmt.Errorf("missing region column %q", regionColumn))
	}

	dateCols, err := dateColumns(raw.Header)
	if err != nil {
		return nil, ParseFailure(metric, err)
	}

	skip := make(map[string]struct{}, len(excluded))
	for _, r := range excluded {
		skip[r] = struct{}{}
	}

	series := NewSeries(metric)
	for _, row := range raw.Rows {
		region := strings.TrimSpace(Cell(row, regionIdx))
		if region == "" {
			continue
		}
		if _, ok := skip[region]; ok {
			continue
		}
		for col, date := range dateCols {
			v, ok, err := parseNumber(Cell(row, col))
			if err != nil {
				return nil, ParseFailure(metric, fmt.Errorf("region %s, %s: %w", region, date.Format(time.DateOnly), err))
			}
			if ok {
				series.Add(region, date, v)
			}
		}
	}
	return series, nil
}

// dateColumns maps column index to date for every date-like header.
func dateColumns(header []string) (map[int]time.Time, error) {
	cols := make(map[int]time.Time)
	for i, h := range header {
		h = strings.TrimSpace(h)
		m := dateHeaderRe.FindStringSubmatch(h)
		if m == nil {
			continue
		}
		layout := "1/2/06"
		if len(m[1]) == 4 {
			layout = "1/2/2006"
		}
		d, err := time.Parse(layout, h)
		if err != nil {
			return nil, fmt.Errorf("date header %q: %w", h, err)
		}
		cols[i] = d
	}
	return cols, nil
}

// parseNumber parses a numeric cell, tolerating thousands separators and
// stray spaces. Empty cells report ok=false.
func parseNumber(s string) (float64, bool, error) {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse number %q: %w", s, err)
	}
	return v, true, nil
}
