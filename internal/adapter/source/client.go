package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/covid-cohort-etl/internal/domain"
	"github.com/couchcryptid/covid-cohort-etl/internal/observability"
)

// Source names used in errors, logs, and metric labels.
const (
	SourceCases      = "cases"
	SourceDeaths     = "deaths"
	SourceHospital   = "hospital"
	SourcePopulation = "population"
	SourceBridge     = "bridge"
	SourceWorkbook   = "workbook"
)

const (
	bridgeNameColumn   = "State"
	bridgeAbbrevColumn = "Abbreviation"
	populationName     = "NAME"
)

// Client downloads and decodes the public data sources.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a source client whose requests time out after timeout.
func NewClient(timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// get downloads url in full. Transport failures and non-200 responses are
// SourceUnavailable errors.
func (c *Client) get(ctx context.Context, source, url string) ([]byte, error) {
	start := time.Now()
	body, err := c.doRequest(ctx, source, url)

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.metrics.SourceFetches.WithLabelValues(source, outcome).Inc()
	c.metrics.SourceFetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	c.logger.Debug("source fetched",
		"source", source,
		"url", url,
		"outcome", outcome,
		"bytes", len(body),
		"duration", time.Since(start),
	)
	return body, err
}

func (c *Client) doRequest(ctx context.Context, source, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.SourceUnavailable(source, fmt.Errorf("create request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.SourceUnavailable(source, fmt.Errorf("request %s: %w", url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, domain.SourceUnavailable(source, fmt.Errorf("GET %s: status %d", url, resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.SourceUnavailable(source, fmt.Errorf("read %s: %w", url, err))
	}
	return body, nil
}

// FetchTable downloads a CSV file and returns its header and rows.
func (c *Client) FetchTable(ctx context.Context, source, url string) (domain.RawTable, error) {
	body, err := c.get(ctx, source, url)
	if err != nil {
		return domain.RawTable{}, err
	}
	return parseCSV(source, body)
}

func parseCSV(source string, body []byte) (domain.RawTable, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return domain.RawTable{}, domain.ParseFailure(source, fmt.Errorf("read csv: %w", err))
	}
	if len(records) == 0 {
		return domain.RawTable{}, domain.ParseFailure(source, errors.New("empty csv"))
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	return domain.RawTable{Header: header, Rows: records[1:]}, nil
}

// FetchHospitalRecords downloads the states daily JSON array.
func (c *Client) FetchHospitalRecords(ctx context.Context, url string) ([]domain.HospitalRecord, error) {
	body, err := c.get(ctx, SourceHospital, url)
	if err != nil {
		return nil, err
	}
	var records []domain.HospitalRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, domain.ParseFailure(SourceHospital, fmt.Errorf("decode response: %w", err))
	}
	return records, nil
}

// FetchPopulation downloads the population estimates and keeps valueColumn
// keyed by region name. The first row for a name wins.
func (c *Client) FetchPopulation(ctx context.Context, url, valueColumn string) (domain.PopulationTable, error) {
	raw, err := c.FetchTable(ctx, SourcePopulation, url)
	if err != nil {
		return nil, err
	}
	nameIdx, valueIdx := raw.Column(populationName), raw.Column(valueColumn)
	if nameIdx < 0 || valueIdx < 0 {
		return nil, domain.ParseFailure(SourcePopulation, fmt.Errorf("missing %s or %s column", populationName, valueColumn))
	}

	pop := make(domain.PopulationTable, len(raw.Rows))
	for _, row := range raw.Rows {
		name := strings.TrimSpace(domain.Cell(row, nameIdx))
		if name == "" {
			continue
		}
		if _, seen := pop[name]; seen {
			continue
		}
		s := strings.TrimSpace(domain.Cell(row, valueIdx))
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, domain.ParseFailure(SourcePopulation, fmt.Errorf("%s for %q: %w", valueColumn, name, err))
		}
		pop[name] = v
	}
	return pop, nil
}

// FetchBridge downloads the abbreviation to full-name mapping.
func (c *Client) FetchBridge(ctx context.Context, url string) (domain.Bridge, error) {
	raw, err := c.FetchTable(ctx, SourceBridge, url)
	if err != nil {
		return nil, err
	}
	nameIdx, abbrevIdx := raw.Column(bridgeNameColumn), raw.Column(bridgeAbbrevColumn)
	if nameIdx < 0 || abbrevIdx < 0 {
		return nil, domain.ParseFailure(SourceBridge, fmt.Errorf("missing %s or %s column", bridgeNameColumn, bridgeAbbrevColumn))
	}

	bridge := make(domain.Bridge, len(raw.Rows))
	for _, row := range raw.Rows {
		abbrev := strings.TrimSpace(domain.Cell(row, abbrevIdx))
		name := strings.TrimSpace(domain.Cell(row, nameIdx))
		if abbrev == "" || name == "" {
			continue
		}
		bridge[abbrev] = name
	}
	return bridge, nil
}
