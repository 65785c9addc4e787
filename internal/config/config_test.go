package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/covid-cohort-etl/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, defaultCasesURL, cfg.CasesURL)
	assert.Equal(t, defaultDeathsURL, cfg.DeathsURL)
	assert.Equal(t, defaultHospitalURL, cfg.HospitalURL)
	assert.Equal(t, "POPESTIMATE2020", cfg.PopulationColumn)
	assert.Equal(t, "Province_State", cfg.RegionColumn)
	assert.Equal(t, []string{"Overal Stats", "Overall Stats"}, cfg.WorkbookSheets)
	assert.Equal(t, []string{"1-2-2006", "January-2-2006", "January-02-2006", "01-02-2006"}, cfg.WorkbookDateLayouts)
	assert.Equal(t, 10, cfg.WorkbookLookbackDays)
	assert.Equal(t, 1, cfg.WorkbookLabelColumn)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 7, cfg.MovingAverageDays)
	assert.Equal(t, time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC), cfg.CohortStart)
	assert.Equal(t, time.Date(2020, 12, 1, 0, 0, 0, 0, time.UTC), cfg.JurisdictionStart)
	assert.Len(t, cfg.Cohorts, 4)
	assert.Contains(t, cfg.ExcludedRegions, "Puerto Rico")
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, "cohort_be.csv", cfg.CohortOutputFile)
	assert.Equal(t, "dc.csv", cfg.JurisdictionOutputFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.MetricsTextfile)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("CASES_URL", "http://localhost:8000/cases.csv")
	t.Setenv("WORKBOOK_URL_TEMPLATE", "http://localhost:8000/dc-{date}.xlsx")
	t.Setenv("WORKBOOK_SHEETS", "Stats")
	t.Setenv("WORKBOOK_DATE_LAYOUTS", "2006-01-02")
	t.Setenv("WORKBOOK_LOOKBACK_DAYS", "3")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("MOVING_AVERAGE_DAYS", "14")
	t.Setenv("COHORT_START_DATE", "2021-01-01")
	t.Setenv("OUTPUT_DIR", "/tmp/out")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("METRICS_TEXTFILE", "/var/lib/node_exporter/covid.prom")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_TOPIC", "tables")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/cases.csv", cfg.CasesURL)
	assert.Equal(t, "http://localhost:8000/dc-{date}.xlsx", cfg.WorkbookURLTemplate)
	assert.Equal(t, []string{"Stats"}, cfg.WorkbookSheets)
	assert.Equal(t, []string{"2006-01-02"}, cfg.WorkbookDateLayouts)
	assert.Equal(t, 3, cfg.WorkbookLookbackDays)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 14, cfg.MovingAverageDays)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), cfg.CohortStart)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "/var/lib/node_exporter/covid.prom", cfg.MetricsTextfile)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "tables", cfg.KafkaTopic)
	assert.True(t, cfg.KafkaEnabled())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"HTTP_TIMEOUT", "soon", "HTTP_TIMEOUT"},
		{"HTTP_TIMEOUT", "-1s", "HTTP_TIMEOUT"},
		{"SHUTDOWN_TIMEOUT", "not-a-duration", "SHUTDOWN_TIMEOUT"},
		{"MOVING_AVERAGE_DAYS", "0", "MOVING_AVERAGE_DAYS"},
		{"WORKBOOK_LOOKBACK_DAYS", "ten", "WORKBOOK_LOOKBACK_DAYS"},
		{"WORKBOOK_LOOKBACK_DAYS", "1000", "WORKBOOK_LOOKBACK_DAYS"},
		{"COHORT_START_DATE", "3/15/2020", "COHORT_START_DATE"},
		{"JURISDICTION_START_DATE", "yesterday", "JURISDICTION_START_DATE"},
		{"CASES_URL", "not a url", "CASES_URL"},
		{"LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"LOG_FORMAT", "xml", "LOG_FORMAT"},
		{"WORKBOOK_URL_TEMPLATE", "http://example.com/fixed.xlsx", "WORKBOOK_URL_TEMPLATE"},
		{"COHORTS_FILE", "/does/not/exist.yaml", "COHORTS_FILE"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cohorts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_CohortFile(t *testing.T) {
	path := writeFile(t, `
cohorts:
  - name: Northeast
    regions: [New York, New Jersey]
  - name: Solo
    regions: [Texas]
excluded_regions: [Guam]
`)
	t.Setenv("COHORTS_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []domain.Cohort{
		{Name: "Northeast", Regions: []string{"New York", "New Jersey"}},
		{Name: "Solo", Regions: []string{"Texas"}},
	}, cfg.Cohorts)
	assert.Equal(t, []string{"Guam"}, cfg.ExcludedRegions)
}

func TestLoad_CohortFileKeepsDefaultExclusions(t *testing.T) {
	t.Setenv("COHORTS_FILE", writeFile(t, "cohorts:\n  - name: A\n    regions: [Ohio]\n"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultExcludedRegions(), cfg.ExcludedRegions)
}

func TestLoadCohortFile_Invalid(t *testing.T) {
	tests := map[string]string{
		"no cohorts":     "cohorts: []\n",
		"empty regions":  "cohorts:\n  - name: A\n    regions: []\n",
		"missing name":   "cohorts:\n  - regions: [Ohio]\n",
		"duplicate name": "cohorts:\n  - name: A\n    regions: [Ohio]\n  - name: A\n    regions: [Iowa]\n",
		"not yaml":       "cohorts: [\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadCohortFile(writeFile(t, content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "COHORTS_FILE")
		})
	}
}

func TestDefaultCohorts_Disjoint(t *testing.T) {
	excluded := make(map[string]bool)
	for _, r := range DefaultExcludedRegions() {
		excluded[r] = true
	}
	seen := make(map[string]string)
	for _, c := range DefaultCohorts() {
		for _, r := range c.Regions {
			prev, dup := seen[r]
			assert.False(t, dup, "%s in both %s and %s", r, prev, c.Name)
			assert.False(t, excluded[r], "%s is excluded", r)
			seen[r] = c.Name
		}
	}
}
