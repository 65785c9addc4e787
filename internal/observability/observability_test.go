package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Formats(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "json")
	logger.Info("data through", "date", "2021-09-24")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "data through", entry["msg"])
	assert.Equal(t, "2021-09-24", entry["date"])

	buf.Reset()
	newLogger(&buf, "info", "text").Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "text")
	logger.Info("quiet")
	assert.Empty(t, buf.String())

	logger.Warn("loud")
	assert.Contains(t, buf.String(), "loud")

	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLevel("unknown"))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetricsForTesting()
	m.SourceFetches.WithLabelValues("cases", "success").Inc()
	m.RowsWritten.WithLabelValues("csv").Add(42)
	m.LastSuccess.WithLabelValues("cohorts").Set(1.6e9)

	assert.InDelta(t, 42.0, testutil.ToFloat64(m.RowsWritten.WithLabelValues("csv")), 0)

	path := filepath.Join(t.TempDir(), "covid.prom")
	require.NoError(t, m.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	assert.Contains(t, out, `covid_etl_source_fetches_total{outcome="success",source="cases"} 1`)
	assert.Contains(t, out, `covid_etl_rows_written_total{sink="csv"} 42`)
	assert.Contains(t, out, "covid_etl_last_success_timestamp_seconds")
}

func TestNewMetricsForTesting_Isolated(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()
	a.CorrectionsApplied.Inc()
	assert.InDelta(t, 0.0, testutil.ToFloat64(b.CorrectionsApplied), 0)
}
