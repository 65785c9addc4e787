package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/covid-cohort-etl/internal/config"
	"github.com/couchcryptid/covid-cohort-etl/internal/domain"
	"github.com/couchcryptid/covid-cohort-etl/internal/observability"
)

const (
	sinkLabel    = "kafka"
	publishBatch = 500
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// RowMessage is the JSON value of one published table row. Missing values
// are null.
type RowMessage struct {
	Table  string              `json:"table"`
	Date   string              `json:"date"`
	Values map[string]*float64 `json:"values"`
}

// Writer publishes table rows to a Kafka topic, one message per date.
// It implements pipeline.Loader[domain.Table].
type Writer struct {
	writer  messageWriter
	runID   string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, runID string, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, runID: runID, logger: logger, metrics: metrics}
}

// Load serializes every row and publishes them in batches. Rows with the
// same table and date share a key so later runs supersede earlier ones on a
// compacted topic.
func (w *Writer) Load(ctx context.Context, t domain.Table) error {
	if len(t.Rows) == 0 {
		return nil
	}
	publishedAt := time.Now().UTC()
	msgs := make([]kafkago.Message, 0, len(t.Rows))
	for _, r := range t.Rows {
		msg, err := serializeToMessage(t, r, w.runID, publishedAt)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	for start := 0; start < len(msgs); start += publishBatch {
		end := min(start+publishBatch, len(msgs))
		if err := w.writer.WriteMessages(ctx, msgs[start:end]...); err != nil {
			return fmt.Errorf("publish %s rows: %w", t.Name, err)
		}
		w.metrics.RowsWritten.WithLabelValues(sinkLabel).Add(float64(end - start))
	}
	w.logger.Info("table published", "table", t.Name, "rows", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one table row into a Kafka message.
func serializeToMessage(t domain.Table, r domain.Row, runID string, publishedAt time.Time) (kafkago.Message, error) {
	date := r.Date.Format(time.DateOnly)
	value := RowMessage{
		Table:  t.Name,
		Date:   date,
		Values: make(map[string]*float64, len(t.Columns)),
	}
	for i, col := range t.Columns {
		if i >= len(r.Values) || domain.IsMissing(r.Values[i]) {
			value.Values[col] = nil
			continue
		}
		v := r.Values[i]
		value.Values[col] = &v
	}

	data, err := json.Marshal(value)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s row %s: %w", t.Name, date, err)
	}
	return kafkago.Message{
		Key:   []byte(t.Name + "|" + date),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "table", Value: []byte(t.Name)},
			{Key: "run_id", Value: []byte(runID)},
			{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
		},
	}, nil
}
