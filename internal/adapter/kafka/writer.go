package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weather-precip-etl/internal/config"
	"github.com/couchcryptid/weather-precip-etl/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes one message per output record, series points and pivot
// rows to their own topics.
type Writer struct {
	writer      messageWriter
	seriesTopic string
	pivotTopic  string
	logger      *slog.Logger
}

// NewWriter creates a Kafka producer for the configured series and pivot
// topics. The underlying writer carries no default topic; each message names
// its own.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{
		writer:      w,
		seriesTopic: cfg.KafkaSeriesTopic,
		pivotTopic:  cfg.KafkaPivotTopic,
		logger:      logger,
	}
}

func (w *Writer) Name() string { return "kafka" }

// Load serializes the report and publishes it in a single WriteMessages call.
func (w *Writer) Load(ctx context.Context, report domain.Report) error {
	msgs := make([]kafkago.Message, 0, len(report.Series)+len(report.Pivot))

	series, err := serializeSeries(report, w.seriesTopic)
	if err != nil {
		return err
	}
	msgs = append(msgs, series...)

	pivot, err := serializePivot(report, w.pivotTopic)
	if err != nil {
		return err
	}
	msgs = append(msgs, pivot...)

	if len(msgs) == 0 {
		return nil
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	w.logger.Info("report published",
		"run_id", report.RunID,
		"series_topic", w.seriesTopic,
		"pivot_topic", w.pivotTopic,
		"messages", len(msgs),
	)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func serializeSeries(report domain.Report, topic string) ([]kafkago.Message, error) {
	msgs := make([]kafkago.Message, len(report.Series))
	for i, p := range report.Series {
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("serialize series point %s: %w", p.Key(), err)
		}
		msgs[i] = kafkago.Message{
			Topic:   topic,
			Key:     []byte(p.Key()),
			Value:   data,
			Headers: headers(report, "series"),
		}
	}
	return msgs, nil
}

// serializePivot keys rows by pivot year as well as month and type so rows
// from different target years do not collide on a compacted topic.
func serializePivot(report domain.Report, topic string) ([]kafkago.Message, error) {
	year := strconv.Itoa(report.PivotYear)
	msgs := make([]kafkago.Message, len(report.Pivot))
	for i, r := range report.Pivot {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("serialize pivot row %s: %w", r.Key(), err)
		}
		msgs[i] = kafkago.Message{
			Topic:   topic,
			Key:     []byte(year + "|" + r.Key()),
			Value:   data,
			Headers: headers(report, "pivot"),
		}
	}
	return msgs, nil
}

func headers(report domain.Report, dataset string) []kafkago.Header {
	return []kafkago.Header{
		{Key: "run_id", Value: []byte(report.RunID)},
		{Key: "dataset", Value: []byte(dataset)},
		{Key: "generated_at", Value: []byte(report.GeneratedAt.Format(time.RFC3339))},
	}
}
