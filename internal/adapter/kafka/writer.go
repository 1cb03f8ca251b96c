package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/epiforecast/epi-pipeline/internal/config"
	"github.com/epiforecast/epi-pipeline/internal/domain"
)

// Writer publishes canonical series snapshots to a Kafka topic so downstream
// consumers (dashboards, archival jobs) see each completed build.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes one canonical series and writes it to the sink topic.
func (w *Writer) Publish(ctx context.Context, s domain.CanonicalSeries) error {
	msg, err := serializeToMessage(s)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a series into a Kafka message. The key is
// source|location|target so snapshots of the same stream land in one
// partition and compact cleanly.
func serializeToMessage(s domain.CanonicalSeries) (kafkago.Message, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize series snapshot: %w", err)
	}
	key := fmt.Sprintf("%s|%s|%s", s.Source, s.Location, s.Target)
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "target", Value: []byte(s.Target)},
			{Key: "processed_at", Value: []byte(s.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
