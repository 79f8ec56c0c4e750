package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/storm-radar-service/internal/domain"
)

// MessageWriter is the subset of kafka-go's Writer used by the Notifier.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Notifier publishes scan notifications to a Kafka topic so downstream
// services can react to new radar data. It implements watcher.Listener.
type Notifier struct {
	writer MessageWriter
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the notification topic.
func NewNotifier(brokers []string, topic string, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return NewNotifierWithWriter(w, logger)
}

// NewNotifierWithWriter wraps an existing writer.
func NewNotifierWithWriter(w MessageWriter, logger *slog.Logger) *Notifier {
	return &Notifier{writer: w, logger: logger}
}

// OnScan publishes n keyed by station, so one station's scans stay ordered
// within a partition.
func (n *Notifier) OnScan(ctx context.Context, scan domain.ScanNotification) error {
	msg, err := serializeToMessage(scan)
	if err != nil {
		return err
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish scan notification: %w", err)
	}
	n.logger.Debug("scan notification published", "station", scan.Station, "scan_time", scan.Time())
	return nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals a ScanNotification into a Kafka message.
func serializeToMessage(scan domain.ScanNotification) (kafkago.Message, error) {
	data, err := json.Marshal(scan)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize scan notification: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(scan.Station),
		Value: data,
		Time:  scan.Time(),
		Headers: []kafkago.Header{
			{Key: "station", Value: []byte(scan.Station)},
			{Key: "scan_time", Value: []byte(scan.Time().Format(time.RFC3339))},
		},
	}, nil
}
