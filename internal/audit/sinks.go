package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// LogSink writes events to the structured log.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Publish implements Sink.
func (s *LogSink) Publish(ctx context.Context, e Event) error {
	s.logger.InfoContext(ctx, "Audit event",
		"event_id", e.ID,
		"type", e.Type,
		"fund_id", e.FundID,
		"actor_id", e.ActorID,
		"cycle_id", e.CycleID,
		"member_id", e.MemberID,
		"amount", e.Amount,
		"detail", e.Detail,
	)
	return nil
}

// Close implements Sink.
func (s *LogSink) Close() error { return nil }

// Writer is the subset of kafka.Writer the sink needs, so tests can inject one.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes events as JSON messages keyed by fund ID, so events of
// one fund stay ordered within a partition.
type KafkaSink struct {
	writer Writer
}

// NewKafkaSink creates a sink writing to topic on the given brokers.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaSink{writer: w}
}

// NewKafkaSinkWithWriter allows injecting a test writer.
func NewKafkaSinkWithWriter(w Writer) *KafkaSink {
	return &KafkaSink{writer: w}
}

// Publish implements Sink.
func (s *KafkaSink) Publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(e.FundID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	return nil
}

// Close implements Sink.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
