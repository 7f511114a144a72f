// Package audit records security-relevant account and data changes.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/locojk/GNG-5300-Group-Backend/internal/observability"
	"github.com/segmentio/kafka-go"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

type Event struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id,omitempty"`
	Action        string         `json:"action"`
	Resource      string         `json:"resource"`
	Status        string         `json:"status"`
	Details       map[string]any `json:"details,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	At            time.Time      `json:"at"`
}

type Sink interface {
	Write(ctx context.Context, event Event) error
}

// Recorder fans events out to its sinks. Sink failures are logged and never
// reach the caller.
type Recorder struct {
	sinks  []Sink
	logger *slog.Logger
	now    func() time.Time
}

func NewRecorder(logger *slog.Logger, sinks ...Sink) *Recorder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recorder{
		sinks:  append([]Sink{LogSink{logger: logger}}, sinks...),
		logger: logger,
		now:    time.Now,
	}
}

func (r *Recorder) Record(ctx context.Context, userID, action, resource, status string, details map[string]any) {
	if r == nil {
		return
	}
	event := Event{
		ID:            uuid.NewString(),
		UserID:        userID,
		Action:        action,
		Resource:      resource,
		Status:        status,
		Details:       details,
		CorrelationID: observability.CorrelationID(ctx),
		At:            r.now().UTC(),
	}
	for _, sink := range r.sinks {
		if err := sink.Write(ctx, event); err != nil {
			r.logger.WarnContext(ctx, "audit sink failed",
				slog.String("action", action),
				slog.String("error", err.Error()),
			)
		}
	}
}

// LogSink writes events to the process logger.
type LogSink struct {
	logger *slog.Logger
}

func (s LogSink) Write(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "audit event",
		slog.String("audit_id", event.ID),
		slog.String("user_id", event.UserID),
		slog.String("action", event.Action),
		slog.String("resource", event.Resource),
		slog.String("status", event.Status),
		slog.Any("details", event.Details),
		slog.String("correlation_id", event.CorrelationID),
	)
	return nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes events as JSON, keyed by user id so one user's events
// stay ordered within a partition.
type KafkaSink struct {
	writer messageWriter
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
	}}
}

func (s *KafkaSink) Write(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.UserID),
		Value: payload,
		Time:  event.At,
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
