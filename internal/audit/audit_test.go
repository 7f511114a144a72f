package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/locojk/GNG-5300-Group-Backend/internal/observability"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestRecorderPublishesToKafkaAndLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	writer := &fakeWriter{}
	rec := NewRecorder(logger, &KafkaSink{writer: writer})

	ctx := observability.WithCorrelationID(context.Background(), "req-1")
	rec.Record(ctx, "user-1", "register", "user", StatusSuccess, map[string]any{"email": "a@example.com"})

	require.Len(t, writer.messages, 1)
	assert.Equal(t, []byte("user-1"), writer.messages[0].Key)

	var event Event
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &event))
	assert.Equal(t, "register", event.Action)
	assert.Equal(t, StatusSuccess, event.Status)
	assert.Equal(t, "req-1", event.CorrelationID)
	assert.NotEmpty(t, event.ID)

	assert.Contains(t, buf.String(), `"action":"register"`)
}

func TestRecorderSwallowsSinkFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	rec := NewRecorder(logger, &KafkaSink{writer: &fakeWriter{err: errors.New("broker down")}})

	rec.Record(context.Background(), "user-1", "login", "user", StatusFailure, nil)

	assert.Contains(t, buf.String(), "audit sink failed")
	assert.Contains(t, buf.String(), "broker down")
}

func TestNilRecorderIsNoop(t *testing.T) {
	var rec *Recorder
	rec.Record(context.Background(), "user-1", "login", "user", StatusSuccess, nil)
}
