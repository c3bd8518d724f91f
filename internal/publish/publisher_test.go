package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/ivle-sim/internal/agents"
)

type recordingWriter struct {
	mu      sync.Mutex
	batches [][]kafka.Message
	err     error
	closed  bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	batch := make([]kafka.Message, len(msgs))
	copy(batch, msgs)
	w.batches = append(w.batches, batch)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleEvents(n int) []agents.Event {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	events := make([]agents.Event, n)
	for i := range events {
		events[i] = agents.Event{
			ActorID:   agents.ActorID(i%2 + 1),
			ActorName: "Ana",
			Level:     agents.LevelAverage,
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Activity:  agents.ActivityInteraction,
			Location:  "Classroom",
			Object:    "Desk",
			Duration:  time.Minute,
			Detail:    "Interacted with Desk",
		}
	}
	return events
}

func TestPublishEventsBatchesAndKeys(t *testing.T) {
	writer := &recordingWriter{}
	pub, err := newPublisherWithWriter(Config{Enabled: true, Topic: "t", BatchSize: 2}, discardLogger(), writer, writer)
	require.NoError(t, err)

	require.NoError(t, pub.PublishEvents(context.Background(), "run-1", sampleEvents(5)))

	require.Len(t, writer.batches, 3)
	assert.Len(t, writer.batches[0], 2)
	assert.Len(t, writer.batches[1], 2)
	assert.Len(t, writer.batches[2], 1)

	first := writer.batches[0][0]
	assert.Equal(t, "1", string(first.Key))
	assert.Equal(t, "2", string(writer.batches[0][1].Key))

	var msg Message
	require.NoError(t, json.Unmarshal(first.Value, &msg))
	assert.Equal(t, "run-1", msg.RunID)
	assert.Equal(t, 0, msg.Seq)
	assert.Equal(t, "interaction", msg.ActivityType)
	assert.Equal(t, "Desk", msg.Object)
	assert.Equal(t, 60.0, msg.DurationSeconds)
	assert.Equal(t, 2, msg.EngagementLevel)
}

func TestPublishEventsWriterError(t *testing.T) {
	writer := &recordingWriter{err: errors.New("broker down")}
	pub, err := newPublisherWithWriter(Config{Enabled: true, Topic: "t"}, discardLogger(), writer, writer)
	require.NoError(t, err)

	err = pub.PublishEvents(context.Background(), "run-1", sampleEvents(3))
	assert.ErrorContains(t, err, "broker down")
}

func TestDisabledPublisherIsNoop(t *testing.T) {
	pub, err := NewPublisher(Config{Enabled: false}, discardLogger())
	require.NoError(t, err)

	assert.False(t, pub.Enabled())
	assert.NoError(t, pub.PublishEvents(context.Background(), "run-1", sampleEvents(3)))
	assert.NoError(t, pub.Close())
}

func TestNewPublisherValidation(t *testing.T) {
	_, err := NewPublisher(Config{Enabled: true, Brokers: []string{"kafka:9092"}}, discardLogger())
	assert.Error(t, err)

	_, err = NewPublisher(Config{Enabled: true, Topic: "t"}, discardLogger())
	assert.Error(t, err)

	_, err = NewPublisher(Config{}, nil)
	assert.ErrorIs(t, err, errPublisherNilLogger)
}

func TestClosePropagates(t *testing.T) {
	writer := &recordingWriter{}
	pub, err := newPublisherWithWriter(Config{Enabled: true, Topic: "t"}, discardLogger(), writer, writer)
	require.NoError(t, err)

	require.NoError(t, pub.Close())
	assert.True(t, writer.closed)
}
