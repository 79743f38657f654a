package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &mockWriter{}
	p := &KafkaPublisher{writer: w}

	err := ForSession(p, "sess-1").Publish(context.Background(), Event{
		Type:    TypeCartItemAdded,
		Payload: map[string]any{"line_item_id": "p1-s1", "quantity": 2},
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "sess-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, TypeCartItemAdded, string(msg.Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "sess-1", decoded.SessionID)
	assert.Equal(t, TypeCartItemAdded, decoded.Type)
	assert.WithinDuration(t, time.Now(), decoded.OccurredAt, time.Minute)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &mockWriter{err: errors.New("broker unavailable")}
	p := &KafkaPublisher{writer: w}

	err := p.Publish(context.Background(), Event{Type: TypeCartCleared})
	require.ErrorContains(t, err, "broker unavailable")
	assert.ErrorContains(t, err, TypeCartCleared)
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &mockWriter{}
	p := &KafkaPublisher{writer: w}
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaPublisher_DoesNotBlockCallers(t *testing.T) {
	pub := NewKafkaPublisher(nil, "storefront-events", "127.0.0.1:1")
	defer pub.Close()

	w, ok := pub.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.True(t, w.Async)
	assert.Equal(t, 3, w.MaxAttempts)
	assert.Positive(t, w.WriteTimeout)
	assert.NotNil(t, w.Completion)

	// nothing listens on the broker address; the write is only queued
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	require.NoError(t, pub.Publish(ctx, Event{Type: TypeCartCleared, SessionID: "s1"}))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestForSession_KeepsExplicitSession(t *testing.T) {
	w := &mockWriter{}
	p := ForSession(&KafkaPublisher{writer: w}, "default")

	require.NoError(t, p.Publish(context.Background(), Event{Type: TypeOrderPlaced, SessionID: "explicit"}))
	assert.Equal(t, "explicit", string(w.messages[0].Key))
}

func TestForSession_NilPublisher(t *testing.T) {
	assert.NoError(t, ForSession(nil, "s").Publish(context.Background(), Event{Type: TypeCartCleared}))
}
