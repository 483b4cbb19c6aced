package events

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
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
	err    error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	return nil
}

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()

	return append([]kafka.Message(nil), w.msgs...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope(OrderPaid, 7, map[string]string{"order_id": "abc"})
	require.NoError(t, err)

	assert.NotEmpty(t, env.ID)
	assert.Equal(t, OrderPaid, env.Type)
	assert.Equal(t, int64(7), env.ShowID)
	assert.JSONEq(t, `{"order_id":"abc"}`, string(env.Data))
	assert.WithinDuration(t, time.Now(), env.OccurredAt, time.Minute)

	bare, err := NewEnvelope(ReservationsExpired, 0, nil)
	require.NoError(t, err)
	assert.Nil(t, bare.Data)
}

func TestKafkaProducerFlushesOnShutdown(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaProducer(w, 8, discardLogger())

	for i := int64(1); i <= 3; i++ {
		env, err := NewEnvelope(ReservationCreated, i, nil)
		require.NoError(t, err)
		require.NoError(t, p.Publish(context.Background(), env))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))

	msgs := w.written()
	require.Len(t, msgs, 3)
	assert.True(t, w.closed)

	keys := map[string]bool{}
	for _, m := range msgs {
		keys[string(m.Key)] = true

		var env Envelope
		require.NoError(t, json.Unmarshal(m.Value, &env))
		assert.Equal(t, ReservationCreated, env.Type)
		assert.Equal(t, "type", m.Headers[0].Key)
	}
	assert.Equal(t, map[string]bool{"1": true, "2": true, "3": true}, keys)
}

func TestKafkaProducerBufferFull(t *testing.T) {
	p := newKafkaProducer(&fakeWriter{}, 1, discardLogger())

	env, err := NewEnvelope(OrderCreated, 1, nil)
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), env))
	assert.ErrorIs(t, p.Publish(context.Background(), env), ErrBufferFull)
}

func TestKafkaProducerKeepsRunningOnWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newKafkaProducer(w, 4, discardLogger())

	env, err := NewEnvelope(OrderFailed, 2, nil)
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), env))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, p.Run(ctx))
	assert.Empty(t, w.written())
}
