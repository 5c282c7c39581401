package kafkasink

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	apartments "github.com/khaledahmed0918-sys/Apartments"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
	hadDL  bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, f.hadDL = ctx.Deadline()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestEmitPublishesJSONKeyedByEmail(t *testing.T) {
	w := &fakeWriter{}
	sink := NewWithWriter(w, time.Second, nil)

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sink.Emit(context.Background(), apartments.AuditEvent{
		Timestamp: ts,
		EventType: "login_failure",
		Email:     "a@x.com",
		Error:     "invalid_credentials",
	})

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "a@x.com", string(msg.Key))
	assert.Equal(t, ts, msg.Time)
	assert.True(t, w.hadDL, "publish should carry the write timeout")
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "login_failure", string(msg.Headers[0].Value))

	var decoded apartments.AuditEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "login_failure", decoded.EventType)
	assert.Equal(t, "invalid_credentials", decoded.Error)
	assert.False(t, decoded.Success)
	assert.Zero(t, sink.Failed())
}

func TestEmitCountsFailures(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	sink := NewWithWriter(w, 0, nil)

	sink.Emit(context.Background(), apartments.AuditEvent{EventType: "logout"})
	sink.Emit(context.Background(), apartments.AuditEvent{EventType: "logout"})

	assert.Equal(t, uint64(2), sink.Failed())
	assert.False(t, w.hadDL, "zero timeout adds no deadline")
}

func TestCloseClosesWriter(t *testing.T) {
	w := &fakeWriter{}
	sink := NewWithWriter(w, 0, nil)

	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Topic: "audit"}, nil)
	require.Error(t, err)

	_, err = New(Config{Brokers: []string{"localhost:9092"}}, nil)
	require.Error(t, err)

	sink, err := New(DefaultConfig([]string{"localhost:9092"}, "apartments.audit"), nil)
	require.NoError(t, err)
	require.NoError(t, sink.Close())
}
