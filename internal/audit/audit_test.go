package audit

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
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
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// blockingSink holds every publish until release is closed.
type blockingSink struct {
	release   chan struct{}
	published atomic.Int32
}

func (s *blockingSink) Publish(ctx context.Context, _ Event) error {
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	s.published.Add(1)
	return nil
}

func (s *blockingSink) Close() error { return nil }

var at = time.Date(2024, time.January, 5, 9, 0, 0, 0, time.UTC)

func TestKafkaSinkPublish(t *testing.T) {
	w := &fakeWriter{}
	sink := NewKafkaSinkWithWriter(w)

	e := NewEvent(PaymentSubmitted, "fund-1", "alice", at)
	e.Amount = 1000
	require.NoError(t, sink.Publish(context.Background(), e))
	require.NoError(t, sink.Close())

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "fund-1", string(w.msgs[0].Key))
	assert.True(t, w.closed)

	var got Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, PaymentSubmitted, got.Type)
	assert.Equal(t, 1000.0, got.Amount)
}

func TestDispatcherDeliversOnClose(t *testing.T) {
	w := &fakeWriter{}
	d := NewDispatcher(NewKafkaSinkWithWriter(w), 16)

	for i := 0; i < 10; i++ {
		d.Emit(NewEvent(PaymentApproved, "fund-1", "admin", at))
	}
	require.NoError(t, d.Close())

	assert.Len(t, w.msgs, 10)
	assert.True(t, w.closed)

	// Emitting after close is a no-op, not a panic.
	d.Emit(NewEvent(PaymentApproved, "fund-1", "admin", at))
	require.NoError(t, d.Close())
}

func TestDispatcherNeverBlocks(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	var dropped atomic.Int32
	d := NewDispatcher(sink, 2, WithDropHook(func() { dropped.Add(1) }))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			d.Emit(NewEvent(DisputeRaised, "fund-1", "alice", at))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a stuck sink")
	}

	close(sink.release)
	require.NoError(t, d.Close())

	// At most one in flight plus the buffer were delivered; the rest dropped.
	assert.Equal(t, int32(50), sink.published.Load()+dropped.Load())
	assert.Positive(t, dropped.Load())
}

func TestEventIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		e := NewEvent(FundCreated, "fund-1", "admin", at)
		assert.False(t, seen[e.ID], "duplicate id %s", e.ID)
		seen[e.ID] = true
	}
}
