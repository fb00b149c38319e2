package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPublishTimeout bounds a single delivery to the sink.
const DefaultPublishTimeout = 5 * time.Second

// Dispatcher buffers events and publishes them to a Sink from a single
// background goroutine. When the buffer is full, Emit drops the event.
type Dispatcher struct {
	sink    Sink
	events  chan Event
	done    chan struct{}
	timeout time.Duration
	onDrop  func()

	mu     sync.RWMutex
	closed bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithPublishTimeout overrides DefaultPublishTimeout.
func WithPublishTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) { disp.timeout = d }
}

// WithDropHook is called for every dropped event.
func WithDropHook(fn func()) DispatcherOption {
	return func(disp *Dispatcher) { disp.onDrop = fn }
}

// NewDispatcher starts a dispatcher with room for buffer pending events.
func NewDispatcher(sink Sink, buffer int, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sink:    sink,
		events:  make(chan Event, max(buffer, 1)),
		done:    make(chan struct{}),
		timeout: DefaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.run()
	return d
}

// Emit queues event for delivery. It never blocks.
func (d *Dispatcher) Emit(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		slog.Warn("Audit event emitted after close", "type", event.Type, "fund_id", event.FundID)
		return
	}

	select {
	case d.events <- event:
	default:
		slog.Warn("Audit buffer full, dropping event", "type", event.Type, "fund_id", event.FundID, "event_id", event.ID)
		if d.onDrop != nil {
			d.onDrop()
		}
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for event := range d.events {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.sink.Publish(ctx, event); err != nil {
			slog.Error("Failed to publish audit event", "type", event.Type, "event_id", event.ID, "error", err)
		}
		cancel()
	}
}

// Close stops accepting events, drains the buffer and closes the sink.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.events)
	d.mu.Unlock()

	<-d.done
	return d.sink.Close()
}
