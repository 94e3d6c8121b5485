package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"bnpl-financing-engine/internal/metrics"
	"bnpl-financing-engine/internal/utils"
)

// Async decouples callers from a slow sink. Record never blocks and never
// fails; when the buffer is full the event is dropped and logged.
type Async struct {
	next    Sink
	events  chan Event
	timeout time.Duration
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsync starts the worker draining into next.
func NewAsync(next Sink, buffer int, m *metrics.Metrics) *Async {
	if buffer <= 0 {
		buffer = 256
	}
	a := &Async{
		next:    next,
		events:  make(chan Event, buffer),
		timeout: 5 * time.Second,
		metrics: m,
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Record implements Sink.
func (a *Async) Record(_ context.Context, event Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		a.drop(event, "closed")
		return nil
	}

	select {
	case a.events <- event:
	default:
		a.drop(event, "buffer full")
	}
	return nil
}

func (a *Async) drop(event Event, why string) {
	a.metrics.AuditDropped()
	utils.GetLogger().Warn("Dropping audit event",
		zap.String("reason", why),
		zap.String("action", string(event.Action)),
		zap.String("entity_id", event.EntityID),
	)
}

func (a *Async) run() {
	defer close(a.done)
	for event := range a.events {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Record(ctx, event); err != nil {
			utils.GetLogger().Error("Failed to record audit event",
				zap.String("action", string(event.Action)),
				zap.String("entity_id", event.EntityID),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// Close stops accepting events and waits for the buffer to drain or ctx to end.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.events)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
