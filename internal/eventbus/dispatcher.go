package eventbus

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"example.com/activities/internal/events"
)

var (
	// ErrQueueFull is returned by Dispatcher.Publish when the buffer has no room.
	ErrQueueFull = errors.New("roster event queue full")
	// ErrDispatcherStopped is returned by Dispatcher.Publish after shutdown.
	ErrDispatcherStopped = errors.New("roster event dispatcher stopped")
)

type eventPublisher interface {
	Publish(context.Context, events.RosterChanged) error
}

// Dispatcher buffers roster events in memory and delivers them to Kafka
// from a single goroutine.
// Events are delivered in the order they were queued.
type Dispatcher struct {
	publisher        eventPublisher
	logger           *zap.Logger
	queue            chan events.RosterChanged
	mu               sync.RWMutex
	closed           bool
	shutdownComplete chan struct{}
}

// NewDispatcher constructs a Dispatcher holding up to buffer pending events.
func NewDispatcher(publisher eventPublisher, buffer int, logger *zap.Logger) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		publisher:        publisher,
		logger:           logger,
		queue:            make(chan events.RosterChanged, buffer),
		shutdownComplete: make(chan struct{}),
	}
}

// Publish queues event without waiting for Kafka.
func (d *Dispatcher) Publish(_ context.Context, event events.RosterChanged) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherStopped
	}

	queueDepth.Inc()
	select {
	case d.queue <- event:
		return nil
	default:
		queueDepth.Dec()
		droppedCounter.WithLabelValues(event.Type).Inc()
		return ErrQueueFull
	}
}

// Start delivers queued events until ctx is done, then drains what is left.
// It should be called in a goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	defer close(d.shutdownComplete)

	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case event := <-d.queue:
			d.deliver(event)
		}
	}
}

// Wait waits until the dispatcher has drained and stopped.
func (d *Dispatcher) Wait() {
	<-d.shutdownComplete
}

func (d *Dispatcher) drain() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(event events.RosterChanged) {
	queueDepth.Dec()
	// The publisher applies its own write timeout.
	if err := d.publisher.Publish(context.Background(), event); err != nil {
		d.logger.Warn("roster event delivery failed",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.Type),
			zap.String("activity", event.Activity),
			zap.Error(err),
		)
	}
}
