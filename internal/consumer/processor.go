// Package consumer reads roster events back from Kafka for auditing.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"example.com/activities/internal/eventbus"
	"example.com/activities/internal/events"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded roster events.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is a decoded roster event together with its Kafka coordinates.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Event     events.RosterChanged
	Raw       json.RawMessage
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithRetryBackoff sets the delay before the first retry of a failed fetch
// or handler call and the ceiling the doubling delay stops at.
func WithRetryBackoff(base, max time.Duration) Option {
	return func(p *Processor) {
		if base > 0 {
			p.baseDelay = base
		}
		if max >= p.baseDelay {
			p.maxDelay = max
		}
	}
}

// Processor pulls messages from Kafka, decodes them, and dispatches to a Handler.
// A message is committed only after the handler accepts it; a failing handler
// is retried on the same message so later commits never skip it.
type Processor struct {
	reader    Reader
	handler   Handler
	logger    *zap.Logger
	baseDelay time.Duration
	maxDelay  time.Duration
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:    reader,
		handler:   handler,
		logger:    zap.NewNop(),
		baseDelay: 200 * time.Millisecond,
		maxDelay:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts a blocking loop that processes Kafka messages until the context is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	fetchFailures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			fetchFailures++
			p.logger.Warn("fetch error", zap.Int("attempt", fetchFailures), zap.Error(err))
			if err := p.sleep(ctx, fetchFailures); err != nil {
				return err
			}
			continue
		}
		fetchFailures = 0

		decoded, decodeErr := decodeMessage(msg)
		if decodeErr != nil {
			p.logger.Warn("decode error",
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(decodeErr),
			)
			recordDecodeError(msg.Topic)
			// Commit malformed messages to avoid poison-pill loops.
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.logger.Warn("commit error after decode failure", zap.Error(commitErr))
			}
			continue
		}

		if err := p.handle(ctx, decoded); err != nil {
			return err
		}

		if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
			p.logger.Warn("commit error", zap.Error(commitErr))
		} else {
			recordProcessed(decoded)
		}
	}
}

// handle retries the handler until it succeeds. It only returns an error
// once ctx is done.
func (p *Processor) handle(ctx context.Context, msg Message) error {
	for attempt := 1; ; attempt++ {
		err := p.handler.Handle(ctx, msg)
		if err == nil {
			return nil
		}
		p.logger.Error("handler error",
			zap.String("event_type", msg.Event.Type),
			zap.String("event_id", msg.Event.EventID),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		recordHandlerError(msg)
		if err := p.sleep(ctx, attempt); err != nil {
			return err
		}
	}
}

func (p *Processor) sleep(ctx context.Context, attempt int) error {
	timer := time.NewTimer(p.backoffDelay(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoffDelay doubles the base delay per attempt, capped at maxDelay.
func (p *Processor) backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 20 {
		return p.maxDelay
	}
	delay := time.Duration(1<<uint(attempt-1)) * p.baseDelay
	if delay > p.maxDelay {
		delay = p.maxDelay
	}
	return delay
}

func decodeMessage(msg kafka.Message) (Message, error) {
	eventType, ok := headerValue(msg, eventbus.HeaderEventType)
	if !ok {
		return Message{}, errors.New("missing event_type header")
	}
	if !events.Known(string(eventType)) {
		return Message{}, fmt.Errorf("unknown event type %q", eventType)
	}

	var event events.RosterChanged
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return Message{}, fmt.Errorf("decode payload: %w", err)
	}
	if event.Type != string(eventType) {
		return Message{}, fmt.Errorf("event_type header %q does not match payload %q", eventType, event.Type)
	}
	if event.Activity == "" || event.Email == "" {
		return Message{}, errors.New("payload missing activity or email")
	}

	return Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Event:     event,
		Raw:       json.RawMessage(append([]byte(nil), msg.Value...)),
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
