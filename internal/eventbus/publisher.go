package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/activities/internal/events"
)

// Header keys set on every roster event.
const (
	HeaderEventType = "event_type"
	HeaderEventID   = "event_id"
)

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// Publisher writes roster events to a single Kafka topic.
type Publisher struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
}

// NewPublisher constructs a Publisher. A zero timeout leaves the caller's
// deadline in charge.
func NewPublisher(writer messageWriter, topic string, timeout time.Duration) *Publisher {
	return &Publisher{writer: writer, topic: topic, timeout: timeout}
}

// Publish encodes event as JSON keyed by activity name.
func (p *Publisher) Publish(ctx context.Context, event events.RosterChanged) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.Type, err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	msg := kafka.Message{
		Key:   []byte(event.Activity),
		Value: body,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.Type)},
			{Key: HeaderEventID, Value: []byte(event.EventID)},
		},
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, p.topic, msg)
	publishDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		failedCounter.WithLabelValues(event.Type).Inc()
		return fmt.Errorf("write %s to %s: %w", event.Type, p.topic, err)
	}
	publishedCounter.WithLabelValues(event.Type).Inc()
	return nil
}
