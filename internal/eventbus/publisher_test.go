package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/activities/internal/events"
)

type stubWriter struct {
	topic    string
	messages []kafka.Message
	deadline bool
	err      error
}

func (w *stubWriter) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	w.topic = topic
	_, w.deadline = ctx.Deadline()
	w.messages = append(w.messages, msgs...)
	return w.err
}

func TestPublishWritesKeyedMessage(t *testing.T) {
	writer := &stubWriter{}
	publisher := NewPublisher(writer, "roster_events", time.Second)
	before := testutil.ToFloat64(publishedCounter.WithLabelValues(events.TypeParticipantAdded))

	occurred := time.Date(2026, time.March, 2, 15, 30, 0, 0, time.UTC)
	err := publisher.Publish(context.Background(), events.RosterChanged{
		EventID:    "evt-1",
		Type:       events.TypeParticipantAdded,
		Activity:   "Chess Club",
		Email:      "x@y.edu",
		OccurredAt: occurred,
	})
	require.NoError(t, err)

	require.Equal(t, "roster_events", writer.topic)
	require.True(t, writer.deadline)
	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	require.Equal(t, "Chess Club", string(msg.Key))
	require.Equal(t, occurred, msg.Time)
	require.Contains(t, msg.Headers, kafka.Header{Key: HeaderEventType, Value: []byte(events.TypeParticipantAdded)})
	require.Contains(t, msg.Headers, kafka.Header{Key: HeaderEventID, Value: []byte("evt-1")})

	var decoded events.RosterChanged
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	require.Equal(t, "x@y.edu", decoded.Email)
	require.Equal(t, events.TypeParticipantAdded, decoded.Type)

	require.Equal(t, before+1, testutil.ToFloat64(publishedCounter.WithLabelValues(events.TypeParticipantAdded)))
}

func TestPublishReportsWriterFailure(t *testing.T) {
	writer := &stubWriter{err: errors.New("broker unavailable")}
	publisher := NewPublisher(writer, "roster_events", 0)
	before := testutil.ToFloat64(failedCounter.WithLabelValues(events.TypeParticipantRemoved))

	err := publisher.Publish(context.Background(), events.RosterChanged{
		EventID:  "evt-2",
		Type:     events.TypeParticipantRemoved,
		Activity: "Chess Club",
		Email:    "x@y.edu",
	})
	require.ErrorContains(t, err, "broker unavailable")
	require.False(t, writer.deadline)
	require.Equal(t, before+1, testutil.ToFloat64(failedCounter.WithLabelValues(events.TypeParticipantRemoved)))
}
