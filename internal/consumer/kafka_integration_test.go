//go:build integration

package consumer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkaContainer "github.com/testcontainers/testcontainers-go/modules/kafka"
	"go.uber.org/zap/zaptest"

	"example.com/activities/internal/domain"
	"example.com/activities/internal/eventbus"
	"example.com/activities/internal/events"
	"example.com/activities/internal/registry"
	"example.com/activities/internal/storetest"
)

type collectingHandler struct {
	mu   sync.Mutex
	seen []events.RosterChanged
	done chan struct{}
	want int
}

func (h *collectingHandler) Handle(_ context.Context, msg Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, msg.Event)
	if len(h.seen) == h.want {
		close(h.done)
	}
	return nil
}

func TestRosterEventsRoundTripThroughKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	kafkaC, err := kafkaContainer.Run(ctx, "confluentinc/confluent-local:7.5.0", testcontainers.WithEnv(map[string]string{
		"KAFKA_AUTO_CREATE_TOPICS_ENABLE": "true",
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kafkaC.Terminate(context.Background()) })

	brokers, err := kafkaC.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	const topic = "roster_events"
	conn, err := kafka.Dial("tcp", brokers[0])
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))

	producer := eventbus.NewKafkaProducer(eventbus.ProducerConfig{Brokers: brokers})
	t.Cleanup(func() { _ = producer.Close() })

	dispatcher := eventbus.NewDispatcher(eventbus.NewPublisher(producer, topic, 10*time.Second), 16, zaptest.NewLogger(t))
	dispatchCtx, stopDispatch := context.WithCancel(ctx)
	go dispatcher.Start(dispatchCtx)

	service := domain.NewService(
		registry.NewInMemoryRegistry(storetest.Seed()),
		domain.WithPublisher(dispatcher),
		domain.WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, service.Enroll(ctx, "Chess Club", "x@y.edu"))
	require.NoError(t, service.Unenroll(ctx, "Chess Club", "x@y.edu"))
	stopDispatch()
	dispatcher.Wait()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     "roster-auditor-test",
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	defer reader.Close()

	handler := &collectingHandler{done: make(chan struct{}), want: 2}
	processor := NewProcessor(reader, handler, WithLogger(zaptest.NewLogger(t)))

	runCtx, stop := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- processor.Run(runCtx) }()

	select {
	case <-handler.done:
	case <-ctx.Done():
		t.Fatal("timed out waiting for roster events")
	}
	stop()
	require.ErrorIs(t, <-errCh, context.Canceled)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Equal(t, events.TypeParticipantAdded, handler.seen[0].Type)
	require.Equal(t, events.TypeParticipantRemoved, handler.seen[1].Type)
	require.Equal(t, "x@y.edu", handler.seen[1].Email)
}
