package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProducerWritersFlushSingleEvents(t *testing.T) {
	producer := NewKafkaProducer(ProducerConfig{Brokers: []string{"kafka:9092"}})
	t.Cleanup(func() { _ = producer.Close() })

	writer := producer.writerForTopic("roster_events")
	require.Equal(t, "roster_events", writer.Topic)
	require.Equal(t, 10*time.Millisecond, writer.BatchTimeout)
	require.Equal(t, 1, writer.BatchSize)
	require.Same(t, writer, producer.writerForTopic("roster_events"))
}

func TestProducerKeepsConfiguredBatching(t *testing.T) {
	producer := NewKafkaProducer(ProducerConfig{
		Brokers:      []string{"kafka:9092"},
		BatchTimeout: 50 * time.Millisecond,
		BatchSize:    20,
	})
	t.Cleanup(func() { _ = producer.Close() })

	writer := producer.writerForTopic("roster_events")
	require.Equal(t, 50*time.Millisecond, writer.BatchTimeout)
	require.Equal(t, 20, writer.BatchSize)
}
