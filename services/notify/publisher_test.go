package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetPublisher(t *testing.T) {
	t.Run("Log publisher by default", func(t *testing.T) {
		p, err := GetPublisher("", Options{})
		require.NoError(t, err)
		assert.IsType(t, &LogPublisher{}, p)

		p, err = GetPublisher("LOG", Options{})
		require.NoError(t, err)
		assert.IsType(t, &LogPublisher{}, p)
	})

	t.Run("Kafka publisher requires brokers", func(t *testing.T) {
		p, err := GetPublisher("kafka", Options{})
		assert.ErrorIs(t, err, ErrNoBrokers)
		assert.Nil(t, p)
	})

	t.Run("Kafka publisher with brokers", func(t *testing.T) {
		p, err := GetPublisher("kafka", Options{Brokers: []string{"localhost:9092"}, ClientID: "test"})
		require.NoError(t, err)
		assert.IsType(t, &KafkaPublisher{}, p)
		assert.NoError(t, p.Close())
	})

	t.Run("Unsupported publisher", func(t *testing.T) {
		p, err := GetPublisher("sqs", Options{})
		assert.Error(t, err)
		assert.Nil(t, p)
		assert.Contains(t, err.Error(), "publisher not implemented")
	})
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	err := p.Publish(context.Background(), Message{
		ID:        "msg-1",
		Topic:     "ident.drs",
		Key:       "1234567",
		EventType: "EXPUNGEMENT_CANCEL_ENTIRE",
		Payload:   []byte(`{"sid":"1234567"}`),
	})
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "ident.drs", fields["topic"])
	assert.Equal(t, "1234567", fields["key"])
	assert.Equal(t, `{"sid":"1234567"}`, fields["payload"])
	assert.NoError(t, p.Close())
}
