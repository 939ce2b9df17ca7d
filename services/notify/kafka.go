package notify

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaPublisher produces outbox messages to Kafka
type KafkaPublisher struct {
	client *kgo.Client
}

// NewKafkaPublisher creates a producer for the configured brokers.
// The client connects lazily on first produce.
func NewKafkaPublisher(opts Options) (*KafkaPublisher, error) {
	if len(opts.Brokers) == 0 {
		return nil, ErrNoBrokers
	}

	kopts := []kgo.Opt{
		kgo.SeedBrokers(opts.Brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	if opts.ClientID != "" {
		kopts = append(kopts, kgo.ClientID(opts.ClientID))
	}

	client, err := kgo.NewClient(kopts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client}, nil
}

// Publish produces msg and waits for the broker acknowledgement
func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	record := &kgo.Record{
		Topic: msg.Topic,
		Key:   []byte(msg.Key),
		Value: msg.Payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(msg.EventType)},
			{Key: "message_id", Value: []byte(msg.ID)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", msg.Topic, err)
	}
	return nil
}

// Close flushes buffered records and closes the client
func (p *KafkaPublisher) Close() error {
	p.client.Close()
	return nil
}
