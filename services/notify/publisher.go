package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Message is one outbox entry ready for delivery
type Message struct {
	ID        string
	Topic     string
	Key       string
	EventType string
	Payload   []byte
}

// Publisher defines the interface for delivering outbox messages to an external system
type Publisher interface {
	// Publish delivers msg; an error leaves the message for retry
	Publish(ctx context.Context, msg Message) error

	// Close flushes and releases the underlying client
	Close() error
}

// Options configures the publisher returned by GetPublisher
type Options struct {
	Brokers  []string
	ClientID string
	Logger   *zap.Logger
}

// ErrNoBrokers is returned when the kafka publisher has no seed brokers
var ErrNoBrokers = errors.New("kafka publisher requires at least one broker")

// GetPublisher returns the implementation registered under name
func GetPublisher(name string, opts Options) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "kafka":
		return NewKafkaPublisher(opts)
	case "log", "":
		return NewLogPublisher(opts.Logger), nil
	default:
		return nil, fmt.Errorf("publisher not implemented: %s", name)
	}
}
