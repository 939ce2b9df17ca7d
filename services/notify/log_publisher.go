package notify

import (
	"context"
	"ident_index_app_go/logger"

	"go.uber.org/zap"
)

// LogPublisher writes messages to the process log instead of a broker.
// It is the default for development and for sites without Kafka.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a LogPublisher
func NewLogPublisher(l *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.OrNop(l)}
}

// Publish logs msg
func (p *LogPublisher) Publish(ctx context.Context, msg Message) error {
	p.logger.Info("outbox message",
		zap.String("id", msg.ID),
		zap.String("topic", msg.Topic),
		zap.String("key", msg.Key),
		zap.String("event_type", msg.EventType),
		zap.ByteString("payload", msg.Payload),
	)
	return nil
}

// Close is a no-op
func (p *LogPublisher) Close() error {
	return nil
}
