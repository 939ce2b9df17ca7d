package jobs

import (
	"context"
	"fmt"
	"ident_index_app_go/config"
	"ident_index_app_go/logger"
	"ident_index_app_go/models"
	"ident_index_app_go/services"
	"ident_index_app_go/services/notify"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	relayBaseBackoff = time.Second
	relayMaxBackoff  = 5 * time.Minute
)

// DrainStats summarizes one relay pass
type DrainStats struct {
	Sent  int `json:"sent"`
	Retry int `json:"retry"`
	Dead  int `json:"dead"`
}

// OutboxRelay delivers committed outbox messages to the configured publisher
type OutboxRelay struct {
	DB          *gorm.DB
	Publisher   notify.Publisher
	TopicFor    func(key string) string
	BatchSize   int
	MaxAttempts int
	Metrics     *services.Metrics
	Logger      *zap.Logger
	now         func() time.Time
}

// NewOutboxRelay creates a relay using the outbox settings from cfg
func NewOutboxRelay(db *gorm.DB, pub notify.Publisher, cfg *config.Config, m *services.Metrics, l *zap.Logger) *OutboxRelay {
	return &OutboxRelay{
		DB:          db,
		Publisher:   pub,
		TopicFor:    cfg.TopicFor,
		BatchSize:   cfg.OutboxBatchSize,
		MaxAttempts: cfg.OutboxMaxAttempts,
		Metrics:     m,
		Logger:      logger.OrNop(l),
		now:         time.Now,
	}
}

// Run drains the outbox every interval until ctx is cancelled
func (r *OutboxRelay) Run(ctx context.Context, interval time.Duration) error {
	r.Logger.Info("outbox relay started", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.DrainOnce(ctx); err != nil && ctx.Err() == nil {
			r.Logger.Error("outbox drain failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			r.Logger.Info("outbox relay stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// DrainOnce delivers one batch of due messages. On PostgreSQL the batch is
// claimed with SKIP LOCKED so several relays can run side by side.
func (r *OutboxRelay) DrainOnce(ctx context.Context) (DrainStats, error) {
	var stats DrainStats

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("status = ? AND next_attempt_at <= ?", models.OutboxStatusPending, r.now()).
			Order("created_at").
			Limit(r.batchSize())
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		var batch []models.OutboxMessage
		if err := query.Find(&batch).Error; err != nil {
			return fmt.Errorf("failed to load outbox batch: %w", err)
		}

		for i := range batch {
			if err := r.deliver(ctx, tx, &batch[i], &stats); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	if pending, err := services.CountPendingOutbox(r.DB.WithContext(ctx)); err == nil {
		r.Metrics.SetOutboxBacklog(pending)
	}
	if stats.Sent+stats.Retry+stats.Dead > 0 {
		r.Logger.Info("outbox drained",
			zap.Int("sent", stats.Sent),
			zap.Int("retry", stats.Retry),
			zap.Int("dead", stats.Dead),
		)
	}
	return stats, nil
}

// deliver publishes one message and records the outcome on its row
func (r *OutboxRelay) deliver(ctx context.Context, tx *gorm.DB, msg *models.OutboxMessage, stats *DrainStats) error {
	topic := r.topicName(msg.Topic)
	pubErr := r.Publisher.Publish(ctx, notify.Message{
		ID:        msg.ID,
		Topic:     topic,
		Key:       msg.AggregateKey,
		EventType: msg.EventType,
		Payload:   []byte(msg.Payload),
	})

	now := r.now()
	updates := map[string]interface{}{"attempts": msg.Attempts + 1}
	switch {
	case pubErr == nil:
		updates["status"] = models.OutboxStatusSent
		updates["sent_at"] = now
		updates["last_error"] = ""
		stats.Sent++
		r.Metrics.IncOutboxDelivery(msg.Topic, "sent")
	case msg.Attempts+1 >= r.maxAttempts():
		updates["status"] = models.OutboxStatusDead
		updates["last_error"] = pubErr.Error()
		stats.Dead++
		r.Metrics.IncOutboxDelivery(msg.Topic, "dead")
		r.Logger.Error("outbox message dead-lettered",
			zap.String("id", msg.ID),
			zap.String("topic", topic),
			zap.Int("attempts", msg.Attempts+1),
			zap.Error(pubErr),
		)
	default:
		updates["next_attempt_at"] = now.Add(Backoff(msg.Attempts + 1))
		updates["last_error"] = pubErr.Error()
		stats.Retry++
		r.Metrics.IncOutboxDelivery(msg.Topic, "retry")
		r.Logger.Warn("outbox delivery failed",
			zap.String("id", msg.ID),
			zap.String("topic", topic),
			zap.Int("attempts", msg.Attempts+1),
			zap.Error(pubErr),
		)
	}

	if err := tx.Model(&models.OutboxMessage{}).Where("id = ?", msg.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update outbox message %s: %w", msg.ID, err)
	}
	return nil
}

// Backoff returns the delay before the next attempt after n failures
func Backoff(n int) time.Duration {
	if n < 1 {
		return relayBaseBackoff
	}
	d := relayBaseBackoff
	for i := 1; i < n; i++ {
		d *= 2
		if d >= relayMaxBackoff {
			return relayMaxBackoff
		}
	}
	return d
}

func (r *OutboxRelay) topicName(key string) string {
	if r.TopicFor == nil {
		return key
	}
	if name := r.TopicFor(key); name != "" {
		return name
	}
	return key
}

func (r *OutboxRelay) batchSize() int {
	if r.BatchSize < 1 {
		return 50
	}
	return r.BatchSize
}

func (r *OutboxRelay) maxAttempts() int {
	if r.MaxAttempts < 1 {
		return 1
	}
	return r.MaxAttempts
}

// PurgeSent deletes delivered messages older than retention
func PurgeSent(db *gorm.DB, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	result := db.Where("status = ? AND sent_at < ?", models.OutboxStatusSent, cutoff).
		Delete(&models.OutboxMessage{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge outbox: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// StartOutboxPurge schedules PurgeSent on cfg.OutboxPurgeSchedule.
// The caller stops the returned scheduler on shutdown.
func StartOutboxPurge(db *gorm.DB, cfg *config.Config, l *zap.Logger) (*cron.Cron, error) {
	l = logger.OrNop(l)
	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc(cfg.OutboxPurgeSchedule, func() {
		n, err := PurgeSent(db, cfg.OutboxRetention)
		if err != nil {
			l.Error("outbox purge failed", zap.Error(err))
			return
		}
		l.Info("outbox purged", zap.Int64("deleted", n))
	})
	if err != nil {
		return nil, fmt.Errorf("schedule outbox purge: %w", err)
	}

	c.Start()
	l.Info("outbox purge scheduled", zap.String("schedule", cfg.OutboxPurgeSchedule))
	return c, nil
}
