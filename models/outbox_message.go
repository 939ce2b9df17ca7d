package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Outbox topics
const (
	OutboxTopicDRS   = "drs"
	OutboxTopicIII   = "iii"
	OutboxTopicAudit = "audit"
)

// OutboxStatus tracks delivery of an outbox message
type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "PENDING"
	OutboxStatusSent    OutboxStatus = "SENT"
	OutboxStatusDead    OutboxStatus = "DEAD"
)

// OutboxMessage is written in the same transaction as the change it describes
// and delivered at least once by the relay.
type OutboxMessage struct {
	ID            string         `gorm:"type:uuid;primarykey" json:"id"`
	Topic         string         `gorm:"size:16;not null;index:idx_outbox_pending,priority:2" json:"topic"`
	AggregateKey  string         `gorm:"size:32;not null" json:"aggregate_key"` // SID
	EventType     string         `gorm:"size:40;not null" json:"event_type"`
	Payload       datatypes.JSON `json:"payload"`
	Status        OutboxStatus   `gorm:"size:8;not null;default:PENDING;index:idx_outbox_pending,priority:1" json:"status"`
	Attempts      int            `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt time.Time      `gorm:"index:idx_outbox_pending,priority:3" json:"next_attempt_at"`
	LastError     string         `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	SentAt        *time.Time     `json:"sent_at,omitempty"`
}

// BeforeCreate hook to generate UUID
func (m *OutboxMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = OutboxStatusPending
	}
	if m.NextAttemptAt.IsZero() {
		m.NextAttemptAt = time.Now()
	}
	return nil
}

// TableName specifies the table name
func (OutboxMessage) TableName() string {
	return "outbox_messages"
}
