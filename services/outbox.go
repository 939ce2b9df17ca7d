package services

import (
	"encoding/json"
	"fmt"
	"ident_index_app_go/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EnqueueOutbox writes a message to the outbox inside tx.
// The relay delivers it once tx commits.
func EnqueueOutbox(tx *gorm.DB, topic, key, eventType string, payload interface{}) (*models.OutboxMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal outbox payload: %w", err)
	}

	msg := &models.OutboxMessage{
		Topic:        topic,
		AggregateKey: key,
		EventType:    eventType,
		Payload:      datatypes.JSON(body),
	}
	if err := tx.Create(msg).Error; err != nil {
		return nil, fmt.Errorf("insert outbox entry: %w", err)
	}
	return msg, nil
}

// CountPendingOutbox returns the number of undelivered messages
func CountPendingOutbox(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&models.OutboxMessage{}).
		Where("status = ?", models.OutboxStatusPending).
		Count(&count).Error
	return count, err
}
