package services

import (
	"ident_index_app_go/models"

	"gorm.io/gorm"
)

// DownstreamEvent describes a change the DRS interface must be told about
type DownstreamEvent struct {
	SID       string `json:"sid"`
	SystemID  int64  `json:"system_id"`
	Operation string `json:"operation"`
	Indicator string `json:"indicator"`
	FBINumber string `json:"fbi_number,omitempty"`
}

// DownstreamTrigger notifies external case-management and FBI interfaces.
// Implementations run inside the caller's transaction.
type DownstreamTrigger interface {
	TriggerDownstreamTransaction(tx *gorm.DB, event DownstreamEvent) error
}

// OutboxDownstreamTrigger queues the event on the DRS outbox topic
type OutboxDownstreamTrigger struct{}

// TriggerDownstreamTransaction enqueues event for the relay
func (OutboxDownstreamTrigger) TriggerDownstreamTransaction(tx *gorm.DB, event DownstreamEvent) error {
	_, err := EnqueueOutbox(tx, models.OutboxTopicDRS, event.SID, "EXPUNGEMENT_"+event.Operation, event)
	return err
}

// IIIMessage is an update sent to the Interstate Identification Index
type IIIMessage struct {
	SID       string `json:"sid"`
	FBINumber string `json:"fbi_number,omitempty"`
	Text      string `json:"text"` // e.g. SOC/123456789, DOB/070476
}

// IIINotifier forwards appended identifier additions for III-enrolled subjects
type IIINotifier interface {
	NotifyIII(tx *gorm.DB, msg IIIMessage) error
}

// OutboxIIINotifier queues III messages on the III outbox topic
type OutboxIIINotifier struct{}

// NotifyIII enqueues msg for the relay
func (OutboxIIINotifier) NotifyIII(tx *gorm.DB, msg IIIMessage) error {
	_, err := EnqueueOutbox(tx, models.OutboxTopicIII, msg.SID, "III_UPDATE", msg)
	return err
}
