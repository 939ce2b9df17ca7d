package models

import (
	"encoding/json"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditAction names the operation performed on a subject
type AuditAction string

const (
	AuditActionCancelEntire       AuditAction = "CANCEL_ENTIRE"
	AuditActionDowngrade          AuditAction = "DOWNGRADE"
	AuditActionPartCancel         AuditAction = "PART_CANCEL"
	AuditActionPartial            AuditAction = "PARTIAL"
	AuditActionCancel             AuditAction = "CANCEL"
	AuditActionSyncAppendedIDs    AuditAction = "SYNC_APPENDED_IDS"
	AuditActionUpdateTrueName     AuditAction = "UPDATE_TRUE_NAME"
	AuditActionUpdateAliases      AuditAction = "UPDATE_ALIASES"
	AuditActionDeleteAlias        AuditAction = "DELETE_ALIAS"
	AuditActionUpdateDemographics AuditAction = "UPDATE_DEMOGRAPHICS"
	AuditActionUpdateReferences   AuditAction = "UPDATE_REFERENCES"
)

// AuditLog represents an immutable record of an action taken on a subject
type AuditLog struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_audit_created_at" json:"created_at"`

	// Actor identification, supplied by the session layer
	UserName  string `gorm:"not null;index:idx_audit_user" json:"user_name"`
	IPAddress string `json:"ip_address,omitempty"`

	// Target subject
	TargetSID string `gorm:"column:target_sid;size:10;index:idx_audit_target" json:"target_sid"`
	SystemID  int64  `json:"system_id"`

	// Operation details
	Action  AuditAction `gorm:"not null;index:idx_audit_action" json:"action"`
	Details string      `gorm:"type:text" json:"details,omitempty"`

	// Change tracking (for update operations)
	OldValues string `gorm:"type:text" json:"old_values,omitempty"` // JSON encoded
	NewValues string `gorm:"type:text" json:"new_values,omitempty"` // JSON encoded
}

// AuditChange represents a single field change
type AuditChange struct {
	Field string      `json:"field"`
	Old   interface{} `json:"old"`
	New   interface{} `json:"new"`
}

// Changes parses OldValues and NewValues into a slice of AuditChange
func (a *AuditLog) Changes() []AuditChange {
	var changes []AuditChange
	oldMap := make(map[string]interface{})
	newMap := make(map[string]interface{})

	if a.OldValues != "" {
		_ = json.Unmarshal([]byte(a.OldValues), &oldMap)
	}
	if a.NewValues != "" {
		_ = json.Unmarshal([]byte(a.NewValues), &newMap)
	}

	keys := make(map[string]struct{})
	for k := range oldMap {
		keys[k] = struct{}{}
	}
	for k := range newMap {
		keys[k] = struct{}{}
	}

	for k := range keys {
		o := oldMap[k]
		n := newMap[k]
		if !reflect.DeepEqual(o, n) {
			changes = append(changes, AuditChange{Field: k, Old: o, New: n})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
	return changes
}

// BeforeCreate generates the UUID
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// BeforeUpdate prevents modification of audit logs (immutability)
func (a *AuditLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableRecord
}

// BeforeDelete prevents deletion of audit logs (immutability)
func (a *AuditLog) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableRecord
}

// TableName specifies the table name
func (AuditLog) TableName() string {
	return "audit_logs"
}
