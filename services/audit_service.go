package services

import (
	"encoding/json"
	"fmt"
	"ident_index_app_go/logger"
	"ident_index_app_go/models"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuditContext identifies the acting user, as supplied by the session layer
type AuditContext struct {
	UserName  string
	IPAddress string
}

// auditPayload is the JSON published on the audit topic
type auditPayload struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	UserName  string `json:"user_name"`
	IPAddress string `json:"ip_address,omitempty"`
	Action    string `json:"action"`
	TargetSID string `json:"target_sid,omitempty"`
	SystemID  int64  `json:"system_id,omitempty"`
	Details   string `json:"details,omitempty"`
}

// AuditService writes audit entries inside the caller's transaction.
// Each entry is persisted to audit_logs and queued on the audit outbox topic,
// so it commits or rolls back with the change it describes.
type AuditService struct {
	Logger *zap.Logger
}

// NewAuditService creates an AuditService
func NewAuditService(l *zap.Logger) *AuditService {
	return &AuditService{Logger: logger.OrNop(l)}
}

// LogAction records actor, action and free-text detail against a subject
func (s *AuditService) LogAction(tx *gorm.DB, actor AuditContext, action models.AuditAction, target *models.MasterRecord, details string) error {
	return s.LogChange(tx, actor, action, target, details, nil, nil)
}

// LogChange records an action with before/after values
func (s *AuditService) LogChange(
	tx *gorm.DB,
	actor AuditContext,
	action models.AuditAction,
	target *models.MasterRecord,
	details string,
	oldValues interface{},
	newValues interface{},
) error {
	entry := models.AuditLog{
		UserName:  actor.UserName,
		IPAddress: actor.IPAddress,
		Action:    action,
		Details:   details,
		OldValues: marshalAuditValues(oldValues),
		NewValues: marshalAuditValues(newValues),
	}
	if target != nil {
		entry.TargetSID = target.SID
		entry.SystemID = target.SystemID
	}

	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	payload := auditPayload{
		ID:        entry.ID,
		Timestamp: entry.CreatedAt.Format(time.RFC3339Nano),
		UserName:  entry.UserName,
		IPAddress: entry.IPAddress,
		Action:    string(entry.Action),
		TargetSID: entry.TargetSID,
		SystemID:  entry.SystemID,
		Details:   entry.Details,
	}
	if _, err := EnqueueOutbox(tx, models.OutboxTopicAudit, entry.TargetSID, string(action), payload); err != nil {
		return err
	}

	s.Logger.Info("audit",
		zap.String("action", string(action)),
		zap.String("user", actor.UserName),
		zap.String("sid", entry.TargetSID),
		zap.String("details", details),
	)
	return nil
}

func marshalAuditValues(v interface{}) string {
	if v == nil {
		return ""
	}
	bytes, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(bytes)
}

// GetSubjectAuditHistory retrieves the audit history for a SID, newest first
func GetSubjectAuditHistory(db *gorm.DB, sid string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := db.Where("target_sid = ?", sid).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}

// AuditLogFilters contains filter options for audit log queries
type AuditLogFilters struct {
	UserName    string
	Action      string
	DateFrom    time.Time
	DateTo      time.Time
	SearchQuery string
}

// ListAuditLogs retrieves paginated audit logs
func ListAuditLogs(db *gorm.DB, filters AuditLogFilters, page, pageSize int) ([]models.AuditLog, int64, error) {
	query := db.Model(&models.AuditLog{})

	if filters.UserName != "" {
		query = query.Where("user_name = ?", filters.UserName)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if !filters.DateFrom.IsZero() {
		query = query.Where("created_at >= ?", filters.DateFrom)
	}
	if !filters.DateTo.IsZero() {
		query = query.Where("created_at <= ?", filters.DateTo)
	}
	if filters.SearchQuery != "" {
		searchPattern := "%" + filters.SearchQuery + "%"
		query = query.Where("target_sid LIKE ? OR details LIKE ?", searchPattern, searchPattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	var logs []models.AuditLog
	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&logs).Error

	return logs, total, err
}
