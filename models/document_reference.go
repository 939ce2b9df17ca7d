package models

import "time"

// Document categories
const (
	DocumentCategoryArrest = "ARREST"
	DocumentCategoryIndex  = "INDEX"
	DocumentCategoryRefer  = "REFER"
)

// DocumentReference is an arrest, index or reference event recorded for a subject
type DocumentReference struct {
	DocID          int64      `gorm:"primaryKey;autoIncrement" json:"doc_id"`
	SystemID       int64      `gorm:"not null;index:idx_documents_system" json:"system_id"`
	DocumentType   string     `gorm:"size:3;not null;index:idx_documents_type" json:"document_type"`
	Category       string     `gorm:"size:6" json:"category"`
	DocumentNumber string     `gorm:"size:20" json:"document_number"`
	DocumentDate   *time.Time `json:"document_date,omitempty"`
	Description    string     `gorm:"size:80" json:"description,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// TableName specifies the table name
func (DocumentReference) TableName() string {
	return "ident_documents"
}
