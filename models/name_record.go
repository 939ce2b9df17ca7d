package models

import (
	"strings"
	"time"
)

// Name types
const (
	NameTypePrimary = "P"
	NameTypeAlias   = "A"
)

// NameRecord is a true name or alias under a master, with its demographic snapshot
type NameRecord struct {
	NameID          int64      `gorm:"primaryKey;autoIncrement" json:"name_id"`
	SystemID        int64      `gorm:"not null;index:idx_names_system" json:"system_id"`
	NameType        string     `gorm:"size:1;not null" json:"name_type"`
	LastName        string     `gorm:"size:29" json:"last_name"`
	FirstName       string     `gorm:"size:27" json:"first_name"`
	MiddleName      string     `gorm:"size:27" json:"middle_name,omitempty"`
	MiddleInitial   string     `gorm:"size:1" json:"middle_initial,omitempty"`
	DateOfBirth     *time.Time `json:"date_of_birth,omitempty"`
	Race            string     `gorm:"size:1" json:"race,omitempty"`
	Sex             string     `gorm:"size:1" json:"sex,omitempty"`
	SoundexCode     string     `gorm:"size:4" json:"soundex_code,omitempty"`
	FingerprintCode *string    `gorm:"size:10" json:"fingerprint_code,omitempty"` // MAFIS hand code, right then left
	SequenceNumber  int        `json:"sequence_number"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName specifies the table name
func (NameRecord) TableName() string {
	return "ident_names"
}

// IsPrimary reports whether this is the subject's true name
func (n *NameRecord) IsPrimary() bool {
	return n.NameType == NameTypePrimary
}

// HasFingerprint reports whether a non-blank hand code is on file
func (n *NameRecord) HasFingerprint() bool {
	return n.FingerprintCode != nil && strings.TrimSpace(*n.FingerprintCode) != ""
}
