package models

import "time"

// Flag types
const (
	FlagTypeCaution = "CAUTION"
)

// IdentFlag is a caution (or other) flag attached to a subject
type IdentFlag struct {
	FlagID   int64  `gorm:"primaryKey;autoIncrement" json:"flag_id"`
	SystemID int64  `gorm:"not null;index:idx_flags_system" json:"system_id"`
	FlagType string `gorm:"size:10;not null" json:"flag_type"`
	FlagCode string `gorm:"size:3;not null" json:"flag_code"`
}

// TableName specifies the table name
func (IdentFlag) TableName() string {
	return "ident_flags"
}

// AltDOB is an alternate date of birth used by the subject
type AltDOB struct {
	DobID       int64     `gorm:"primaryKey;autoIncrement" json:"dob_id"`
	SystemID    int64     `gorm:"not null;index:idx_dob_aliases_system" json:"system_id"`
	DateOfBirth time.Time `gorm:"not null" json:"date_of_birth"`
}

// TableName specifies the table name
func (AltDOB) TableName() string {
	return "ident_dob_aliases"
}

// ScarMark is a scar, mark or tattoo
type ScarMark struct {
	SmtID       int64  `gorm:"primaryKey;autoIncrement" json:"smt_id"`
	SystemID    int64  `gorm:"not null;index:idx_scars_system" json:"system_id"`
	Code        string `gorm:"size:10;not null" json:"code"`
	Description string `gorm:"size:60" json:"description,omitempty"`
}

// TableName specifies the table name
func (ScarMark) TableName() string {
	return "ident_scars_marks"
}

// SSNRecord is a social security number used by the subject
type SSNRecord struct {
	SsnID    int64  `gorm:"primaryKey;autoIncrement" json:"ssn_id"`
	SystemID int64  `gorm:"not null;index:idx_ssns_system" json:"system_id"`
	SSN      string `gorm:"size:9;not null" json:"ssn"`
}

// TableName specifies the table name
func (SSNRecord) TableName() string {
	return "ident_ssns"
}

// MiscNumber is a miscellaneous identifying number (passport, military, ...)
type MiscNumber struct {
	MiscID     int64  `gorm:"primaryKey;autoIncrement" json:"misc_id"`
	SystemID   int64  `gorm:"not null;index:idx_misc_system" json:"system_id"`
	PrefixType string `gorm:"size:3;not null" json:"prefix_type"`
	Number     string `gorm:"size:12;not null" json:"number"`
}

// TableName specifies the table name
func (MiscNumber) TableName() string {
	return "ident_misc_numbers"
}
