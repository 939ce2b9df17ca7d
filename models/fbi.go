package models

import "time"

// Staging indicators
const (
	FbiRecordStaged    = "N"
	FbiRecordConfirmed = "Y"
)

// FbiDowngradeStagingEntry records actions on FBI-owned subjects in place of a DRS message.
// An N row is staged when a UCN is cleared from a live record and becomes Y once ownership is confirmed.
type FbiDowngradeStagingEntry struct {
	DowngradeID        int64      `gorm:"primaryKey;autoIncrement" json:"downgrade_id"`
	SID                string     `gorm:"column:sid;size:10;not null;index:idx_fbi_downgrades_key" json:"sid"`
	FBINumber          string     `gorm:"size:9;index:idx_fbi_downgrades_key" json:"fbi_number"`
	SystemID           int64      `gorm:"index:idx_fbi_downgrades_key" json:"system_id"`
	FbiRecordIndicator string     `gorm:"size:1;not null;index:idx_fbi_downgrades_key" json:"fbi_record_indicator"`
	SSN                string     `gorm:"size:9" json:"ssn,omitempty"`
	LastName           string     `gorm:"size:29" json:"last_name,omitempty"`
	FirstName          string     `gorm:"size:27" json:"first_name,omitempty"`
	MiddleName         string     `gorm:"size:27" json:"middle_name,omitempty"`
	DOB                string     `gorm:"size:10" json:"dob,omitempty"`
	ArrestDate         *time.Time `json:"arrest_date,omitempty"`
	PCN                string     `gorm:"size:15" json:"pcn,omitempty"`
	CourtCase          string     `gorm:"size:20" json:"court_case,omitempty"`
	ChargeDescription  string     `gorm:"size:80" json:"charge_description,omitempty"`
	UserID             string     `gorm:"size:30" json:"user_id"`
	ProcessTimestamp   time.Time  `gorm:"autoCreateTime" json:"process_timestamp"`
}

// TableName specifies the table name
func (FbiDowngradeStagingEntry) TableName() string {
	return "ident_fbi_downgrades"
}

// FbiOwnershipIndex lists SIDs whose authoritative record is held by the FBI
type FbiOwnershipIndex struct {
	SID       string    `gorm:"column:sid;primaryKey;size:10" json:"sid"`
	FBINumber string    `gorm:"size:9" json:"fbi_number"`
	DateAdded time.Time `json:"date_added"`
}

// TableName specifies the table name
func (FbiOwnershipIndex) TableName() string {
	return "ident_fbi_masters"
}
