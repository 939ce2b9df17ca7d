package models

import (
	"strings"
	"time"
)

// RecordType is the subject's overall classification
type RecordType string

const (
	RecordTypeCriminal    RecordType = "CRIMINAL"
	RecordTypeNonCriminal RecordType = "NON_CRIMINAL"
	RecordTypePending     RecordType = "PENDING"
	RecordTypeJuvenile    RecordType = "JUVENILE" // Assigned at intake only
)

// LegacyCode returns the one-character code used by the mainframe extracts
func (r RecordType) LegacyCode() string {
	switch r {
	case RecordTypeCriminal:
		return " "
	case RecordTypeNonCriminal:
		return "N"
	case RecordTypePending:
		return "T"
	case RecordTypeJuvenile:
		return "J"
	default:
		return ""
	}
}

// MasterRecord is the single identity row per subject
type MasterRecord struct {
	SystemID   int64      `gorm:"primaryKey;autoIncrement" json:"system_id"`
	SID        string     `gorm:"column:sid;size:10;uniqueIndex;not null" json:"sid"`
	FBINumber  *string    `gorm:"size:9;index" json:"fbi_number,omitempty"`
	RecordType RecordType `gorm:"size:12;not null;default:PENDING" json:"record_type"`

	// Subscription / enrollment indicators
	RapbackIndicator string `gorm:"size:1" json:"rapback_indicator,omitempty"` // R or Y = subscribed
	IIIStatus        string `gorm:"size:1" json:"iii_status,omitempty"`        // S or M = enrolled

	// Master demographics
	Race         string `gorm:"size:1" json:"race,omitempty"`
	Sex          string `gorm:"size:1" json:"sex,omitempty"`
	Height       string `gorm:"size:3" json:"height,omitempty"`
	Weight       string `gorm:"size:3" json:"weight,omitempty"`
	EyeColor     string `gorm:"size:3" json:"eye_color,omitempty"`
	HairColor    string `gorm:"size:3" json:"hair_color,omitempty"`
	SkinTone     string `gorm:"size:3" json:"skin_tone,omitempty"`
	PlaceOfBirth string `gorm:"size:2" json:"place_of_birth,omitempty"`
	Citizenship  string `gorm:"size:2" json:"citizenship,omitempty"`

	Comments    string    `gorm:"type:text" json:"comments,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// TableName specifies the table name
func (MasterRecord) TableName() string {
	return "ident_masters"
}

// HasFBINumber reports whether a non-blank FBI number is on file
func (m *MasterRecord) HasFBINumber() bool {
	return m.FBINumber != nil && strings.TrimSpace(*m.FBINumber) != ""
}

// FBINumberValue returns the FBI number or an empty string
func (m *MasterRecord) FBINumberValue() string {
	if m.FBINumber == nil {
		return ""
	}
	return strings.TrimSpace(*m.FBINumber)
}

// RapbackSubscribed reports whether ongoing FBI monitoring protects the FBI number
func (m *MasterRecord) RapbackSubscribed() bool {
	switch strings.ToUpper(strings.TrimSpace(m.RapbackIndicator)) {
	case "R", "Y":
		return true
	}
	return false
}

// IIIEnrolled reports enrollment in the Interstate Identification Index
func (m *MasterRecord) IIIEnrolled() bool {
	switch strings.ToUpper(strings.TrimSpace(m.IIIStatus)) {
	case "S", "M":
		return true
	}
	return false
}
