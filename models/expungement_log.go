package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Process types written to the expungement log
const (
	ProcessTypeExpungement = "EXP"
	ProcessTypeDowngrade   = "DWN" // Data Integrity downgrade
)

// FBI expungement indicators
const (
	FbiIndicatorEntire        = "E"
	FbiIndicatorFbiOwned      = "X"
	FbiIndicatorDataIntegrity = "D"
	FbiIndicatorPartCancel    = "C"
	FbiIndicatorPartial       = "P"
	FbiIndicatorCancel        = ""
)

// ErrImmutableRecord is returned by hooks guarding append-only tables
var ErrImmutableRecord = errors.New("record is append-only")

// ExpungementLogEntry is an append-only snapshot of a subject at the time of an expungement action
type ExpungementLogEntry struct {
	ExpungementID   int64     `gorm:"primaryKey;autoIncrement" json:"expungement_id"`
	SID             string    `gorm:"column:sid;size:10;not null;index:idx_expungements_sid" json:"sid"`
	SystemID        int64     `gorm:"not null" json:"system_id"`
	ProcessType     string    `gorm:"size:3;not null" json:"process_type"`
	FbiExpIndicator string    `gorm:"size:1" json:"fbi_exp_indicator"`
	UserID          string    `gorm:"size:30" json:"user_id"`
	ProcessDate     time.Time `gorm:"not null;index:idx_expungements_date" json:"process_date"`
	FBINumber       string    `gorm:"size:9" json:"fbi_number,omitempty"`

	// Primary name snapshot
	LastName   string `gorm:"size:29" json:"last_name,omitempty"`
	FirstName  string `gorm:"size:27" json:"first_name,omitempty"`
	MiddleName string `gorm:"size:27" json:"middle_name,omitempty"`
	DOB        string `gorm:"size:10" json:"dob,omitempty"` // YYYY-MM-DD

	// Master demographic snapshot
	Race         string `gorm:"size:1" json:"race,omitempty"`
	Sex          string `gorm:"size:1" json:"sex,omitempty"`
	Height       string `gorm:"size:3" json:"height,omitempty"`
	Weight       string `gorm:"size:3" json:"weight,omitempty"`
	HairColor    string `gorm:"size:3" json:"hair_color,omitempty"`
	EyeColor     string `gorm:"size:3" json:"eye_color,omitempty"`
	SkinTone     string `gorm:"size:3" json:"skin_tone,omitempty"`
	PlaceOfBirth string `gorm:"size:2" json:"place_of_birth,omitempty"`

	// Current address snapshot
	StreetNumber string `gorm:"size:10" json:"street_number,omitempty"`
	StreetName   string `gorm:"size:40" json:"street_name,omitempty"`
	City         string `gorm:"size:30" json:"city,omitempty"`
	State        string `gorm:"size:2" json:"state,omitempty"`
	ZipCode      string `gorm:"size:10" json:"zip_code,omitempty"`

	SSN string `gorm:"size:9" json:"ssn,omitempty"`

	// Case references supplied with the request
	PCN               string     `gorm:"size:15" json:"pcn,omitempty"`
	CogentPCN         string     `gorm:"size:15" json:"cogent_pcn,omitempty"`
	CogentPCN2        string     `gorm:"size:15" json:"cogent_pcn2,omitempty"`
	CourtCaseNumber   string     `gorm:"size:20" json:"court_case_number,omitempty"`
	ChargeDescription string     `gorm:"size:80" json:"charge_description,omitempty"`
	Reason            string     `gorm:"size:80" json:"reason,omitempty"`
	EventDate         *time.Time `json:"event_date,omitempty"`
}

// TableName specifies the table name
func (ExpungementLogEntry) TableName() string {
	return "ident_expungements"
}

// BeforeUpdate prevents modification of expungement log entries
func (e *ExpungementLogEntry) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableRecord
}

// BeforeDelete prevents deletion of expungement log entries
func (e *ExpungementLogEntry) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableRecord
}
