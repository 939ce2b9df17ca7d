package models

import "time"

// Address is a residence on file for a subject
type Address struct {
	AddressID       int64     `gorm:"primaryKey;autoIncrement" json:"address_id"`
	SystemID        int64     `gorm:"not null;index:idx_addresses_system" json:"system_id"`
	StreetNumber    string    `gorm:"size:10" json:"street_number,omitempty"`
	StreetDirection string    `gorm:"size:2" json:"street_direction,omitempty"`
	StreetName      string    `gorm:"size:40" json:"street_name,omitempty"`
	StreetSuffix    string    `gorm:"size:4" json:"street_suffix,omitempty"`
	City            string    `gorm:"size:30" json:"city,omitempty"`
	State           string    `gorm:"size:2" json:"state,omitempty"`
	ZipCode         string    `gorm:"size:10" json:"zip_code,omitempty"`
	IsCurrent       bool      `gorm:"not null;default:false" json:"is_current"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (Address) TableName() string {
	return "ident_addresses"
}
