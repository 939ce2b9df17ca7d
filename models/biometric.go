package models

// DriverLicense is a license number on file for a subject
type DriverLicense struct {
	LicenseID     int64  `gorm:"primaryKey;autoIncrement" json:"license_id"`
	SystemID      int64  `gorm:"not null;index:idx_dl_system" json:"system_id"`
	StateSource   string `gorm:"size:2" json:"state_source"`
	LicenseNumber string `gorm:"size:25" json:"license_number"`
}

// TableName specifies the table name
func (DriverLicense) TableName() string {
	return "ident_driver_licenses"
}

// HenryFingerprint holds the Henry classification formula
type HenryFingerprint struct {
	HenryID  int64  `gorm:"primaryKey;autoIncrement" json:"henry_id"`
	SystemID int64  `gorm:"not null;index:idx_henry_system" json:"system_id"`
	Formula  string `gorm:"size:40" json:"formula"`
}

// TableName specifies the table name
func (HenryFingerprint) TableName() string {
	return "ident_henry_fingerprints"
}

// NCICFingerprint holds the NCIC fingerprint classification
type NCICFingerprint struct {
	NcicID         int64  `gorm:"primaryKey;autoIncrement" json:"ncic_id"`
	SystemID       int64  `gorm:"not null;index:idx_ncic_system" json:"system_id"`
	Classification string `gorm:"size:20" json:"classification"`
}

// TableName specifies the table name
func (NCICFingerprint) TableName() string {
	return "ident_ncic_fingerprints"
}
