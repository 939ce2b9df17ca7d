package services

import (
	"errors"
	"fmt"
	"ident_index_app_go/models"
	"ident_index_app_go/services/mainframe"
	"time"

	"gorm.io/gorm"
)

// FbiOwnedWarning is returned to the caller when the DRS message is suppressed
const FbiOwnedWarning = "REC IS FBI OWNED - DRS MSG NOT SENT"

// IsFbiOwned reports whether the SID is claimed in the FBI ownership index
func IsFbiOwned(tx *gorm.DB, sid string) (bool, error) {
	var count int64
	if err := tx.Model(&models.FbiOwnershipIndex{}).Where("sid = ?", sid).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check fbi ownership: %w", err)
	}
	return count > 0, nil
}

// stagingDetails are the request fields copied onto a confirmed staging entry
type stagingDetails struct {
	UserID     string
	PCN        string
	CourtCase  string
	Charge     string
	ArrestDate *time.Time
	UCN        string // used when the master has no FBI number
}

// confirmFbiStaging promotes the staged N row for the subject and FBI number to Y,
// or inserts a new Y row with a demographic snapshot when none is staged.
func confirmFbiStaging(tx *gorm.DB, master *models.MasterRecord, snap *subjectSnapshot, d stagingDetails) (*models.FbiDowngradeStagingEntry, error) {
	fbiNumber := master.FBINumberValue()
	if fbiNumber == "" {
		fbiNumber = d.UCN
	}

	var entry models.FbiDowngradeStagingEntry
	err := tx.Where("system_id = ? AND sid = ? AND fbi_number = ? AND fbi_record_indicator = ?",
		master.SystemID, master.SID, fbiNumber, models.FbiRecordStaged).
		Order("downgrade_id").
		First(&entry).Error

	switch {
	case err == nil:
		entry.FbiRecordIndicator = models.FbiRecordConfirmed
	case errors.Is(err, gorm.ErrRecordNotFound):
		entry = models.FbiDowngradeStagingEntry{
			SID:                master.SID,
			FBINumber:          fbiNumber,
			SystemID:           master.SystemID,
			FbiRecordIndicator: models.FbiRecordConfirmed,
			SSN:                snap.ssn,
		}
		copyNameSnapshot(&entry, snap.primary)
	default:
		return nil, fmt.Errorf("failed to load staged downgrade: %w", err)
	}

	entry.UserID = d.UserID
	entry.ArrestDate = d.ArrestDate
	entry.PCN = d.PCN
	entry.CourtCase = d.CourtCase
	entry.ChargeDescription = d.Charge

	if err := tx.Save(&entry).Error; err != nil {
		return nil, fmt.Errorf("failed to save fbi downgrade entry: %w", err)
	}
	return &entry, nil
}

// stageFbiDowngrade records a cleared FBI number as a staged N row,
// refreshing the snapshot when one is already staged for the same key.
func stageFbiDowngrade(tx *gorm.DB, master *models.MasterRecord, snap *subjectSnapshot, clearedFbiNumber, userID string) (*models.FbiDowngradeStagingEntry, error) {
	var entry models.FbiDowngradeStagingEntry
	err := tx.Where("system_id = ? AND sid = ? AND fbi_number = ? AND fbi_record_indicator = ?",
		master.SystemID, master.SID, clearedFbiNumber, models.FbiRecordStaged).
		First(&entry).Error

	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load staged downgrade: %w", err)
		}
		entry = models.FbiDowngradeStagingEntry{
			SID:                master.SID,
			FBINumber:          clearedFbiNumber,
			SystemID:           master.SystemID,
			FbiRecordIndicator: models.FbiRecordStaged,
		}
	}

	copyNameSnapshot(&entry, snap.primary)
	if snap.ssn != "" {
		entry.SSN = snap.ssn
	}
	entry.UserID = userID

	if err := tx.Save(&entry).Error; err != nil {
		return nil, fmt.Errorf("failed to save fbi downgrade entry: %w", err)
	}
	return &entry, nil
}

func copyNameSnapshot(entry *models.FbiDowngradeStagingEntry, name *models.NameRecord) {
	if name == nil {
		return
	}
	entry.LastName = name.LastName
	entry.FirstName = name.FirstName
	entry.MiddleName = name.MiddleName
	entry.DOB = mainframe.FormatStorageDate(name.DateOfBirth)
}
