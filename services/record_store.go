package services

import (
	"errors"
	"fmt"
	"ident_index_app_go/models"

	"gorm.io/gorm"
)

// subjectSnapshot holds the child rows copied into log and staging entries
type subjectSnapshot struct {
	primary *models.NameRecord
	address *models.Address
	ssn     string
}

// findPrimaryName returns the primary name, falling back to the first name on file.
// It returns nil without error when the subject has no names.
func findPrimaryName(tx *gorm.DB, systemID int64) (*models.NameRecord, error) {
	var names []models.NameRecord
	if err := tx.Where("system_id = ?", systemID).Order("name_id").Find(&names).Error; err != nil {
		return nil, fmt.Errorf("failed to load names: %w", err)
	}
	for i := range names {
		if names[i].IsPrimary() {
			return &names[i], nil
		}
	}
	if len(names) > 0 {
		return &names[0], nil
	}
	return nil, nil
}

// requirePrimaryName returns the PRIMARY name or ErrPrimaryNameNotFound
func requirePrimaryName(tx *gorm.DB, systemID int64) (*models.NameRecord, error) {
	var name models.NameRecord
	err := tx.Where("system_id = ? AND name_type = ?", systemID, models.NameTypePrimary).First(&name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPrimaryNameNotFound
		}
		return nil, fmt.Errorf("failed to load primary name: %w", err)
	}
	return &name, nil
}

func findCurrentAddress(tx *gorm.DB, systemID int64) (*models.Address, error) {
	var addresses []models.Address
	err := tx.Where("system_id = ? AND is_current = ?", systemID, true).
		Order("address_id").
		Limit(1).
		Find(&addresses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load address: %w", err)
	}
	if len(addresses) == 0 {
		return nil, nil
	}
	return &addresses[0], nil
}

func findFirstSSN(tx *gorm.DB, systemID int64) (string, error) {
	var ssns []models.SSNRecord
	if err := tx.Where("system_id = ?", systemID).Order("ssn_id").Limit(1).Find(&ssns).Error; err != nil {
		return "", fmt.Errorf("failed to load ssn: %w", err)
	}
	if len(ssns) == 0 {
		return "", nil
	}
	return normalizeSSN(ssns[0].SSN), nil
}

func loadSnapshot(tx *gorm.DB, systemID int64) (*subjectSnapshot, error) {
	primary, err := findPrimaryName(tx, systemID)
	if err != nil {
		return nil, err
	}
	address, err := findCurrentAddress(tx, systemID)
	if err != nil {
		return nil, err
	}
	ssn, err := findFirstSSN(tx, systemID)
	if err != nil {
		return nil, err
	}
	return &subjectSnapshot{primary: primary, address: address, ssn: ssn}, nil
}

// subjectChildren lists every table keyed by system_id, deleted before the master
var subjectChildren = []interface{}{
	&models.DocumentReference{},
	&models.NameRecord{},
	&models.SSNRecord{},
	&models.Address{},
	&models.ScarMark{},
	&models.DriverLicense{},
	&models.MiscNumber{},
	&models.HenryFingerprint{},
	&models.NCICFingerprint{},
	&models.AltDOB{},
	&models.IdentFlag{},
}

// deleteSubject removes every child row and then the master
func deleteSubject(tx *gorm.DB, systemID int64) error {
	for _, child := range subjectChildren {
		if err := tx.Where("system_id = ?", systemID).Delete(child).Error; err != nil {
			return fmt.Errorf("failed to delete %T rows: %w", child, err)
		}
	}
	if err := tx.Where("system_id = ?", systemID).Delete(&models.MasterRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete master: %w", err)
	}
	return nil
}
