package services

import (
	"fmt"
	"ident_index_app_go/models"
	"time"

	"gorm.io/gorm"
)

// RecordFacts are the inputs that decide a subject's record type
type RecordFacts struct {
	HasCriminalDoc bool
	HasBiometrics  bool // FBI number or primary fingerprint code on file
	Downgraded     bool // set only while a DOWNGRADE is being applied
}

// RecordTypeFor derives the record type from facts
func RecordTypeFor(f RecordFacts) models.RecordType {
	switch {
	case f.Downgraded:
		return models.RecordTypeNonCriminal
	case !f.HasBiometrics:
		return models.RecordTypePending
	case f.HasCriminalDoc:
		return models.RecordTypeCriminal
	default:
		return models.RecordTypeNonCriminal
	}
}

// FactsFor collects record facts from the master, its primary name and documents.
// primary may be nil when no name is on file.
func FactsFor(master *models.MasterRecord, primary *models.NameRecord, docs []models.DocumentReference) RecordFacts {
	return RecordFacts{
		HasCriminalDoc: HasCriminalDocument(docs),
		HasBiometrics:  master.HasFBINumber() || (primary != nil && primary.HasFingerprint()),
	}
}

// RecalculateRecordType reloads the subject's documents, derives the record type
// and persists it on the master. It must run inside the caller's transaction.
func RecalculateRecordType(tx *gorm.DB, master *models.MasterRecord, primary *models.NameRecord) (models.RecordType, error) {
	docs, err := loadDocuments(tx, master.SystemID)
	if err != nil {
		return "", err
	}
	return applyRecordType(tx, master, FactsFor(master, primary, docs))
}

func applyRecordType(tx *gorm.DB, master *models.MasterRecord, facts RecordFacts) (models.RecordType, error) {
	recordType := RecordTypeFor(facts)
	master.RecordType = recordType
	master.LastUpdated = time.Now()

	err := tx.Model(&models.MasterRecord{}).
		Where("system_id = ?", master.SystemID).
		Updates(map[string]interface{}{
			"record_type":  recordType,
			"last_updated": master.LastUpdated,
		}).Error
	if err != nil {
		return "", fmt.Errorf("failed to update record type: %w", err)
	}
	return recordType, nil
}

func loadDocuments(tx *gorm.DB, systemID int64) ([]models.DocumentReference, error) {
	var docs []models.DocumentReference
	if err := tx.Where("system_id = ?", systemID).Order("doc_id").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	return docs, nil
}
