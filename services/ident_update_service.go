package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"ident_index_app_go/logger"
	"ident_index_app_go/models"
	"ident_index_app_go/services/mainframe"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NameInput is a submitted true name or alias
type NameInput struct {
	ID                *int64 `json:"id,omitempty" yaml:"id"`
	LastName          string `json:"last_name" yaml:"last_name"`
	FirstName         string `json:"first_name" yaml:"first_name"`
	MiddleName        string `json:"middle_name" yaml:"middle_name"`
	MarkedForDeletion bool   `json:"marked_for_deletion" yaml:"marked_for_deletion"`
}

func (n NameInput) matches(name *models.NameRecord) bool {
	return upper(name.LastName) == upper(n.LastName) &&
		upper(name.FirstName) == upper(n.FirstName) &&
		upper(name.MiddleName) == upper(n.MiddleName)
}

// TrueNameRequest changes the primary name and optionally the UCN (FBI number)
type TrueNameRequest struct {
	SystemID int64
	Name     NameInput
	UCN      *string // nil leaves the FBI number alone; "" clears it
	UserName string
	ClientIP string
}

// AliasesRequest adds, edits and removes aliases
type AliasesRequest struct {
	SystemID int64
	Aliases  []NameInput
	UserName string
	ClientIP string
}

// DemographicsRequest replaces the physical descriptors, address and caution flag
type DemographicsRequest struct {
	SystemID     int64
	Race         string
	Sex          string
	Height       string
	Weight       string
	EyeColor     string
	HairColor    string
	SkinTone     string
	PlaceOfBirth string
	Citizenship  string
	Comments     string
	DOB          string  // MM/DD/YYYY, blank leaves names unchanged
	PatternRight *string // display form; both nil leaves fingerprints unchanged
	PatternLeft  *string
	CautionFlag  *string // nil untouched, "" clears

	StreetNumber    string
	StreetDirection string
	StreetName      string
	StreetSuffix    string
	City            string
	State           string
	ZipCode         string

	UserName string
	ClientIP string
}

// ReferenceDocumentInput is a submitted document reference. Rows with an ID
// only have their description updated.
type ReferenceDocumentInput struct {
	ID             *int64     `json:"id,omitempty" yaml:"id"`
	DocumentType   string     `json:"document_type" yaml:"document_type"`
	DocumentNumber string     `json:"document_number" yaml:"document_number"`
	DocumentDate   *time.Time `json:"document_date,omitempty" yaml:"document_date"`
	Description    string     `json:"description" yaml:"description"`
}

// ReferenceDocumentsRequest inserts new references and edits descriptions.
// References are never deleted here.
type ReferenceDocumentsRequest struct {
	SystemID  int64
	Documents []ReferenceDocumentInput
	UserName  string
	ClientIP  string
}

// IdentUpdateService maintains names, demographics and document references
type IdentUpdateService struct {
	DB     *gorm.DB
	Audit  *AuditService
	Locks  *MasterLocks
	Logger *zap.Logger
}

// NewIdentUpdateService creates an IdentUpdateService
func NewIdentUpdateService(db *gorm.DB, audit *AuditService, locks *MasterLocks, l *zap.Logger) *IdentUpdateService {
	if locks == nil {
		locks = NewMasterLocks()
	}
	l = logger.OrNop(l)
	if audit == nil {
		audit = NewAuditService(l)
	}
	return &IdentUpdateService{DB: db, Audit: audit, Locks: locks, Logger: l}
}

// withMaster runs fn in a transaction holding the subject's lock
func (s *IdentUpdateService) withMaster(ctx context.Context, span string, systemID int64, user string, fn func(tx *gorm.DB, master *models.MasterRecord) error) error {
	if systemID <= 0 {
		return ErrSystemIDRequired
	}
	if strings.TrimSpace(user) == "" {
		return ErrActorRequired
	}

	ctx, sp := tracer.Start(ctx, span, trace.WithAttributes(attribute.Int64("system_id", systemID)))
	defer sp.End()

	unlock := s.Locks.Lock(systemID)
	defer unlock()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		master, err := lockMaster(tx, systemID)
		if err != nil {
			return err
		}
		return fn(tx, master)
	})
	if err != nil {
		sp.RecordError(err)
		s.Logger.Warn("record update rejected",
			zap.String("operation", span),
			zap.Int64("system_id", systemID),
			zap.String("user", user),
			zap.Error(err),
		)
	}
	return err
}

// UpdateTrueName renames the primary name and applies a UCN change
func (s *IdentUpdateService) UpdateTrueName(ctx context.Context, req TrueNameRequest) error {
	if strings.TrimSpace(req.Name.LastName) == "" || strings.TrimSpace(req.Name.FirstName) == "" {
		return validationError("Last Name and First Name are required.")
	}

	return s.withMaster(ctx, "ident.update_true_name", req.SystemID, req.UserName, func(tx *gorm.DB, master *models.MasterRecord) error {
		primary, err := requirePrimaryName(tx, master.SystemID)
		if err != nil {
			return err
		}
		before := *primary
		oldFbi := master.FBINumberValue()

		if req.UCN != nil {
			newFbi := strings.TrimSpace(*req.UCN)
			if newFbi != oldFbi {
				if newFbi == "" {
					if oldFbi != "" {
						snap, err := loadSnapshot(tx, master.SystemID)
						if err != nil {
							return err
						}
						snap.primary = primary
						if _, err := stageFbiDowngrade(tx, master, snap, oldFbi, req.UserName); err != nil {
							return err
						}
					}
					master.FBINumber = nil
				} else {
					master.FBINumber = &newFbi
				}
				if err := tx.Model(&models.MasterRecord{}).Where("system_id = ?", master.SystemID).
					Update("fbi_number", master.FBINumber).Error; err != nil {
					return fmt.Errorf("failed to update fbi number: %w", err)
				}
				if _, err := RecalculateRecordType(tx, master, primary); err != nil {
					return err
				}
			}
		}

		var aliases []models.NameRecord
		if err := tx.Where("system_id = ? AND name_type = ?", master.SystemID, models.NameTypeAlias).Find(&aliases).Error; err != nil {
			return fmt.Errorf("failed to load aliases: %w", err)
		}
		for i := range aliases {
			if req.Name.matches(&aliases[i]) {
				return ErrNameIsAlias
			}
		}

		applyNameFields(primary, req.Name)
		if err := tx.Save(primary).Error; err != nil {
			return fmt.Errorf("failed to save primary name: %w", err)
		}
		if err := touchMaster(tx, master); err != nil {
			return err
		}

		details := fmt.Sprintf("Updated Name/UCN for SID: %s", master.SID)
		oldValues := map[string]interface{}{"name": formatName(&before), "fbi_number": oldFbi}
		newValues := map[string]interface{}{"name": formatName(primary), "fbi_number": master.FBINumberValue()}
		actor := AuditContext{UserName: req.UserName, IPAddress: req.ClientIP}
		return s.Audit.LogChange(tx, actor, models.AuditActionUpdateTrueName, master, details, oldValues, newValues)
	})
}

// UpdateAliases applies each alias entry in order
func (s *IdentUpdateService) UpdateAliases(ctx context.Context, req AliasesRequest) error {
	return s.withMaster(ctx, "ident.update_aliases", req.SystemID, req.UserName, func(tx *gorm.DB, master *models.MasterRecord) error {
		primary, err := requirePrimaryName(tx, master.SystemID)
		if err != nil {
			return err
		}
		actor := AuditContext{UserName: req.UserName, IPAddress: req.ClientIP}

		for _, in := range req.Aliases {
			if in.MarkedForDeletion {
				if in.ID == nil {
					continue
				}
				alias, err := loadOwnedAlias(tx, master.SystemID, *in.ID)
				if err != nil {
					return err
				}
				if err := tx.Delete(&models.NameRecord{}, alias.NameID).Error; err != nil {
					return fmt.Errorf("failed to delete alias: %w", err)
				}
				details := fmt.Sprintf("Deleted Alias ID: %d", alias.NameID)
				if err := s.Audit.LogChange(tx, actor, models.AuditActionDeleteAlias, master, details, formatName(alias), nil); err != nil {
					return err
				}
				continue
			}

			if strings.TrimSpace(in.LastName) == "" || strings.TrimSpace(in.FirstName) == "" {
				return validationError("Last Name and First Name are required.")
			}
			if in.matches(primary) {
				return validationError("Alias cannot be the same as the primary name: %s", in.LastName)
			}

			var dupes int64
			err := tx.Model(&models.NameRecord{}).
				Where("system_id = ? AND name_type = ? AND last_name = ? AND first_name = ? AND middle_name = ?",
					master.SystemID, models.NameTypeAlias, upper(in.LastName), upper(in.FirstName), upper(in.MiddleName)).
				Count(&dupes).Error
			if err != nil {
				return fmt.Errorf("failed to check duplicate alias: %w", err)
			}
			if dupes > 0 && in.ID == nil {
				return validationError("Duplicate Alias Name: %s, %s", in.LastName, in.FirstName)
			}

			var alias *models.NameRecord
			if in.ID != nil {
				alias, err = loadOwnedAlias(tx, master.SystemID, *in.ID)
				if err != nil {
					return err
				}
			} else {
				seq, err := nextNameSequence(tx, master.SystemID)
				if err != nil {
					return err
				}
				alias = &models.NameRecord{SystemID: master.SystemID, NameType: models.NameTypeAlias, SequenceNumber: seq}
			}

			applyNameFields(alias, in)
			alias.Race = primary.Race
			alias.Sex = primary.Sex
			alias.DateOfBirth = primary.DateOfBirth
			if err := tx.Save(alias).Error; err != nil {
				return fmt.Errorf("failed to save alias: %w", err)
			}
		}

		details := fmt.Sprintf("Updated aliases for SID: %s", master.SID)
		return s.Audit.LogAction(tx, actor, models.AuditActionUpdateAliases, master, details)
	})
}

// UpdateDemographics replaces master descriptors and syncs race, sex, DOB and
// fingerprint pattern onto every name
func (s *IdentUpdateService) UpdateDemographics(ctx context.Context, req DemographicsRequest) error {
	return s.withMaster(ctx, "ident.update_demographics", req.SystemID, req.UserName, func(tx *gorm.DB, master *models.MasterRecord) error {
		race, sex := upper(req.Race), upper(req.Sex)
		if race != "" {
			ok, err := IsValidRaceCode(tx, race)
			if err != nil {
				return err
			}
			if !ok {
				return validationError("Invalid Race Code: %s", req.Race)
			}
		}
		if sex != "" {
			ok, err := IsValidSexCode(tx, sex)
			if err != nil {
				return err
			}
			if !ok {
				return validationError("Invalid Sex Code: %s", req.Sex)
			}
		}

		var dob *time.Time
		if strings.TrimSpace(req.DOB) != "" {
			t, err := mainframe.ParseDisplayDate(strings.TrimSpace(req.DOB))
			if err != nil {
				return validationError("Date must be in MM/dd/yyyy format: %s", req.DOB)
			}
			dob = &t
		}

		patternsSupplied := req.PatternRight != nil || req.PatternLeft != nil
		var fingerprint *string
		if patternsSupplied {
			var right, left string
			if req.PatternRight != nil {
				right = *req.PatternRight
			}
			if req.PatternLeft != nil {
				left = *req.PatternLeft
			}
			code, err := mainframe.EncodeHands(right, left)
			if err != nil {
				return validationError("%s", err.Error())
			}
			fingerprint = code
		}

		before := *master
		master.Race = race
		master.Sex = sex
		master.Height = strings.TrimSpace(req.Height)
		master.Weight = strings.TrimSpace(req.Weight)
		master.EyeColor = upper(req.EyeColor)
		master.HairColor = upper(req.HairColor)
		master.SkinTone = upper(req.SkinTone)
		master.PlaceOfBirth = upper(req.PlaceOfBirth)
		master.Citizenship = upper(req.Citizenship)
		master.Comments = req.Comments
		master.LastUpdated = time.Now()
		if err := tx.Save(master).Error; err != nil {
			return fmt.Errorf("failed to save master: %w", err)
		}

		var names []models.NameRecord
		if err := tx.Where("system_id = ?", master.SystemID).Order("name_id").Find(&names).Error; err != nil {
			return fmt.Errorf("failed to load names: %w", err)
		}
		var primary *models.NameRecord
		for i := range names {
			n := &names[i]
			n.Race = race
			n.Sex = sex
			if dob != nil {
				n.DateOfBirth = dob
			}
			if patternsSupplied {
				n.FingerprintCode = fingerprint
			}
			if err := tx.Save(n).Error; err != nil {
				return fmt.Errorf("failed to save name: %w", err)
			}
			if primary == nil || (n.IsPrimary() && !primary.IsPrimary()) {
				primary = n
			}
		}

		if _, err := RecalculateRecordType(tx, master, primary); err != nil {
			return err
		}

		if req.CautionFlag != nil {
			var cautions []string
			if code := strings.TrimSpace(*req.CautionFlag); code != "" {
				cautions = []string{code}
			} else {
				cautions = []string{}
			}
			sync := &appendedIDSync{tx: tx, master: master, changes: make(map[string]StreamChanges)}
			if err := sync.syncCautions(cautions); err != nil {
				return err
			}
		}

		if err := upsertCurrentAddress(tx, master.SystemID, req); err != nil {
			return err
		}

		details := fmt.Sprintf("Updated SID: %s", master.SID)
		actor := AuditContext{UserName: req.UserName, IPAddress: req.ClientIP}
		return s.Audit.LogChange(tx, actor, models.AuditActionUpdateDemographics, master, details,
			demographicValues(&before), demographicValues(master))
	})
}

// AddReferenceDocuments inserts new document references and updates descriptions
// of existing ones, recalculating the record type after each insert
func (s *IdentUpdateService) AddReferenceDocuments(ctx context.Context, req ReferenceDocumentsRequest) error {
	return s.withMaster(ctx, "ident.update_references", req.SystemID, req.UserName, func(tx *gorm.DB, master *models.MasterRecord) error {
		primary, err := requirePrimaryName(tx, master.SystemID)
		if err != nil {
			return err
		}

		inserted := 0
		for _, in := range req.Documents {
			description := upper(in.Description)

			if in.ID != nil {
				var doc models.DocumentReference
				if err := tx.First(&doc, *in.ID).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return newRecordError(KindNotFound, "Reference Doc ID not found: %d", *in.ID)
					}
					return fmt.Errorf("failed to load document: %w", err)
				}
				if doc.SystemID != master.SystemID {
					return ErrDocumentSecurityMismatch
				}
				if doc.Description != description {
					if err := tx.Model(&doc).Update("description", description).Error; err != nil {
						return fmt.Errorf("failed to update description: %w", err)
					}
				}
				continue
			}

			docType, number := upper(in.DocumentType), upper(in.DocumentNumber)
			if in.DocumentDate == nil || docType == "" || number == "" {
				return ErrReferenceFieldsReq
			}
			if !IsValidReferenceType(docType) {
				return validationError("Invalid Reference Document Type: %s", docType)
			}

			dup, err := hasDuplicateReference(tx, master.SystemID, docType, number, *in.DocumentDate)
			if err != nil {
				return err
			}
			if dup {
				return validationError("Duplicate Reference found: Type '%s', Number '%s', Date '%s' already exists.",
					docType, number, in.DocumentDate.Format(mainframe.StorageDateLayout))
			}

			doc := models.DocumentReference{
				SystemID:       master.SystemID,
				DocumentType:   docType,
				Category:       DetermineCategory(docType),
				DocumentNumber: number,
				DocumentDate:   in.DocumentDate,
				Description:    description,
			}
			if err := tx.Create(&doc).Error; err != nil {
				return fmt.Errorf("failed to insert document: %w", err)
			}
			inserted++

			if _, err := RecalculateRecordType(tx, master, primary); err != nil {
				return err
			}
		}

		details := fmt.Sprintf("Updated references for SID: %s", master.SID)
		actor := AuditContext{UserName: req.UserName, IPAddress: req.ClientIP}
		return s.Audit.LogChange(tx, actor, models.AuditActionUpdateReferences, master, details, nil,
			map[string]interface{}{"inserted": inserted, "record_type": master.RecordType})
	})
}

func applyNameFields(name *models.NameRecord, in NameInput) {
	name.LastName = upper(in.LastName)
	name.FirstName = upper(in.FirstName)
	name.MiddleName = upper(in.MiddleName)
	name.MiddleInitial = middleInitial(in.MiddleName)
	name.SoundexCode = mainframe.Soundex(name.LastName)
}

func formatName(n *models.NameRecord) string {
	s := n.LastName + ", " + n.FirstName
	if n.MiddleName != "" {
		s += " " + n.MiddleName
	}
	return s
}

func loadOwnedAlias(tx *gorm.DB, systemID, nameID int64) (*models.NameRecord, error) {
	var alias models.NameRecord
	if err := tx.First(&alias, nameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newRecordError(KindNotFound, "Alias ID not found: %d", nameID)
		}
		return nil, fmt.Errorf("failed to load alias: %w", err)
	}
	if alias.SystemID != systemID || alias.IsPrimary() {
		return nil, ErrAliasNotOwned
	}
	return &alias, nil
}

func nextNameSequence(tx *gorm.DB, systemID int64) (int, error) {
	var maxSeq sql.NullInt64
	err := tx.Model(&models.NameRecord{}).
		Where("system_id = ?", systemID).
		Select("MAX(sequence_number)").
		Row().
		Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("failed to read name sequence: %w", err)
	}
	if !maxSeq.Valid {
		return 1, nil
	}
	return int(maxSeq.Int64) + 1, nil
}

func hasDuplicateReference(tx *gorm.DB, systemID int64, docType, number string, date time.Time) (bool, error) {
	var docs []models.DocumentReference
	err := tx.Where("system_id = ? AND document_type = ? AND document_number = ?", systemID, docType, number).
		Find(&docs).Error
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate reference: %w", err)
	}
	want := date.Format(mainframe.StorageDateLayout)
	for i := range docs {
		if mainframe.FormatStorageDate(docs[i].DocumentDate) == want {
			return true, nil
		}
	}
	return false, nil
}

func touchMaster(tx *gorm.DB, master *models.MasterRecord) error {
	master.LastUpdated = time.Now()
	err := tx.Model(&models.MasterRecord{}).
		Where("system_id = ?", master.SystemID).
		Update("last_updated", master.LastUpdated).Error
	if err != nil {
		return fmt.Errorf("failed to update master: %w", err)
	}
	return nil
}

func upsertCurrentAddress(tx *gorm.DB, systemID int64, req DemographicsRequest) error {
	address, err := findCurrentAddress(tx, systemID)
	if err != nil {
		return err
	}
	if address == nil {
		address = &models.Address{SystemID: systemID, IsCurrent: true}
	}
	address.StreetNumber = strings.TrimSpace(req.StreetNumber)
	address.StreetDirection = upper(req.StreetDirection)
	address.StreetName = upper(req.StreetName)
	address.StreetSuffix = upper(req.StreetSuffix)
	address.City = upper(req.City)
	address.State = upper(req.State)
	address.ZipCode = strings.TrimSpace(req.ZipCode)
	if err := tx.Save(address).Error; err != nil {
		return fmt.Errorf("failed to save address: %w", err)
	}
	return nil
}

func demographicValues(m *models.MasterRecord) map[string]string {
	return map[string]string{
		"race":           m.Race,
		"sex":            m.Sex,
		"height":         m.Height,
		"weight":         m.Weight,
		"eye_color":      m.EyeColor,
		"hair_color":     m.HairColor,
		"skin_tone":      m.SkinTone,
		"place_of_birth": m.PlaceOfBirth,
		"citizenship":    m.Citizenship,
	}
}
