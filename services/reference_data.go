package services

import (
	_ "embed"
	"fmt"
	"ident_index_app_go/models"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed seeddata/reference_codes.yaml
var referenceSeedYAML []byte

// referenceCodeSets are the code sets the seed file may define
var referenceCodeSets = []string{
	models.CodeSetCaution,
	models.CodeSetSMT,
	models.CodeSetMiscPrefix,
	models.CodeSetRace,
	models.CodeSetSex,
}

// ParseReferenceCodes decodes a seed document keyed by code set
func ParseReferenceCodes(data []byte) ([]models.ReferenceCode, error) {
	var doc map[string][]models.ReferenceCode
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse reference codes: %w", err)
	}

	known := make(map[string]bool, len(referenceCodeSets))
	for _, set := range referenceCodeSets {
		known[set] = true
	}

	sets := make([]string, 0, len(doc))
	for set := range doc {
		if !known[set] {
			return nil, fmt.Errorf("unknown code set %q", set)
		}
		sets = append(sets, set)
	}
	sort.Strings(sets)

	var codes []models.ReferenceCode
	for _, set := range sets {
		for _, rc := range doc[set] {
			code := strings.ToUpper(strings.TrimSpace(rc.Code))
			if code == "" {
				return nil, fmt.Errorf("blank code in set %s", set)
			}
			codes = append(codes, models.ReferenceCode{
				CodeSet:     set,
				Code:        code,
				Description: strings.TrimSpace(rc.Description),
			})
		}
	}
	return codes, nil
}

// SeedReferenceData upserts the embedded code tables and returns the row count
func SeedReferenceData(db *gorm.DB) (int, error) {
	codes, err := ParseReferenceCodes(referenceSeedYAML)
	if err != nil {
		return 0, err
	}
	if err := UpsertReferenceCodes(db, codes); err != nil {
		return 0, err
	}
	return len(codes), nil
}

// UpsertReferenceCodes inserts codes, refreshing descriptions that already exist
func UpsertReferenceCodes(db *gorm.DB, codes []models.ReferenceCode) error {
	if len(codes) == 0 {
		return nil
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code_set"}, {Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"description"}),
	}).Create(&codes).Error
	if err != nil {
		return fmt.Errorf("failed to upsert reference codes: %w", err)
	}
	return nil
}

// ListReferenceCodes returns the codes of one set ordered by code
func ListReferenceCodes(db *gorm.DB, codeSet string) ([]models.ReferenceCode, error) {
	var codes []models.ReferenceCode
	err := db.Where("code_set = ?", codeSet).Order("code").Find(&codes).Error
	return codes, err
}

// IsValidCode reports whether code exists in codeSet. Codes compare case-insensitively.
func IsValidCode(tx *gorm.DB, codeSet, code string) (bool, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return false, nil
	}
	var count int64
	err := tx.Model(&models.ReferenceCode{}).
		Where("code_set = ? AND code = ?", codeSet, normalized).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up %s code: %w", strings.ToLower(codeSet), err)
	}
	return count > 0, nil
}

func IsValidCautionCode(tx *gorm.DB, code string) (bool, error) {
	return IsValidCode(tx, models.CodeSetCaution, code)
}

func IsValidSMTCode(tx *gorm.DB, code string) (bool, error) {
	return IsValidCode(tx, models.CodeSetSMT, code)
}

func IsValidMiscPrefix(tx *gorm.DB, prefix string) (bool, error) {
	return IsValidCode(tx, models.CodeSetMiscPrefix, prefix)
}

func IsValidRaceCode(tx *gorm.DB, code string) (bool, error) {
	return IsValidCode(tx, models.CodeSetRace, code)
}

func IsValidSexCode(tx *gorm.DB, code string) (bool, error) {
	return IsValidCode(tx, models.CodeSetSex, code)
}
