package models

// Reference code sets
const (
	CodeSetCaution    = "CAUTION"
	CodeSetSMT        = "SMT"
	CodeSetMiscPrefix = "MISC_PREFIX"
	CodeSetRace       = "RACE"
	CodeSetSex        = "SEX"
)

// ReferenceCode is a row of one of the validation code tables
type ReferenceCode struct {
	CodeSet     string `gorm:"primaryKey;size:16" json:"code_set" yaml:"-"`
	Code        string `gorm:"primaryKey;size:10" json:"code" yaml:"code"`
	Description string `gorm:"size:80" json:"description" yaml:"description"`
}

// TableName specifies the table name
func (ReferenceCode) TableName() string {
	return "ref_codes"
}
