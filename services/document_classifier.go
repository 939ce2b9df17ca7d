package services

import (
	"ident_index_app_go/models"
	"sort"
	"strings"
)

// documentCategories is the document reference table (legacy IIREFTAB)
var documentCategories = buildDocumentCategories()

// criminalDocumentTypes are the codes counted as arrest events
var criminalDocumentTypes = map[string]struct{}{
	"BIN": {}, "DOC": {}, "DIO": {}, "IUR": {}, "PAA": {}, "PAB": {}, "COF": {}, "PAR": {}, "PAV": {}, "PAL": {},
	"WPR": {}, "WPL": {}, "WAR": {}, "WAA": {}, "DET": {}, "CSO": {}, "SOR": {}, "SVO": {}, "SVP": {}, "OFF": {},
	"CIE": {}, "PAC": {}, "PAD": {}, "PAE": {}, "PAF": {}, "PAG": {}, "PAH": {}, "PAI": {}, "PAJ": {},
	"209": {}, "211": {}, "CAR": {}, "CNS": {}, "DPP": {},
}

var referenceTypeCodes = sortedCodes(documentCategories)

func buildDocumentCategories() map[string]string {
	table := map[string]string{
		"CAR": models.DocumentCategoryArrest,
		"JUV": models.DocumentCategoryArrest,
		"209": models.DocumentCategoryIndex,
		"211": models.DocumentCategoryIndex,
	}

	for _, code := range []string{
		"PRR", "BIN", "DOC", "DET", "COF", "SVO", "SVP", "OFF",
		"CSO", "DPP", "DIO", "PAA", "PAB",
	} {
		table[code] = models.DocumentCategoryIndex
	}

	// District courts DCA..DCZ
	for c := 'A'; c <= 'Z'; c++ {
		table["DC"+string(c)] = models.DocumentCategoryIndex
	}

	for _, code := range []string{
		"GPU", "GPT", "WAR", "PDL", "SPC", "MIS", "APP", "IUR", "MPL", "MPR",
		"PAC", "PAD", "PAE", "PAF", "PAG", "PAH", "PAI", "PAJ",
		"EXP", "PAL", "PAR", "PAV", "SPA", "WAA", "WPL", "WPR", "ROP", "MAF",
		"CIT", "SOR", "FLG", "CNS", "XRF", "ATT", "CCF", "FAD", "EMP", "FFR",
		"GPN", "APS", "APF", "CJS", "APL", "CCD", "MGN", "CJF", "PMD", "SPN",
		"LQF", "REV", "APR", "PDT", "LQM", "VIS", "DJS", "AGE", "ADO", "IDV",
		"RCS", "GPR", "SPR", "GVL", "GVS", "PSC", "HAZ",
	} {
		table[code] = models.DocumentCategoryRefer
	}

	return table
}

func sortedCodes(table map[string]string) []string {
	codes := make([]string, 0, len(table))
	for code := range table {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// normalizeDocumentType upper-cases and trims a document type code
func normalizeDocumentType(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// isCircuitCourtType matches CC plus one alphanumeric character.
// Table entries such as CCF and CCD take precedence.
func isCircuitCourtType(code string) bool {
	if len(code) != 3 || !strings.HasPrefix(code, "CC") {
		return false
	}
	c := code[2]
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// DetermineCategory returns the category for a document type.
// Exact table match wins, then the circuit court rule, then REFER.
func DetermineCategory(code string) string {
	code = normalizeDocumentType(code)
	if category, ok := documentCategories[code]; ok {
		return category
	}
	if isCircuitCourtType(code) {
		return models.DocumentCategoryIndex
	}
	return models.DocumentCategoryRefer
}

// IsValidReferenceType reports whether a document type may be inserted
func IsValidReferenceType(code string) bool {
	code = normalizeDocumentType(code)
	if _, ok := documentCategories[code]; ok {
		return true
	}
	return isCircuitCourtType(code)
}

// IsCriminalType reports whether a document type counts as an arrest event
func IsCriminalType(code string) bool {
	_, ok := criminalDocumentTypes[normalizeDocumentType(code)]
	return ok
}

// ReferenceTypeCodes returns the table codes in sorted order
func ReferenceTypeCodes() []string {
	out := make([]string, len(referenceTypeCodes))
	copy(out, referenceTypeCodes)
	return out
}

// DocumentCounts partitions a subject's documents into criminal and non-criminal
type DocumentCounts struct {
	Criminal    int
	NonCriminal int
}

// CountDocuments classifies each document
func CountDocuments(docs []models.DocumentReference) DocumentCounts {
	var counts DocumentCounts
	for _, d := range docs {
		if IsCriminalType(d.DocumentType) {
			counts.Criminal++
		} else {
			counts.NonCriminal++
		}
	}
	return counts
}

// HasCriminalDocument reports whether any document is an arrest event
func HasCriminalDocument(docs []models.DocumentReference) bool {
	return CountDocuments(docs).Criminal > 0
}
