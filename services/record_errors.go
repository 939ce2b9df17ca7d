package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a rejected request
type ErrorKind int

const (
	KindInput        ErrorKind = iota + 1 // malformed request, rejected before any read
	KindPrecondition                      // business rule violated
	KindIntegrity                         // referenced row belongs to another subject
	KindNotFound
	KindValidation // appended identifier or reference data failed validation
)

func (k ErrorKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindPrecondition:
		return "precondition"
	case KindIntegrity:
		return "integrity"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// RecordError carries the fixed message shown to case workers
type RecordError struct {
	Kind    ErrorKind
	Message string
}

func (e *RecordError) Error() string {
	return e.Message
}

// Is matches another RecordError with the same kind and message
func (e *RecordError) Is(target error) bool {
	t, ok := target.(*RecordError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

func newRecordError(kind ErrorKind, format string, args ...interface{}) *RecordError {
	return &RecordError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a RecordError in err's chain, or 0
func KindOf(err error) ErrorKind {
	var re *RecordError
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}

// Input errors
var (
	ErrSystemIDRequired   = &RecordError{Kind: KindInput, Message: "System ID required."}
	ErrDocumentIDRequired = &RecordError{Kind: KindInput, Message: "Document ID required."}
	ErrReasonRequired     = &RecordError{Kind: KindInput, Message: "Reason for deletion required."}
	ErrActorRequired      = &RecordError{Kind: KindInput, Message: "Acting user required."}
)

// Expungement precondition errors
var (
	ErrEntireMultipleArrests = &RecordError{Kind: KindPrecondition,
		Message: "MULTIPLE ARREST EVENTS EXIST – CAN NOT PERFORM AN EXPUNGE ENTIRE."}
	ErrEntireNonCriminalEvents = &RecordError{Kind: KindPrecondition,
		Message: "NON-CRIMINAL EVENTS EXIST - CAN NOT PERFORM AN EXPUNGE ENTIRE ON THIS RECORD!"}
	ErrFbiNumberMissing = &RecordError{Kind: KindPrecondition,
		Message: "GIVE THIS CASE TO YOUR SUPERVISOR. NO DRS MSG WAS SENT – THE FBI # IS MISSING."}
	ErrUcnNumberMissing = &RecordError{Kind: KindPrecondition,
		Message: "GIVE THIS CASE TO YOUR SUPERVISOR. NO DRS MSG WAS SENT – THE UCN # IS MISSING."}

	ErrDowngradeNoCriminal = &RecordError{Kind: KindPrecondition,
		Message: "MUST HAVE AN EXISTING CRIMINAL EVENT TO PERFORM THIS DOWNGRADE FUNCTION."}
	ErrDowngradeMultipleArrests = &RecordError{Kind: KindPrecondition,
		Message: "MULTIPLE ARREST EVENTS EXIST – CAN NOT PERFORM A DOWNGRADE. USE PART CANCEL."}
	ErrDowngradeNoNonCriminal = &RecordError{Kind: KindPrecondition,
		Message: "MUST HAVE AN EXISTING NON-CRIMINAL EVENT TO PERFORM THIS DOWNGRADE FUNCTION."}

	ErrPartCancelLastCriminal = &RecordError{Kind: KindPrecondition,
		Message: "Cannot delete the last criminal event via Part Cancel. Use 'Downgrade'."}
	ErrPartCancelNonCriminalWithCriminal = &RecordError{Kind: KindPrecondition,
		Message: "Cannot perform PART CANCEL on this non-criminal event when a criminal event exists. Use 'Cancel'."}
	ErrPartCancelOnlyNonCriminal = &RecordError{Kind: KindPrecondition,
		Message: "Cannot perform PART CANCEL when only non-criminal events exist. Use 'Cancel'."}

	ErrPartialLastCriminal = &RecordError{Kind: KindPrecondition,
		Message: "Cannot perform PARTIAL on the last criminal event. Use 'Downgrade' to properly update the SID status."}
	ErrPartialNonCriminalWithCriminal = &RecordError{Kind: KindPrecondition,
		Message: "Cannot perform PARTIAL on this non-criminal event when a criminal event exists. Use 'Cancel'."}
	ErrPartialOnlyNonCriminal = &RecordError{Kind: KindPrecondition,
		Message: "Cannot perform PARTIAL when only non-criminal events exist. Use 'Cancel'."}

	ErrCancelLastCriminal = &RecordError{Kind: KindPrecondition,
		Message: "Cannot CANCEL the last criminal event. You must use 'Downgrade' to ensure the SID status is updated correctly."}
)

// Referential integrity errors
var (
	ErrDocumentNotOwned = &RecordError{Kind: KindIntegrity,
		Message: "Document does not belong to the provided System ID."}
	ErrDocumentSecurityMismatch = &RecordError{Kind: KindIntegrity,
		Message: "Security Mismatch: Document does not belong to this record."}
	ErrAliasNotOwned = &RecordError{Kind: KindIntegrity,
		Message: "Alias does not belong to the provided System ID."}
)

// Update rule errors
var (
	ErrPrimaryNameNotFound = &RecordError{Kind: KindNotFound, Message: "Primary Name not found"}
	ErrNameIsAlias         = &RecordError{Kind: KindValidation, Message: "This name is already used as an alias."}
	ErrReferenceFieldsReq  = &RecordError{Kind: KindValidation, Message: "Reference Date, Type, and Number are required."}
)

func errInvalidOperation(code string) error {
	return newRecordError(KindInput, "Invalid Delete Type: %s", code)
}

func errSystemIDNotFound(systemID int64) error {
	return newRecordError(KindNotFound, "System ID not found: %d", systemID)
}

func errDocumentNotFound(docID int64) error {
	return newRecordError(KindNotFound, "Document not found with ID: %d", docID)
}

func validationError(format string, args ...interface{}) error {
	return newRecordError(KindValidation, format, args...)
}
