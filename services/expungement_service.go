package services

import (
	"context"
	"fmt"
	"ident_index_app_go/logger"
	"ident_index_app_go/models"
	"ident_index_app_go/services/mainframe"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("ident_index_app_go/services")

// Operation is one of the five expungement operations
type Operation int

const (
	OpPartCancel Operation = iota + 1
	OpDowngrade
	OpCancelEntire
	OpPartial
	OpCancel
)

var operationCodes = map[Operation]string{
	OpPartCancel:   "PART_CANCEL",
	OpDowngrade:    "DOWNGRADE",
	OpCancelEntire: "CANCEL_ENTIRE",
	OpPartial:      "PARTIAL",
	OpCancel:       "CANCEL",
}

func (o Operation) String() string {
	if code, ok := operationCodes[o]; ok {
		return code
	}
	return fmt.Sprintf("Operation(%d)", int(o))
}

// MarshalText encodes the operation as its delete type code
func (o Operation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// RequiresDocument reports whether the operation targets a single document
func (o Operation) RequiresDocument() bool {
	switch o {
	case OpPartCancel, OpPartial, OpCancel:
		return true
	}
	return false
}

// ParseOperation maps a delete type code to an Operation
func ParseOperation(code string) (Operation, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	for op, c := range operationCodes {
		if c == normalized {
			return op, nil
		}
	}
	return 0, errInvalidOperation(code)
}

// dataIntegrityUnit is the requesting unit that downgrades without FBI involvement
const dataIntegrityUnit = "DATA_INTEGRITY"

// ExpungementRequest is a case worker's expungement or downgrade instruction
type ExpungementRequest struct {
	SystemID        int64
	Operation       string // delete type code, e.g. PART_CANCEL
	DocumentID      *int64
	Reason          string
	Comments        *string // replaces master comments when set
	RequestingUnit  string  // DATA_INTEGRITY or EXPUNGEMENT_UNIT, downgrade only
	CogentPCN       string
	CogentPCN2      string
	CourtCaseNumber string
	Charge          string
	UCN             string // FBI number supplied by the caller when the master has none
	UserName        string
	ClientIP        string
}

// ExpungementResult reports what an operation did
type ExpungementResult struct {
	Operation           Operation         `json:"operation"`
	SID                 string            `json:"sid"`
	SystemID            int64             `json:"system_id"`
	ExpungementID       int64             `json:"expungement_id"`
	ProcessType         string            `json:"process_type"`
	LogIndicator        string            `json:"log_indicator"`
	Warning             string            `json:"warning,omitempty"`
	DownstreamTriggered bool              `json:"downstream_triggered"`
	MasterDeleted       bool              `json:"master_deleted"`
	RecordType          models.RecordType `json:"record_type,omitempty"`
}

// ExpungementService dispatches the expungement operations
type ExpungementService struct {
	DB      *gorm.DB
	Audit   *AuditService
	Trigger DownstreamTrigger
	Locks   *MasterLocks
	Metrics *Metrics
	Logger  *zap.Logger
	now     func() time.Time
}

// NewExpungementService creates an ExpungementService.
// A nil trigger queues DRS messages on the outbox.
func NewExpungementService(db *gorm.DB, audit *AuditService, trigger DownstreamTrigger, locks *MasterLocks, m *Metrics, l *zap.Logger) *ExpungementService {
	if trigger == nil {
		trigger = OutboxDownstreamTrigger{}
	}
	if locks == nil {
		locks = NewMasterLocks()
	}
	l = logger.OrNop(l)
	if audit == nil {
		audit = NewAuditService(l)
	}
	return &ExpungementService{
		DB:      db,
		Audit:   audit,
		Trigger: trigger,
		Locks:   locks,
		Metrics: m,
		Logger:  l,
		now:     time.Now,
	}
}

// expungementRun is the state of one Process call inside its transaction
type expungementRun struct {
	tx         *gorm.DB
	req        ExpungementRequest
	op         Operation
	master     *models.MasterRecord
	docs       []models.DocumentReference
	counts     DocumentCounts
	snapshot   *subjectSnapshot
	target     *models.DocumentReference // single-document operations only
	fbiAtStart string
}

// expungementOutcome is how ownership resolution settled the log indicator
type expungementOutcome struct {
	indicator string
	warning   string
	notify    bool
}

// Process validates and applies an expungement request in a single transaction
func (s *ExpungementService) Process(ctx context.Context, req ExpungementRequest) (*ExpungementResult, error) {
	start := s.now()

	op, err := validateExpungementRequest(req)
	if err != nil {
		label := "UNKNOWN"
		if parsed, perr := ParseOperation(req.Operation); perr == nil {
			label = parsed.String()
		}
		s.Metrics.ObserveOperation(label, "rejected", 0)
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "expungement.process", trace.WithAttributes(
		attribute.String("operation", op.String()),
		attribute.Int64("system_id", req.SystemID),
	))
	defer span.End()

	unlock := s.Locks.Lock(req.SystemID)
	defer unlock()

	var result *ExpungementResult
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		run, err := s.begin(tx, req, op)
		if err != nil {
			return err
		}

		switch op {
		case OpPartCancel:
			result, err = s.partCancel(run)
		case OpDowngrade:
			result, err = s.downgrade(run)
		case OpCancelEntire:
			result, err = s.cancelEntire(run)
		case OpPartial:
			result, err = s.partial(run)
		case OpCancel:
			result, err = s.cancel(run)
		default:
			err = errInvalidOperation(req.Operation)
		}
		return err
	})

	elapsed := s.now().Sub(start)
	if err != nil {
		outcome := "error"
		if KindOf(err) != 0 {
			outcome = "rejected"
		}
		s.Metrics.ObserveOperation(op.String(), outcome, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.Logger.Warn("expungement rejected",
			zap.String("operation", op.String()),
			zap.Int64("system_id", req.SystemID),
			zap.String("user", req.UserName),
			zap.Error(err),
		)
		return nil, err
	}

	s.Metrics.ObserveOperation(op.String(), "ok", elapsed)
	span.SetAttributes(
		attribute.String("sid", result.SID),
		attribute.String("indicator", result.LogIndicator),
		attribute.Bool("downstream_triggered", result.DownstreamTriggered),
	)
	s.Logger.Info("expungement processed",
		zap.String("operation", op.String()),
		zap.String("sid", result.SID),
		zap.String("indicator", result.LogIndicator),
		zap.Bool("downstream_triggered", result.DownstreamTriggered),
		zap.String("user", req.UserName),
		zap.Duration("elapsed", elapsed),
	)
	return result, nil
}

func validateExpungementRequest(req ExpungementRequest) (Operation, error) {
	if req.SystemID <= 0 {
		return 0, ErrSystemIDRequired
	}
	op, err := ParseOperation(req.Operation)
	if err != nil {
		return 0, err
	}
	if op.RequiresDocument() && (req.DocumentID == nil || *req.DocumentID <= 0) {
		return 0, ErrDocumentIDRequired
	}
	if strings.TrimSpace(req.Reason) == "" {
		return 0, ErrReasonRequired
	}
	if strings.TrimSpace(req.UserName) == "" {
		return 0, ErrActorRequired
	}
	return op, nil
}

// begin locks the master and loads everything the operation decides on
func (s *ExpungementService) begin(tx *gorm.DB, req ExpungementRequest, op Operation) (*expungementRun, error) {
	master, err := lockMaster(tx, req.SystemID)
	if err != nil {
		return nil, err
	}
	docs, err := loadDocuments(tx, master.SystemID)
	if err != nil {
		return nil, err
	}
	snap, err := loadSnapshot(tx, master.SystemID)
	if err != nil {
		return nil, err
	}

	run := &expungementRun{
		tx:         tx,
		req:        req,
		op:         op,
		master:     master,
		docs:       docs,
		counts:     CountDocuments(docs),
		snapshot:   snap,
		fbiAtStart: master.FBINumberValue(),
	}

	if op.RequiresDocument() {
		run.target, err = findOwnedDocument(tx, docs, master.SystemID, *req.DocumentID)
		if err != nil {
			return nil, err
		}
	}
	return run, nil
}

// findOwnedDocument returns the document if it belongs to systemID
func findOwnedDocument(tx *gorm.DB, docs []models.DocumentReference, systemID, docID int64) (*models.DocumentReference, error) {
	for i := range docs {
		if docs[i].DocID == docID {
			return &docs[i], nil
		}
	}

	var count int64
	if err := tx.Model(&models.DocumentReference{}).Where("doc_id = ?", docID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to look up document: %w", err)
	}
	if count > 0 {
		return nil, ErrDocumentNotOwned
	}
	return nil, errDocumentNotFound(docID)
}

// resolveOwnership settles the indicator for a subject. FBI-owned subjects get
// a confirmed staging entry and no downstream message. For notifying
// operations on other subjects an FBI number is required.
func (s *ExpungementService) resolveOwnership(run *expungementRun, notifying bool, indicator string, missingFbi error, eventDate *time.Time) (expungementOutcome, error) {
	owned, err := IsFbiOwned(run.tx, run.master.SID)
	if err != nil {
		return expungementOutcome{}, err
	}

	if owned {
		_, err := confirmFbiStaging(run.tx, run.master, run.snapshot, stagingDetails{
			UserID:     run.req.UserName,
			PCN:        run.req.CogentPCN,
			CourtCase:  run.req.CourtCaseNumber,
			Charge:     run.req.Charge,
			ArrestDate: eventDate,
			UCN:        run.req.UCN,
		})
		if err != nil {
			return expungementOutcome{}, err
		}
		return expungementOutcome{indicator: models.FbiIndicatorFbiOwned, warning: FbiOwnedWarning}, nil
	}

	if notifying && run.fbiAtStart == "" {
		return expungementOutcome{}, missingFbi
	}
	return expungementOutcome{indicator: indicator, notify: notifying}, nil
}

func (s *ExpungementService) cancelEntire(run *expungementRun) (*ExpungementResult, error) {
	switch {
	case run.counts.Criminal > 1:
		return nil, ErrEntireMultipleArrests
	case run.counts.NonCriminal > 0 || run.counts.Criminal == 0:
		return nil, ErrEntireNonCriminalEvents
	}

	eventDate := latestCriminalDate(run.docs)
	outcome, err := s.resolveOwnership(run, true, models.FbiIndicatorEntire, ErrFbiNumberMissing, eventDate)
	if err != nil {
		return nil, err
	}

	entry := s.newLogEntry(run, models.ProcessTypeExpungement, outcome.indicator, eventDate)
	if err := deleteSubject(run.tx, run.master.SystemID); err != nil {
		return nil, err
	}

	result, err := s.finish(run, entry, outcome, fmt.Sprintf("Deleted Entire SID: %s", run.master.SID))
	if err != nil {
		return nil, err
	}
	result.MasterDeleted = true
	result.RecordType = ""
	return result, nil
}

func (s *ExpungementService) downgrade(run *expungementRun) (*ExpungementResult, error) {
	switch {
	case run.counts.Criminal == 0:
		return nil, ErrDowngradeNoCriminal
	case run.counts.Criminal > 1:
		return nil, ErrDowngradeMultipleArrests
	case run.counts.NonCriminal == 0:
		return nil, ErrDowngradeNoNonCriminal
	}

	eventDate := latestCriminalDate(run.docs)
	processType := models.ProcessTypeExpungement
	var outcome expungementOutcome
	if normalizeUnit(run.req.RequestingUnit) == dataIntegrityUnit {
		processType = models.ProcessTypeDowngrade
		outcome = expungementOutcome{indicator: models.FbiIndicatorDataIntegrity}
	} else {
		var err error
		outcome, err = s.resolveOwnership(run, true, models.FbiIndicatorEntire, ErrUcnNumberMissing, eventDate)
		if err != nil {
			return nil, err
		}
	}

	entry := s.newLogEntry(run, processType, outcome.indicator, eventDate)

	for _, doc := range run.docs {
		if !IsCriminalType(doc.DocumentType) {
			continue
		}
		if err := run.tx.Delete(&models.DocumentReference{}, doc.DocID).Error; err != nil {
			return nil, fmt.Errorf("failed to delete document: %w", err)
		}
	}

	updates := map[string]interface{}{}
	if !run.master.RapbackSubscribed() {
		updates["fbi_number"] = nil
		run.master.FBINumber = nil
	}
	if run.req.Comments != nil {
		updates["comments"] = *run.req.Comments
		run.master.Comments = *run.req.Comments
	}
	if len(updates) > 0 {
		if err := run.tx.Model(&models.MasterRecord{}).Where("system_id = ?", run.master.SystemID).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update master: %w", err)
		}
	}

	recordType, err := applyRecordType(run.tx, run.master, RecordFacts{Downgraded: true})
	if err != nil {
		return nil, err
	}

	details := fmt.Sprintf("Downgraded SID: %s", run.master.SID)
	if unit := normalizeUnit(run.req.RequestingUnit); unit != "" {
		details += fmt.Sprintf(" (Unit: %s)", unit)
	}
	result, err := s.finish(run, entry, outcome, details)
	if err != nil {
		return nil, err
	}
	result.ProcessType = processType
	result.RecordType = recordType
	return result, nil
}

func (s *ExpungementService) partCancel(run *expungementRun) (*ExpungementResult, error) {
	criminal := IsCriminalType(run.target.DocumentType)
	switch {
	case criminal && run.counts.Criminal <= 1:
		return nil, ErrPartCancelLastCriminal
	case !criminal && run.counts.Criminal == 1 && run.counts.NonCriminal == 1:
		return nil, ErrPartCancelNonCriminalWithCriminal
	case !criminal && run.counts.Criminal == 0 && run.counts.NonCriminal >= 2:
		return nil, ErrPartCancelOnlyNonCriminal
	}
	return s.removeDocument(run, true, models.FbiIndicatorPartCancel, true)
}

func (s *ExpungementService) partial(run *expungementRun) (*ExpungementResult, error) {
	criminal := IsCriminalType(run.target.DocumentType)
	switch {
	case criminal && run.counts.Criminal <= 1:
		return nil, ErrPartialLastCriminal
	case !criminal && run.counts.Criminal == 1 && run.counts.NonCriminal == 1:
		return nil, ErrPartialNonCriminalWithCriminal
	case !criminal && run.counts.Criminal == 0 && run.counts.NonCriminal >= 2:
		return nil, ErrPartialOnlyNonCriminal
	}
	return s.removeDocument(run, false, models.FbiIndicatorPartial, false)
}

func (s *ExpungementService) cancel(run *expungementRun) (*ExpungementResult, error) {
	if IsCriminalType(run.target.DocumentType) && run.counts.Criminal <= 1 {
		return nil, ErrCancelLastCriminal
	}
	return s.removeDocument(run, false, models.FbiIndicatorCancel, true)
}

// removeDocument deletes the target document and recalculates the record type
func (s *ExpungementService) removeDocument(run *expungementRun, notifying bool, indicator string, applyComments bool) (*ExpungementResult, error) {
	eventDate := run.target.DocumentDate
	outcome, err := s.resolveOwnership(run, notifying, indicator, ErrFbiNumberMissing, eventDate)
	if err != nil {
		return nil, err
	}

	entry := s.newLogEntry(run, models.ProcessTypeExpungement, outcome.indicator, eventDate)

	if applyComments && run.req.Comments != nil {
		err := run.tx.Model(&models.MasterRecord{}).
			Where("system_id = ?", run.master.SystemID).
			Update("comments", *run.req.Comments).Error
		if err != nil {
			return nil, fmt.Errorf("failed to update comments: %w", err)
		}
		run.master.Comments = *run.req.Comments
	}

	if err := run.tx.Delete(&models.DocumentReference{}, run.target.DocID).Error; err != nil {
		return nil, fmt.Errorf("failed to delete document: %w", err)
	}

	recordType, err := RecalculateRecordType(run.tx, run.master, run.snapshot.primary)
	if err != nil {
		return nil, err
	}

	details := fmt.Sprintf("Deleted Doc ID: %d (%s %s)", run.target.DocID, run.target.DocumentType, run.target.DocumentNumber)
	result, err := s.finish(run, entry, outcome, details)
	if err != nil {
		return nil, err
	}
	result.RecordType = recordType
	return result, nil
}

// finish writes the log entry, fires the downstream trigger and audits the operation
func (s *ExpungementService) finish(run *expungementRun, entry *models.ExpungementLogEntry, outcome expungementOutcome, details string) (*ExpungementResult, error) {
	if err := run.tx.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to write expungement log: %w", err)
	}

	if outcome.notify {
		event := DownstreamEvent{
			SID:       run.master.SID,
			SystemID:  run.master.SystemID,
			Operation: run.op.String(),
			Indicator: outcome.indicator,
			FBINumber: run.fbiAtStart,
		}
		if err := s.Trigger.TriggerDownstreamTransaction(run.tx, event); err != nil {
			return nil, fmt.Errorf("failed to trigger downstream transaction: %w", err)
		}
	}

	actor := AuditContext{UserName: run.req.UserName, IPAddress: run.req.ClientIP}
	if outcome.warning != "" {
		details += " - " + outcome.warning
	}
	if err := s.Audit.LogAction(run.tx, actor, auditActionFor(run.op), run.master, details); err != nil {
		return nil, err
	}

	return &ExpungementResult{
		Operation:           run.op,
		SID:                 run.master.SID,
		SystemID:            run.master.SystemID,
		ExpungementID:       entry.ExpungementID,
		ProcessType:         entry.ProcessType,
		LogIndicator:        outcome.indicator,
		Warning:             outcome.warning,
		DownstreamTriggered: outcome.notify,
		RecordType:          run.master.RecordType,
	}, nil
}

// newLogEntry snapshots the subject as it was before the operation mutated it
func (s *ExpungementService) newLogEntry(run *expungementRun, processType, indicator string, eventDate *time.Time) *models.ExpungementLogEntry {
	m := run.master
	entry := &models.ExpungementLogEntry{
		SID:               m.SID,
		SystemID:          m.SystemID,
		ProcessType:       processType,
		FbiExpIndicator:   indicator,
		UserID:            run.req.UserName,
		ProcessDate:       s.now(),
		FBINumber:         run.fbiAtStart,
		Race:              m.Race,
		Sex:               m.Sex,
		Height:            m.Height,
		Weight:            m.Weight,
		HairColor:         m.HairColor,
		EyeColor:          m.EyeColor,
		SkinTone:          m.SkinTone,
		PlaceOfBirth:      m.PlaceOfBirth,
		SSN:               run.snapshot.ssn,
		PCN:               run.req.CogentPCN,
		CogentPCN:         run.req.CogentPCN,
		CogentPCN2:        run.req.CogentPCN2,
		CourtCaseNumber:   run.req.CourtCaseNumber,
		ChargeDescription: run.req.Charge,
		Reason:            run.req.Reason,
		EventDate:         eventDate,
	}
	if entry.FBINumber == "" {
		entry.FBINumber = strings.TrimSpace(run.req.UCN)
	}
	if name := run.snapshot.primary; name != nil {
		entry.LastName = name.LastName
		entry.FirstName = name.FirstName
		entry.MiddleName = name.MiddleName
		entry.DOB = mainframe.FormatStorageDate(name.DateOfBirth)
	}
	if addr := run.snapshot.address; addr != nil {
		entry.StreetNumber = addr.StreetNumber
		entry.StreetName = addr.StreetName
		entry.City = addr.City
		entry.State = addr.State
		entry.ZipCode = addr.ZipCode
	}
	return entry
}

// latestCriminalDate returns the most recent criminal document date, if any
func latestCriminalDate(docs []models.DocumentReference) *time.Time {
	var latest *time.Time
	for i := range docs {
		d := docs[i].DocumentDate
		if d == nil || !IsCriminalType(docs[i].DocumentType) {
			continue
		}
		if latest == nil || d.After(*latest) {
			latest = d
		}
	}
	return latest
}

func normalizeUnit(unit string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(unit)), " ", "_")
}

func auditActionFor(op Operation) models.AuditAction {
	switch op {
	case OpPartCancel:
		return models.AuditActionPartCancel
	case OpDowngrade:
		return models.AuditActionDowngrade
	case OpCancelEntire:
		return models.AuditActionCancelEntire
	case OpPartial:
		return models.AuditActionPartial
	default:
		return models.AuditActionCancel
	}
}
