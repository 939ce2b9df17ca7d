package services

import (
	"context"
	"fmt"
	"ident_index_app_go/logger"
	"ident_index_app_go/models"
	"ident_index_app_go/services/mainframe"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Appended identifier streams
const (
	StreamCautions    = "cautions"
	StreamDOBs        = "dobs"
	StreamScarsMarks  = "scars_marks"
	StreamSSNs        = "ssns"
	StreamMiscNumbers = "misc_numbers"
)

const (
	maxSMTCodeLength    = 10
	maxMiscNumberLength = 12
	minDOBYear          = 1900
)

var (
	smtCodePattern = regexp.MustCompile(`^[a-zA-Z0-9 ]*$`)
	ssnPattern     = regexp.MustCompile(`^\d{9}$`)
)

// ScarMarkInput is a submitted scar, mark or tattoo
type ScarMarkInput struct {
	Code        string `json:"code" yaml:"code"`
	Description string `json:"description" yaml:"description"`
}

// MiscNumberInput is a submitted miscellaneous number
type MiscNumberInput struct {
	Prefix string `json:"prefix" yaml:"prefix"`
	Number string `json:"number" yaml:"number"`
}

// AppendedIDRequest is the complete target state of each stream.
// A nil stream is left untouched; an empty one clears the stream.
type AppendedIDRequest struct {
	SystemID    int64             `json:"system_id" yaml:"system_id"`
	Cautions    []string          `json:"cautions" yaml:"cautions"`
	DOBs        []string          `json:"dobs" yaml:"dobs"` // MM/DD/YYYY
	ScarsMarks  []ScarMarkInput   `json:"scars_marks" yaml:"scars_marks"`
	SSNs        []string          `json:"ssns" yaml:"ssns"`
	MiscNumbers []MiscNumberInput `json:"misc_numbers" yaml:"misc_numbers"`
	UserName    string            `json:"-" yaml:"-"`
	ClientIP    string            `json:"-" yaml:"-"`
}

// StreamChanges counts the rows a stream added and deleted
type StreamChanges struct {
	Added   int `json:"added"`
	Deleted int `json:"deleted"`
}

// SyncResult reports a synchronization
type SyncResult struct {
	SID         string                   `json:"sid"`
	Changes     map[string]StreamChanges `json:"changes"`
	IIIMessages []string                 `json:"iii_messages,omitempty"`
}

// AppendedIDService reconciles a subject's appended identifiers against submitted state
type AppendedIDService struct {
	DB       *gorm.DB
	Audit    *AuditService
	Notifier IIINotifier // nil disables III notifications
	Locks    *MasterLocks
	Metrics  *Metrics
	Logger   *zap.Logger
	now      func() time.Time
}

// NewAppendedIDService creates an AppendedIDService
func NewAppendedIDService(db *gorm.DB, audit *AuditService, notifier IIINotifier, locks *MasterLocks, m *Metrics, l *zap.Logger) *AppendedIDService {
	if locks == nil {
		locks = NewMasterLocks()
	}
	l = logger.OrNop(l)
	if audit == nil {
		audit = NewAuditService(l)
	}
	return &AppendedIDService{
		DB:       db,
		Audit:    audit,
		Notifier: notifier,
		Locks:    locks,
		Metrics:  m,
		Logger:   l,
		now:      time.Now,
	}
}

// Sync applies every supplied stream in one transaction. Any validation
// failure rolls back all streams.
func (s *AppendedIDService) Sync(ctx context.Context, req AppendedIDRequest) (*SyncResult, error) {
	if req.SystemID <= 0 {
		return nil, ErrSystemIDRequired
	}
	if strings.TrimSpace(req.UserName) == "" {
		return nil, ErrActorRequired
	}

	ctx, span := tracer.Start(ctx, "appended_ids.sync", trace.WithAttributes(
		attribute.Int64("system_id", req.SystemID),
	))
	defer span.End()

	unlock := s.Locks.Lock(req.SystemID)
	defer unlock()

	var result *SyncResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		master, err := lockMaster(tx, req.SystemID)
		if err != nil {
			return err
		}

		sync := s.newSync(tx, master)
		if err := sync.apply(req); err != nil {
			return err
		}

		details := fmt.Sprintf("Updated Appended IDs for SID: %s", master.SID)
		actor := AuditContext{UserName: req.UserName, IPAddress: req.ClientIP}
		if err := s.Audit.LogChange(tx, actor, models.AuditActionSyncAppendedIDs, master, details, nil, sync.changes); err != nil {
			return err
		}

		result = &SyncResult{SID: master.SID, Changes: sync.changes, IIIMessages: sync.messages}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.Logger.Warn("appended identifier sync rejected",
			zap.Int64("system_id", req.SystemID),
			zap.String("user", req.UserName),
			zap.Error(err),
		)
		return nil, err
	}

	for stream, c := range result.Changes {
		s.Metrics.AddIdentifierChanges(stream, c.Added, c.Deleted)
	}
	s.Logger.Info("appended identifiers synchronized",
		zap.String("sid", result.SID),
		zap.Any("changes", result.Changes),
		zap.Int("iii_messages", len(result.IIIMessages)),
	)
	return result, nil
}

// appendedIDSync applies streams for one master inside tx
type appendedIDSync struct {
	tx       *gorm.DB
	master   *models.MasterRecord
	notifier IIINotifier
	today    time.Time
	changes  map[string]StreamChanges
	messages []string
}

func (s *AppendedIDService) newSync(tx *gorm.DB, master *models.MasterRecord) *appendedIDSync {
	now := s.now().UTC()
	var notifier IIINotifier
	if s.Notifier != nil && master.IIIEnrolled() {
		notifier = s.Notifier
	}
	return &appendedIDSync{
		tx:       tx,
		master:   master,
		notifier: notifier,
		today:    time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		changes:  make(map[string]StreamChanges),
	}
}

func (a *appendedIDSync) apply(req AppendedIDRequest) error {
	if req.Cautions != nil {
		if err := a.syncCautions(req.Cautions); err != nil {
			return err
		}
	}
	if req.DOBs != nil {
		if err := a.syncDOBs(req.DOBs); err != nil {
			return err
		}
	}
	if req.ScarsMarks != nil {
		if err := a.syncScarsMarks(req.ScarsMarks); err != nil {
			return err
		}
	}
	if req.SSNs != nil {
		if err := a.syncSSNs(req.SSNs); err != nil {
			return err
		}
	}
	if req.MiscNumbers != nil {
		if err := a.syncMiscNumbers(req.MiscNumbers); err != nil {
			return err
		}
	}
	return nil
}

// notify emits an III message for an added identifier when the subject is enrolled
func (a *appendedIDSync) notify(text string) error {
	if a.notifier == nil {
		return nil
	}
	msg := IIIMessage{SID: a.master.SID, FBINumber: a.master.FBINumberValue(), Text: text}
	if err := a.notifier.NotifyIII(a.tx, msg); err != nil {
		return fmt.Errorf("failed to notify III: %w", err)
	}
	a.messages = append(a.messages, text)
	return nil
}

// incomingKeys dedupes incoming values by key, keeping the first occurrence
func incomingKeys[T any](items []T, key func(T) string) ([]string, map[string]T) {
	order := make([]string, 0, len(items))
	byKey := make(map[string]T, len(items))
	for _, item := range items {
		k := key(item)
		if _, seen := byKey[k]; seen {
			continue
		}
		byKey[k] = item
		order = append(order, k)
	}
	return order, byKey
}

func (a *appendedIDSync) syncCautions(incoming []string) error {
	var existing []models.IdentFlag
	err := a.tx.Where("system_id = ? AND flag_type = ?", a.master.SystemID, models.FlagTypeCaution).
		Find(&existing).Error
	if err != nil {
		return fmt.Errorf("failed to load caution flags: %w", err)
	}

	order, wanted := incomingKeys(incoming, upper)
	have := make(map[string]bool, len(existing))
	var changes StreamChanges

	for _, flag := range existing {
		code := upper(flag.FlagCode)
		have[code] = true
		if _, keep := wanted[code]; keep {
			continue
		}
		if err := a.tx.Delete(&models.IdentFlag{}, flag.FlagID).Error; err != nil {
			return fmt.Errorf("failed to delete caution flag: %w", err)
		}
		changes.Deleted++
	}

	for _, code := range order {
		if have[code] {
			continue
		}
		if code == "" {
			return validationError("Caution code cannot be blank.")
		}
		ok, err := IsValidCautionCode(a.tx, code)
		if err != nil {
			return err
		}
		if !ok {
			return validationError("Invalid Caution Code: %s", wanted[code])
		}
		flag := models.IdentFlag{SystemID: a.master.SystemID, FlagType: models.FlagTypeCaution, FlagCode: code}
		if err := a.tx.Create(&flag).Error; err != nil {
			return fmt.Errorf("failed to add caution flag: %w", err)
		}
		changes.Added++
	}

	a.changes[StreamCautions] = changes
	return nil
}

// dobKey normalizes a submitted DOB to MM/DD/YYYY when it parses
func dobKey(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if t, err := mainframe.ParseDisplayDate(trimmed); err == nil {
		return mainframe.FormatDisplayDate(t)
	}
	return trimmed
}

func (a *appendedIDSync) syncDOBs(incoming []string) error {
	var existing []models.AltDOB
	if err := a.tx.Where("system_id = ?", a.master.SystemID).Find(&existing).Error; err != nil {
		return fmt.Errorf("failed to load alternate dobs: %w", err)
	}

	order, wanted := incomingKeys(incoming, dobKey)
	have := make(map[string]bool, len(existing))
	var changes StreamChanges

	for _, dob := range existing {
		key := mainframe.FormatDisplayDate(dob.DateOfBirth)
		have[key] = true
		if _, keep := wanted[key]; keep {
			continue
		}
		if err := a.tx.Delete(&models.AltDOB{}, dob.DobID).Error; err != nil {
			return fmt.Errorf("failed to delete alternate dob: %w", err)
		}
		changes.Deleted++
	}

	for _, key := range order {
		if have[key] || key == "" {
			continue
		}
		raw := wanted[key]
		dob, err := mainframe.ParseDisplayDate(key)
		if err != nil {
			return validationError("Date must be in MM/dd/yyyy format: %s", raw)
		}
		if dob.Year() < minDOBYear {
			return validationError("DOB year cannot be earlier than 1900: %s", raw)
		}
		if !dob.Before(a.today) {
			return validationError("DOB cannot be today or in the future: %s", raw)
		}

		row := models.AltDOB{SystemID: a.master.SystemID, DateOfBirth: dob}
		if err := a.tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to add alternate dob: %w", err)
		}
		changes.Added++
		if err := a.notify("DOB/" + dob.Format(mainframe.IIIDateLayout)); err != nil {
			return err
		}
	}

	a.changes[StreamDOBs] = changes
	return nil
}

func (a *appendedIDSync) syncScarsMarks(incoming []ScarMarkInput) error {
	var existing []models.ScarMark
	if err := a.tx.Where("system_id = ?", a.master.SystemID).Find(&existing).Error; err != nil {
		return fmt.Errorf("failed to load scars and marks: %w", err)
	}

	order, wanted := incomingKeys(incoming, func(in ScarMarkInput) string { return upper(in.Code) })
	have := make(map[string]bool, len(existing))
	var changes StreamChanges

	for _, smt := range existing {
		code := upper(smt.Code)
		have[code] = true
		if _, keep := wanted[code]; keep {
			continue
		}
		if err := a.tx.Delete(&models.ScarMark{}, smt.SmtID).Error; err != nil {
			return fmt.Errorf("failed to delete scar/mark: %w", err)
		}
		changes.Deleted++
	}

	for _, code := range order {
		if have[code] {
			continue
		}
		in := wanted[code]
		switch {
		case code == "":
			return validationError("Scar/Mark code cannot be blank.")
		case len(code) > maxSMTCodeLength:
			return validationError("Scar/Mark code cannot exceed 10 characters: %s", in.Code)
		case !smtCodePattern.MatchString(code):
			return validationError("Scar/Mark contains invalid characters: %s", in.Code)
		}
		ok, err := IsValidSMTCode(a.tx, code)
		if err != nil {
			return err
		}
		if !ok {
			return validationError("Invalid Scar/Mark code (not in reference table): %s", in.Code)
		}

		row := models.ScarMark{SystemID: a.master.SystemID, Code: code, Description: upper(in.Description)}
		if err := a.tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to add scar/mark: %w", err)
		}
		changes.Added++
		if err := a.notify("SMT/" + code); err != nil {
			return err
		}
	}

	a.changes[StreamScarsMarks] = changes
	return nil
}

// normalizeSSN strips dashes and spaces
func normalizeSSN(raw string) string {
	return strings.NewReplacer("-", "", " ", "").Replace(raw)
}

func (a *appendedIDSync) syncSSNs(incoming []string) error {
	var existing []models.SSNRecord
	if err := a.tx.Where("system_id = ?", a.master.SystemID).Find(&existing).Error; err != nil {
		return fmt.Errorf("failed to load ssns: %w", err)
	}

	order, wanted := incomingKeys(incoming, normalizeSSN)
	have := make(map[string]bool, len(existing))
	var changes StreamChanges

	for _, row := range existing {
		key := normalizeSSN(row.SSN)
		have[key] = true
		if _, keep := wanted[key]; keep {
			continue
		}
		if err := a.tx.Delete(&models.SSNRecord{}, row.SsnID).Error; err != nil {
			return fmt.Errorf("failed to delete ssn: %w", err)
		}
		changes.Deleted++
	}

	for _, ssn := range order {
		if have[ssn] {
			continue
		}
		if ssn == "" {
			return validationError("SSN cannot be blank.")
		}
		if !ssnPattern.MatchString(ssn) {
			return validationError("Incomplete or invalid SSN: %s", wanted[ssn])
		}

		row := models.SSNRecord{SystemID: a.master.SystemID, SSN: ssn}
		if err := a.tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to add ssn: %w", err)
		}
		changes.Added++
		if err := a.notify("SOC/" + ssn); err != nil {
			return err
		}
	}

	a.changes[StreamSSNs] = changes
	return nil
}

func miscKey(prefix, number string) string {
	return upper(prefix) + "|" + upper(number)
}

func (a *appendedIDSync) syncMiscNumbers(incoming []MiscNumberInput) error {
	var existing []models.MiscNumber
	if err := a.tx.Where("system_id = ?", a.master.SystemID).Find(&existing).Error; err != nil {
		return fmt.Errorf("failed to load misc numbers: %w", err)
	}

	order, wanted := incomingKeys(incoming, func(in MiscNumberInput) string { return miscKey(in.Prefix, in.Number) })
	have := make(map[string]bool, len(existing))
	var changes StreamChanges

	for _, row := range existing {
		key := miscKey(row.PrefixType, row.Number)
		have[key] = true
		if _, keep := wanted[key]; keep {
			continue
		}
		if err := a.tx.Delete(&models.MiscNumber{}, row.MiscID).Error; err != nil {
			return fmt.Errorf("failed to delete misc number: %w", err)
		}
		changes.Deleted++
	}

	for _, key := range order {
		if have[key] {
			continue
		}
		in := wanted[key]
		prefix, number := upper(in.Prefix), upper(in.Number)
		if prefix == "" || number == "" {
			return validationError("Misc Number requires both Prefix and Number.")
		}
		ok, err := IsValidMiscPrefix(a.tx, prefix)
		if err != nil {
			return err
		}
		if !ok {
			return validationError("Invalid Misc Number Prefix: %s", in.Prefix)
		}
		if len(number) > maxMiscNumberLength {
			return validationError("Misc Number cannot exceed 12 characters.")
		}

		row := models.MiscNumber{SystemID: a.master.SystemID, PrefixType: prefix, Number: number}
		if err := a.tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to add misc number: %w", err)
		}
		changes.Added++
		if err := a.notify("MNU/" + prefix + "-" + number); err != nil {
			return err
		}
	}

	a.changes[StreamMiscNumbers] = changes
	return nil
}
