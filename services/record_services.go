package services

import (
	"ident_index_app_go/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ServiceOptions wires the record services
type ServiceOptions struct {
	DB      *gorm.DB
	Logger  *zap.Logger
	Metrics *Metrics
	// Trigger defaults to the DRS outbox
	Trigger DownstreamTrigger
	// IIINotifications enables III messages for enrolled subjects
	IIINotifications bool
}

// RecordServices bundles the services that mutate subjects. They share one
// lock table so operations on the same system id never interleave.
type RecordServices struct {
	Audit       *AuditService
	Expungement *ExpungementService
	AppendedIDs *AppendedIDService
	Updates     *IdentUpdateService
}

// NewRecordServices builds the record services from opts
func NewRecordServices(opts ServiceOptions) *RecordServices {
	l := logger.OrNop(opts.Logger)
	locks := NewMasterLocks()
	audit := NewAuditService(l)

	var notifier IIINotifier
	if opts.IIINotifications {
		notifier = OutboxIIINotifier{}
	}

	return &RecordServices{
		Audit:       audit,
		Expungement: NewExpungementService(opts.DB, audit, opts.Trigger, locks, opts.Metrics, l),
		AppendedIDs: NewAppendedIDService(opts.DB, audit, notifier, locks, opts.Metrics, l),
		Updates:     NewIdentUpdateService(opts.DB, audit, locks, l),
	}
}
