package services

import (
	"context"
	"encoding/json"
	"errors"
	"ident_index_app_go/models"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingTrigger struct {
	events []DownstreamEvent
	err    error
}

func (r *recordingTrigger) TriggerDownstreamTransaction(tx *gorm.DB, event DownstreamEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func newTestExpungementService(db *gorm.DB, trigger DownstreamTrigger) *ExpungementService {
	svc := NewExpungementService(db, nil, trigger, nil, nil, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func expungeReq(systemID int64, op string) ExpungementRequest {
	return ExpungementRequest{
		SystemID:        systemID,
		Operation:       op,
		Reason:          "COURT ORDER",
		UserName:        "jdoe",
		ClientIP:        "10.0.0.1",
		CogentPCN:       "PCN123",
		CourtCaseNumber: "2023CF001",
		Charge:          "BURGLARY",
	}
}

func TestProcessValidation(t *testing.T) {
	db := setupIdentTestDB(t)
	svc := newTestExpungementService(db, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(r *ExpungementRequest)
		want   error
	}{
		{"missing system id", func(r *ExpungementRequest) { r.SystemID = 0 }, ErrSystemIDRequired},
		{"missing document id", func(r *ExpungementRequest) { r.DocumentID = nil }, ErrDocumentIDRequired},
		{"zero document id", func(r *ExpungementRequest) { r.DocumentID = int64Ptr(0) }, ErrDocumentIDRequired},
		{"missing reason", func(r *ExpungementRequest) { r.Reason = "  " }, ErrReasonRequired},
		{"missing user", func(r *ExpungementRequest) { r.UserName = "" }, ErrActorRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := expungeReq(1, "PARTIAL")
			req.DocumentID = int64Ptr(5)
			tt.mutate(&req)

			result, err := svc.Process(ctx, req)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, KindInput, KindOf(err))
		})
	}

	t.Run("invalid operation", func(t *testing.T) {
		_, err := svc.Process(ctx, expungeReq(1, "PURGE"))
		require.Error(t, err)
		assert.Equal(t, KindInput, KindOf(err))
		assert.Equal(t, "Invalid Delete Type: PURGE", err.Error())
	})

	t.Run("unknown system id", func(t *testing.T) {
		_, err := svc.Process(ctx, expungeReq(999, "CANCEL_ENTIRE"))
		require.Error(t, err)
		assert.Equal(t, KindNotFound, KindOf(err))
		assert.Equal(t, "System ID not found: 999", err.Error())
	})
}

func TestParseOperation(t *testing.T) {
	op, err := ParseOperation(" part_cancel ")
	require.NoError(t, err)
	assert.Equal(t, OpPartCancel, op)
	assert.True(t, op.RequiresDocument())

	op, err = ParseOperation("DOWNGRADE")
	require.NoError(t, err)
	assert.False(t, op.RequiresDocument())

	text, err := OpCancelEntire.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "CANCEL_ENTIRE", string(text))
	assert.Equal(t, "Operation(9)", Operation(9).String())
}

func TestCancelEntire(t *testing.T) {
	t.Run("deletes subject and logs snapshot", func(t *testing.T) {
		db := setupIdentTestDB(t)
		trigger := &recordingTrigger{}
		svc := newTestExpungementService(db, trigger)
		s := seedSubject(t, db, subjectFixture{SID: "FL0000001", FBINumber: "123456AB1", Documents: []string{"CAR"}})

		result, err := svc.Process(context.Background(), expungeReq(s.Master.SystemID, "CANCEL_ENTIRE"))
		require.NoError(t, err)

		assert.True(t, result.MasterDeleted)
		assert.Equal(t, models.FbiIndicatorEntire, result.LogIndicator)
		assert.True(t, result.DownstreamTriggered)
		assert.Empty(t, result.Warning)

		assert.Equal(t, int64(0), countRows(t, db, &models.MasterRecord{}, "system_id = ?", s.Master.SystemID))
		for _, child := range []interface{}{&models.NameRecord{}, &models.DocumentReference{}, &models.Address{}, &models.SSNRecord{}} {
			assert.Equal(t, int64(0), countRows(t, db, child, "system_id = ?", s.Master.SystemID))
		}

		var entry models.ExpungementLogEntry
		require.NoError(t, db.First(&entry, result.ExpungementID).Error)
		assert.Equal(t, "FL0000001", entry.SID)
		assert.Equal(t, models.ProcessTypeExpungement, entry.ProcessType)
		assert.Equal(t, "123456AB1", entry.FBINumber)
		assert.Equal(t, "SMITH", entry.LastName)
		assert.Equal(t, "1980-07-04", entry.DOB)
		assert.Equal(t, "SPRINGFIELD", entry.City)
		assert.Equal(t, "123456789", entry.SSN)
		assert.Equal(t, "PCN123", entry.PCN)
		assert.Equal(t, "COURT ORDER", entry.Reason)
		require.NotNil(t, entry.EventDate)
		assert.True(t, entry.EventDate.Equal(*s.Docs[0].DocumentDate))

		require.Len(t, trigger.events, 1)
		assert.Equal(t, DownstreamEvent{
			SID:       "FL0000001",
			SystemID:  s.Master.SystemID,
			Operation: "CANCEL_ENTIRE",
			Indicator: models.FbiIndicatorEntire,
			FBINumber: "123456AB1",
		}, trigger.events[0])

		var audit models.AuditLog
		require.NoError(t, db.First(&audit, "action = ?", models.AuditActionCancelEntire).Error)
		assert.Equal(t, "jdoe", audit.UserName)
		assert.Equal(t, "10.0.0.1", audit.IPAddress)
		assert.Contains(t, audit.Details, "Deleted Entire SID: FL0000001")
	})

	t.Run("default trigger queues drs message", func(t *testing.T) {
		db := setupIdentTestDB(t)
		svc := newTestExpungementService(db, nil)
		s := seedSubject(t, db, subjectFixture{SID: "FL0000002", FBINumber: "999999ZZ9", Documents: []string{"CAR"}})

		_, err := svc.Process(context.Background(), expungeReq(s.Master.SystemID, "CANCEL_ENTIRE"))
		require.NoError(t, err)

		msgs := outboxMessages(t, db, models.OutboxTopicDRS)
		require.Len(t, msgs, 1)
		assert.Equal(t, "EXPUNGEMENT_CANCEL_ENTIRE", msgs[0].EventType)
		assert.Equal(t, "FL0000002", msgs[0].AggregateKey)

		var event DownstreamEvent
		require.NoError(t, json.Unmarshal(msgs[0].Payload, &event))
		assert.Equal(t, "999999ZZ9", event.FBINumber)

		assert.Len(t, outboxMessages(t, db, models.OutboxTopicAudit), 1)
	})

	preconditions := []struct {
		name string
		docs []string
		want error
	}{
		{"multiple arrests", []string{"CAR", "DOC"}, ErrEntireMultipleArrests},
		{"non-criminal events", []string{"CAR", "GPU"}, ErrEntireNonCriminalEvents},
		{"no criminal events", []string{"GPU"}, ErrEntireNonCriminalEvents},
	}
	for _, tt := range preconditions {
		t.Run(tt.name, func(t *testing.T) {
			db := setupIdentTestDB(t)
			svc := newTestExpungementService(db, &recordingTrigger{})
			s := seedSubject(t, db, subjectFixture{SID: "FL0000003", FBINumber: "123456AB1", Documents: tt.docs})

			_, err := svc.Process(context.Background(), expungeReq(s.Master.SystemID, "CANCEL_ENTIRE"))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, int64(1), countRows(t, db, &models.MasterRecord{}, "system_id = ?", s.Master.SystemID))
			assert.Equal(t, int64(0), countRows(t, db, &models.ExpungementLogEntry{}, "1 = 1"))
		})
	}

	t.Run("missing fbi number rolls back", func(t *testing.T) {
		db := setupIdentTestDB(t)
		trigger := &recordingTrigger{}
		svc := newTestExpungementService(db, trigger)
		s := seedSubject(t, db, subjectFixture{SID: "FL0000004", Documents: []string{"CAR"}})

		_, err := svc.Process(context.Background(), expungeReq(s.Master.SystemID, "CANCEL_ENTIRE"))
		assert.ErrorIs(t, err, ErrFbiNumberMissing)
		assert.Empty(t, trigger.events)
		assert.Equal(t, int64(1), countRows(t, db, &models.DocumentReference{}, "system_id = ?", s.Master.SystemID))
		assert.Equal(t, int64(0), countRows(t, db, &models.AuditLog{}, "1 = 1"))
	})

	t.Run("fbi owned subject suppresses drs message", func(t *testing.T) {
		db := setupIdentTestDB(t)
		trigger := &recordingTrigger{}
		svc := newTestExpungementService(db, trigger)
		s := seedSubject(t, db, subjectFixture{SID: "FL0000005", Documents: []string{"CAR"}})
		require.NoError(t, db.Create(&models.FbiOwnershipIndex{SID: "FL0000005", FBINumber: "777777AA7", DateAdded: fixedNow}).Error)

		req := expungeReq(s.Master.SystemID, "CANCEL_ENTIRE")
		req.UCN = "777777AA7"
		result, err := svc.Process(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, models.FbiIndicatorFbiOwned, result.LogIndicator)
		assert.Equal(t, FbiOwnedWarning, result.Warning)
		assert.False(t, result.DownstreamTriggered)
		assert.Empty(t, trigger.events)

		var staged models.FbiDowngradeStagingEntry
		require.NoError(t, db.First(&staged, "sid = ?", "FL0000005").Error)
		assert.Equal(t, models.FbiRecordConfirmed, staged.FbiRecordIndicator)
		assert.Equal(t, "777777AA7", staged.FBINumber)
		assert.Equal(t, "SMITH", staged.LastName)
		assert.Equal(t, "jdoe", staged.UserID)
		assert.Equal(t, "BURGLARY", staged.ChargeDescription)

		var audit models.AuditLog
		require.NoError(t, db.First(&audit, "action = ?", models.AuditActionCancelEntire).Error)
		assert.Contains(t, audit.Details, FbiOwnedWarning)
	})

	t.Run("staged row of another system id is left alone", func(t *testing.T) {
		db := setupIdentTestDB(t)
		svc := newTestExpungementService(db, &recordingTrigger{})
		s := seedSubject(t, db, subjectFixture{SID: "FL0000006", Documents: []string{"CAR"}})
		require.NoError(t, db.Create(&models.FbiOwnershipIndex{SID: "FL0000006", FBINumber: "777777AA7", DateAdded: fixedNow}).Error)
		other := models.FbiDowngradeStagingEntry{
			SID:                "FL0000006",
			FBINumber:          "777777AA7",
			SystemID:           s.Master.SystemID + 100,
			FbiRecordIndicator: models.FbiRecordStaged,
			UserID:             "prior",
		}
		require.NoError(t, db.Create(&other).Error)

		req := expungeReq(s.Master.SystemID, "CANCEL_ENTIRE")
		req.UCN = "777777AA7"
		_, err := svc.Process(context.Background(), req)
		require.NoError(t, err)

		var reloaded models.FbiDowngradeStagingEntry
		require.NoError(t, db.First(&reloaded, other.DowngradeID).Error)
		assert.Equal(t, models.FbiRecordStaged, reloaded.FbiRecordIndicator)
		assert.Equal(t, "prior", reloaded.UserID)

		var confirmed models.FbiDowngradeStagingEntry
		require.NoError(t, db.First(&confirmed, "system_id = ? AND fbi_record_indicator = ?",
			s.Master.SystemID, models.FbiRecordConfirmed).Error)
		assert.NotEqual(t, other.DowngradeID, confirmed.DowngradeID)
		assert.Equal(t, "jdoe", confirmed.UserID)
	})

	t.Run("stored ssn is logged without separators", func(t *testing.T) {
		db := setupIdentTestDB(t)
		svc := newTestExpungementService(db, &recordingTrigger{})
		s := seedSubject(t, db, subjectFixture{SID: "FL0000007", FBINumber: "123456AB1", Documents: []string{"CAR"}})
		require.NoError(t, db.Model(&models.SSNRecord{}).
			Where("system_id = ?", s.Master.SystemID).
			Update("ssn", "123-45-6789").Error)

		result, err := svc.Process(context.Background(), expungeReq(s.Master.SystemID, "CANCEL_ENTIRE"))
		require.NoError(t, err)

		var entry models.ExpungementLogEntry
		require.NoError(t, db.First(&entry, result.ExpungementID).Error)
		assert.Equal(t, "123456789", entry.SSN)
	})
}

func TestDowngrade(t *testing.T) {
	t.Run("clears fbi number and forces non-criminal", func(t *testing.T) {
		db := setupIdentTestDB(t)
		trigger := &recordingTrigger{}
		svc := newTestExpungementService(db, trigger)
		s := seedSubject(t, db, subjectFixture{SID: "FL0000010", FBINumber: "123456AB1", Documents: []string{"CAR", "GPU"}})

		req := expungeReq(s.Master.SystemID, "DOWNGRADE")
		req.Comments = strPtr("DOWNGRADED PER ORDER")
		result, err := svc.Process(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, models.FbiIndicatorEntire, result.LogIndicator)
		assert.Equal(t, models.ProcessTypeExpungement, result.ProcessType)
		assert.Equal(t, models.RecordTypeNonCriminal, result.RecordType)
		assert.True(t, result.DownstreamTriggered)

		master := reloadMaster(t, db, s.Master.SystemID)
		assert.Nil(t, master.FBINumber)
		assert.Equal(t, models.RecordTypeNonCriminal, master.RecordType)
		assert.Equal(t, "DOWNGRADED PER ORDER", master.Comments)

		var remaining []models.DocumentReference
		require.NoError(t, db.Where("system_id = ?", s.Master.SystemID).Find(&remaining).Error)
		require.Len(t, remaining, 1)
		assert.Equal(t, "GPU", remaining[0].DocumentType)

		var entry models.ExpungementLogEntry
		require.NoError(t, db.First(&entry, result.ExpungementID).Error)
		assert.Equal(t, "123456AB1", entry.FBINumber)

		require.Len(t, trigger.events, 1)
		assert.Equal(t, "123456AB1", trigger.events[0].FBINumber)
	})

	t.Run("rapback subscription keeps fbi number", func(t *testing.T) {
		db := setupIdentTestDB(t)
		svc := newTestExpungementService(db, &recordingTrigger{})
		s := seedSubject(t, db, subjectFixture{SID: "FL0000011", FBINumber: "123456AB1", Rapback: "R", Documents: []string{"CAR", "GPU"}})

		_, err := svc.Process(context.Background(), expungeReq(s.Master.SystemID, "DOWNGRADE"))
		require.NoError(t, err)

		master := reloadMaster(t, db, s.Master.SystemID)
		require.NotNil(t, master.FBINumber)
		assert.Equal(t, "123456AB1", *master.FBINumber)
		assert.Equal(t, models.RecordTypeNonCriminal, master.RecordType)
	})

	t.Run("data integrity unit skips fbi involvement", func(t *testing.T) {
		db := setupIdentTestDB(t)
		trigger := &recordingTrigger{}
		svc := newTestExpungementService(db, trigger)
		s := seedSubject(t, db, subjectFixture{SID: "FL0000012", Documents: []string{"CAR", "GPU"}})

		req := expungeReq(s.Master.SystemID, "DOWNGRADE")
		req.RequestingUnit = "Data Integrity"
		result, err := svc.Process(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, models.ProcessTypeDowngrade, result.ProcessType)
		assert.Equal(t, models.FbiIndicatorDataIntegrity, result.LogIndicator)
		assert.False(t, result.DownstreamTriggered)
		assert.Empty(t, trigger.events)

		var audit models.AuditLog
		require.NoError(t, db.First(&audit, "action = ?", models.AuditActionDowngrade).Error)
		assert.Contains(t, audit.Details, "(Unit: DATA_INTEGRITY)")
	})

	t.Run("missing ucn", func(t *testing.T) {
		db := setupIdentTestDB(t)
		svc := newTestExpungementService(db, &recordingTrigger{})
		s := seedSubject(t, db, subjectFixture{SID: "FL0000013", Documents: []string{"CAR", "GPU"}})

		req := expungeReq(s.Master.SystemID, "DOWNGRADE")
		req.RequestingUnit = "EXPUNGEMENT_UNIT"
		_, err := svc.Process(context.Background(), req)
		assert.ErrorIs(t, err, ErrUcnNumberMissing)
		assert.Equal(t, int64(2), countRows(t, db, &models.DocumentReference{}, "system_id = ?", s.Master.SystemID))
	})

	t.Run("fbi owned promotes staged entry", func(t *testing.T) {
		db := setupIdentTestDB(t)
		trigger := &recordingTrigger{}
		svc := newTestExpungementService(db, trigger)
		s := seedSubject(t, db, subjectFixture{SID: "FL0000014", FBINumber: "555555CC5", Documents: []string{"CAR", "GPU"}})
		require.NoError(t, db.Create(&models.FbiOwnershipIndex{SID: "FL0000014", FBINumber: "555555CC5"}).Error)
		require.NoError(t, db.Create(&models.FbiDowngradeStagingEntry{
			SID:                "FL0000014",
			FBINumber:          "555555CC5",
			SystemID:           s.Master.SystemID,
			FbiRecordIndicator: models.FbiRecordStaged,
			UserID:             "earlier",
		}).Error)

		result, err := svc.Process(context.Background(), expungeReq(s.Master.SystemID, "DOWNGRADE"))
		require.NoError(t, err)
		assert.Equal(t, models.FbiIndicatorFbiOwned, result.LogIndicator)
		assert.Empty(t, trigger.events)

		var entries []models.FbiDowngradeStagingEntry
		require.NoError(t, db.Where("sid = ?", "FL0000014").Find(&entries).Error)
		require.Len(t, entries, 1)
		assert.Equal(t, models.FbiRecordConfirmed, entries[0].FbiRecordIndicator)
		assert.Equal(t, "jdoe", entries[0].UserID)
	})

	preconditions := []struct {
		name string
		docs []string
		want error
	}{
		{"no criminal event", []string{"GPU"}, ErrDowngradeNoCriminal},
		{"multiple arrests", []string{"CAR", "DOC", "GPU"}, ErrDowngradeMultipleArrests},
		{"no non-criminal event", []string{"CAR"}, ErrDowngradeNoNonCriminal},
	}
	for _, tt := range preconditions {
		t.Run(tt.name, func(t *testing.T) {
			db := setupIdentTestDB(t)
			svc := newTestExpungementService(db, &recordingTrigger{})
			s := seedSubject(t, db, subjectFixture{SID: "FL0000015", FBINumber: "123456AB1", Documents: tt.docs})

			_, err := svc.Process(context.Background(), expungeReq(s.Master.SystemID, "DOWNGRADE"))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, KindPrecondition, KindOf(err))
		})
	}
}

func TestPartCancel(t *testing.T) {
	t.Run("removes one of several arrests", func(t *testing.T) {
		db := setupIdentTestDB(t)
		trigger := &recordingTrigger{}
		svc := newTestExpungementService(db, trigger)
		s := seedSubject(t, db, subjectFixture{SID: "FL0000020", FBINumber: "123456AB1", Documents: []string{"CAR", "DOC"}})

		req := expungeReq(s.Master.SystemID, "PART_CANCEL")
		req.DocumentID = int64Ptr(s.Docs[1].DocID)
		req.Comments = strPtr("PART CANCEL")
		result, err := svc.Process(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, models.FbiIndicatorPartCancel, result.LogIndicator)
		assert.Equal(t, models.RecordTypeCriminal, result.RecordType)
		assert.True(t, result.DownstreamTriggered)
		require.Len(t, trigger.events, 1)
		assert.Equal(t, "PART_CANCEL", trigger.events[0].Operation)

		assert.Equal(t, int64(0), countRows(t, db, &models.DocumentReference{}, "doc_id = ?", s.Docs[1].DocID))
		assert.Equal(t, "PART CANCEL", reloadMaster(t, db, s.Master.SystemID).Comments)

		var entry models.ExpungementLogEntry
		require.NoError(t, db.First(&entry, result.ExpungementID).Error)
		require.NotNil(t, entry.EventDate)
		assert.True(t, entry.EventDate.Equal(*s.Docs[1].DocumentDate))
	})

	t.Run("missing fbi number", func(t *testing.T) {
		db := setupIdentTestDB(t)
		svc := newTestExpungementService(db, &recordingTrigger{})
		s := seedSubject(t, db, subjectFixture{SID: "FL0000021", Documents: []string{"CAR", "DOC"}})

		req := expungeReq(s.Master.SystemID, "PART_CANCEL")
		req.DocumentID = int64Ptr(s.Docs[0].DocID)
		_, err := svc.Process(context.Background(), req)
		assert.ErrorIs(t, err, ErrFbiNumberMissing)
	})

	preconditions := []struct {
		name   string
		docs   []string
		target int
		want   error
	}{
		{"last criminal event", []string{"CAR", "GPU"}, 0, ErrPartCancelLastCriminal},
		{"non-criminal beside one criminal", []string{"CAR", "GPU"}, 1, ErrPartCancelNonCriminalWithCriminal},
		{"only non-criminal events", []string{"GPU", "MIS"}, 0, ErrPartCancelOnlyNonCriminal},
	}
	for _, tt := range preconditions {
		t.Run(tt.name, func(t *testing.T) {
			db := setupIdentTestDB(t)
			svc := newTestExpungementService(db, &recordingTrigger{})
			s := seedSubject(t, db, subjectFixture{SID: "FL0000022", FBINumber: "123456AB1", Documents: tt.docs})

			req := expungeReq(s.Master.SystemID, "PART_CANCEL")
			req.DocumentID = int64Ptr(s.Docs[tt.target].DocID)
			_, err := svc.Process(context.Background(), req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPartial(t *testing.T) {
	t.Run("no downstream message and comments untouched", func(t *testing.T) {
		db := setupIdentTestDB(t)
		trigger := &recordingTrigger{}
		svc := newTestExpungementService(db, trigger)
		s := seedSubject(t, db, subjectFixture{SID: "FL0000030", Comments: "ORIGINAL", Fingerprint: "0102030405", Documents: []string{"CAR", "DOC"}})

		req := expungeReq(s.Master.SystemID, "PARTIAL")
		req.DocumentID = int64Ptr(s.Docs[0].DocID)
		req.Comments = strPtr("IGNORED")
		result, err := svc.Process(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, models.FbiIndicatorPartial, result.LogIndicator)
		assert.False(t, result.DownstreamTriggered)
		assert.Empty(t, trigger.events)
		assert.Equal(t, models.RecordTypeCriminal, result.RecordType)
		assert.Equal(t, "ORIGINAL", reloadMaster(t, db, s.Master.SystemID).Comments)
	})

	preconditions := []struct {
		name   string
		docs   []string
		target int
		want   error
	}{
		{"last criminal event", []string{"CAR"}, 0, ErrPartialLastCriminal},
		{"non-criminal beside one criminal", []string{"CAR", "GPU"}, 1, ErrPartialNonCriminalWithCriminal},
		{"only non-criminal events", []string{"GPU", "MIS"}, 1, ErrPartialOnlyNonCriminal},
	}
	for _, tt := range preconditions {
		t.Run(tt.name, func(t *testing.T) {
			db := setupIdentTestDB(t)
			svc := newTestExpungementService(db, &recordingTrigger{})
			s := seedSubject(t, db, subjectFixture{SID: "FL0000031", Documents: tt.docs})

			req := expungeReq(s.Master.SystemID, "PARTIAL")
			req.DocumentID = int64Ptr(s.Docs[tt.target].DocID)
			_, err := svc.Process(context.Background(), req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCancel(t *testing.T) {
	t.Run("removes non-criminal event and recalculates", func(t *testing.T) {
		db := setupIdentTestDB(t)
		trigger := &recordingTrigger{}
		svc := newTestExpungementService(db, trigger)
		s := seedSubject(t, db, subjectFixture{SID: "FL0000040", FBINumber: "123456AB1", Documents: []string{"CAR", "GPU"}})

		req := expungeReq(s.Master.SystemID, "CANCEL")
		req.DocumentID = int64Ptr(s.Docs[1].DocID)
		req.Comments = strPtr("CANCELLED REFERENCE")
		result, err := svc.Process(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, models.FbiIndicatorCancel, result.LogIndicator)
		assert.False(t, result.DownstreamTriggered)
		assert.Equal(t, models.RecordTypeCriminal, result.RecordType)

		master := reloadMaster(t, db, s.Master.SystemID)
		assert.Equal(t, "CANCELLED REFERENCE", master.Comments)
	})

	t.Run("last non-criminal on a subject without criminal events", func(t *testing.T) {
		db := setupIdentTestDB(t)
		svc := newTestExpungementService(db, nil)
		s := seedSubject(t, db, subjectFixture{SID: "FL0000041", FBINumber: "123456AB1", Documents: []string{"GPU"}})

		req := expungeReq(s.Master.SystemID, "CANCEL")
		req.DocumentID = int64Ptr(s.Docs[0].DocID)
		result, err := svc.Process(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, models.RecordTypeNonCriminal, result.RecordType)
	})

	t.Run("last criminal event", func(t *testing.T) {
		db := setupIdentTestDB(t)
		svc := newTestExpungementService(db, nil)
		s := seedSubject(t, db, subjectFixture{SID: "FL0000042", FBINumber: "123456AB1", Documents: []string{"CAR", "GPU"}})

		req := expungeReq(s.Master.SystemID, "CANCEL")
		req.DocumentID = int64Ptr(s.Docs[0].DocID)
		_, err := svc.Process(context.Background(), req)
		assert.ErrorIs(t, err, ErrCancelLastCriminal)
	})
}

func TestSingleDocumentOwnership(t *testing.T) {
	db := setupIdentTestDB(t)
	svc := newTestExpungementService(db, nil)
	a := seedSubject(t, db, subjectFixture{SID: "FL0000050", FBINumber: "123456AB1", Documents: []string{"CAR", "DOC"}})
	b := seedSubject(t, db, subjectFixture{SID: "FL0000051", FBINumber: "654321BA1", Documents: []string{"CAR", "DOC"}})

	req := expungeReq(a.Master.SystemID, "PARTIAL")
	req.DocumentID = int64Ptr(b.Docs[0].DocID)
	_, err := svc.Process(context.Background(), req)
	assert.ErrorIs(t, err, ErrDocumentNotOwned)
	assert.Equal(t, KindIntegrity, KindOf(err))

	req.DocumentID = int64Ptr(9999)
	_, err = svc.Process(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "Document not found with ID: 9999", err.Error())

	assert.Equal(t, int64(2), countRows(t, db, &models.DocumentReference{}, "system_id = ?", b.Master.SystemID))
}

func TestTriggerFailureRollsBack(t *testing.T) {
	db := setupIdentTestDB(t)
	svc := newTestExpungementService(db, &recordingTrigger{err: errors.New("drs unavailable")})
	s := seedSubject(t, db, subjectFixture{SID: "FL0000060", FBINumber: "123456AB1", Documents: []string{"CAR", "DOC"}})

	req := expungeReq(s.Master.SystemID, "PART_CANCEL")
	req.DocumentID = int64Ptr(s.Docs[0].DocID)
	_, err := svc.Process(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drs unavailable")
	assert.Equal(t, ErrorKind(0), KindOf(err))

	assert.Equal(t, int64(2), countRows(t, db, &models.DocumentReference{}, "system_id = ?", s.Master.SystemID))
	assert.Equal(t, int64(0), countRows(t, db, &models.ExpungementLogEntry{}, "1 = 1"))
	assert.Equal(t, int64(0), countRows(t, db, &models.AuditLog{}, "1 = 1"))
	assert.Equal(t, int64(0), countRows(t, db, &models.OutboxMessage{}, "1 = 1"))
}

func TestExpungementLogIsAppendOnly(t *testing.T) {
	db := setupIdentTestDB(t)
	svc := newTestExpungementService(db, nil)
	s := seedSubject(t, db, subjectFixture{SID: "FL0000070", FBINumber: "123456AB1", Documents: []string{"CAR", "DOC"}})

	req := expungeReq(s.Master.SystemID, "PARTIAL")
	req.DocumentID = int64Ptr(s.Docs[0].DocID)
	result, err := svc.Process(context.Background(), req)
	require.NoError(t, err)

	var entry models.ExpungementLogEntry
	require.NoError(t, db.First(&entry, result.ExpungementID).Error)
	entry.Reason = "CHANGED"
	assert.ErrorIs(t, db.Save(&entry).Error, models.ErrImmutableRecord)
	assert.ErrorIs(t, db.Delete(&entry).Error, models.ErrImmutableRecord)
}

func TestProcessRecordsMetrics(t *testing.T) {
	db := setupIdentTestDB(t)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	svc := NewExpungementService(db, nil, &recordingTrigger{}, nil, m, nil)
	s := seedSubject(t, db, subjectFixture{SID: "FL0000080", FBINumber: "123456AB1", Documents: []string{"CAR", "DOC"}})

	req := expungeReq(s.Master.SystemID, "PARTIAL")
	req.DocumentID = int64Ptr(s.Docs[0].DocID)
	_, err := svc.Process(context.Background(), req)
	require.NoError(t, err)

	// Second call hits the last-criminal rule
	req.DocumentID = int64Ptr(s.Docs[1].DocID)
	_, err = svc.Process(context.Background(), req)
	require.ErrorIs(t, err, ErrPartialLastCriminal)

	_, err = svc.Process(context.Background(), expungeReq(s.Master.SystemID, "PURGE"))
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("PARTIAL", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("PARTIAL", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("UNKNOWN", "rejected")))
}
