package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupModelsTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(All()...))
	return db
}

func TestAuditLogImmutability(t *testing.T) {
	db := setupModelsTestDB(t)

	entry := AuditLog{UserName: "jdoe", Action: AuditActionCancel, TargetSID: "1234567"}
	require.NoError(t, db.Create(&entry).Error)
	assert.NotEmpty(t, entry.ID)

	t.Run("update rejected", func(t *testing.T) {
		err := db.Model(&entry).Update("details", "tampered").Error
		assert.ErrorIs(t, err, ErrImmutableRecord)
	})

	t.Run("delete rejected", func(t *testing.T) {
		err := db.Delete(&entry).Error
		assert.ErrorIs(t, err, ErrImmutableRecord)
	})
}

func TestExpungementLogImmutability(t *testing.T) {
	db := setupModelsTestDB(t)

	entry := ExpungementLogEntry{SID: "1234567", SystemID: 1, ProcessType: ProcessTypeExpungement}
	require.NoError(t, db.Create(&entry).Error)

	assert.ErrorIs(t, db.Model(&entry).Update("reason", "x").Error, ErrImmutableRecord)
	assert.ErrorIs(t, db.Delete(&entry).Error, ErrImmutableRecord)

	var count int64
	db.Model(&ExpungementLogEntry{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestAuditLogChanges(t *testing.T) {
	entry := AuditLog{
		OldValues: `{"race":"W","sex":"M","comments":"old"}`,
		NewValues: `{"race":"B","sex":"M","comments":"new"}`,
	}

	changes := entry.Changes()
	require.Len(t, changes, 2)
	assert.Equal(t, "comments", changes[0].Field)
	assert.Equal(t, "race", changes[1].Field)
	assert.Equal(t, "W", changes[1].Old)
	assert.Equal(t, "B", changes[1].New)
}

func TestMasterRecordIndicators(t *testing.T) {
	blank := "  "
	fbi := "123456AB1"

	tests := []struct {
		name    string
		master  MasterRecord
		hasFBI  bool
		rapback bool
		iii     bool
	}{
		{"empty", MasterRecord{}, false, false, false},
		{"blank fbi", MasterRecord{FBINumber: &blank}, false, false, false},
		{"rapback R", MasterRecord{FBINumber: &fbi, RapbackIndicator: "R"}, true, true, false},
		{"rapback y lower", MasterRecord{RapbackIndicator: "y"}, false, true, false},
		{"rapback N", MasterRecord{RapbackIndicator: "N"}, false, false, false},
		{"iii single state", MasterRecord{IIIStatus: "S"}, false, false, true},
		{"iii multi state", MasterRecord{IIIStatus: "M"}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.hasFBI, tt.master.HasFBINumber())
			assert.Equal(t, tt.rapback, tt.master.RapbackSubscribed())
			assert.Equal(t, tt.iii, tt.master.IIIEnrolled())
		})
	}
}

func TestRecordTypeLegacyCode(t *testing.T) {
	assert.Equal(t, " ", RecordTypeCriminal.LegacyCode())
	assert.Equal(t, "N", RecordTypeNonCriminal.LegacyCode())
	assert.Equal(t, "T", RecordTypePending.LegacyCode())
	assert.Equal(t, "J", RecordTypeJuvenile.LegacyCode())
}

func TestOutboxMessageDefaults(t *testing.T) {
	db := setupModelsTestDB(t)

	msg := OutboxMessage{Topic: OutboxTopicDRS, AggregateKey: "1234567", EventType: "EXPUNGEMENT"}
	require.NoError(t, db.Create(&msg).Error)

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, OutboxStatusPending, msg.Status)
	assert.False(t, msg.NextAttemptAt.IsZero())
}
