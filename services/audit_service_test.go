package services

import (
	"encoding/json"
	"ident_index_app_go/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogChange(t *testing.T) {
	db := setupIdentTestDB(t)
	core, logs := observer.New(zap.InfoLevel)
	svc := NewAuditService(zap.New(core))
	target := &models.MasterRecord{SID: "FL0000400", SystemID: 7}

	actor := AuditContext{UserName: "auditor", IPAddress: "192.168.1.5"}
	oldVals := map[string]interface{}{"race": "W"}
	newVals := map[string]interface{}{"race": "B"}
	require.NoError(t, svc.LogChange(db, actor, models.AuditActionUpdateDemographics, target, "Updated SID: FL0000400", oldVals, newVals))

	var entry models.AuditLog
	require.NoError(t, db.First(&entry, "target_sid = ?", "FL0000400").Error)
	assert.Equal(t, "auditor", entry.UserName)
	assert.Equal(t, "192.168.1.5", entry.IPAddress)
	assert.Equal(t, int64(7), entry.SystemID)
	assert.Equal(t, models.AuditActionUpdateDemographics, entry.Action)

	changes := entry.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, "race", changes[0].Field)
	assert.Equal(t, "W", changes[0].Old)
	assert.Equal(t, "B", changes[0].New)

	msgs := outboxMessages(t, db, models.OutboxTopicAudit)
	require.Len(t, msgs, 1)
	assert.Equal(t, "UPDATE_DEMOGRAPHICS", msgs[0].EventType)
	var payload auditPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &payload))
	assert.Equal(t, entry.ID, payload.ID)
	assert.Equal(t, "FL0000400", payload.TargetSID)

	require.Equal(t, 1, logs.FilterMessage("audit").Len())
	assert.Equal(t, "auditor", logs.All()[0].ContextMap()["user"])
}

func TestAuditLogIsImmutable(t *testing.T) {
	db := setupIdentTestDB(t)
	svc := NewAuditService(nil)
	require.NoError(t, svc.LogAction(db, AuditContext{UserName: "u"}, models.AuditActionCancel, nil, "x"))

	var entry models.AuditLog
	require.NoError(t, db.First(&entry).Error)
	entry.Details = "changed"
	assert.ErrorIs(t, db.Save(&entry).Error, models.ErrImmutableRecord)
	assert.ErrorIs(t, db.Delete(&entry).Error, models.ErrImmutableRecord)
}

func TestListAuditLogs(t *testing.T) {
	db := setupIdentTestDB(t)
	svc := NewAuditService(nil)
	a := &models.MasterRecord{SID: "FL0000401", SystemID: 1}
	b := &models.MasterRecord{SID: "FL0000402", SystemID: 2}

	require.NoError(t, svc.LogAction(db, AuditContext{UserName: "alice"}, models.AuditActionPartial, a, "Deleted Doc ID: 1"))
	require.NoError(t, svc.LogAction(db, AuditContext{UserName: "bob"}, models.AuditActionCancel, a, "Deleted Doc ID: 2"))
	require.NoError(t, svc.LogAction(db, AuditContext{UserName: "alice"}, models.AuditActionDowngrade, b, "Downgraded SID: FL0000402"))

	logs, total, err := ListAuditLogs(db, AuditLogFilters{UserName: "alice"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, logs, 2)

	logs, total, err = ListAuditLogs(db, AuditLogFilters{SearchQuery: "Doc ID"}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, logs, 1)

	_, total, err = ListAuditLogs(db, AuditLogFilters{Action: string(models.AuditActionDowngrade)}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = ListAuditLogs(db, AuditLogFilters{DateFrom: time.Now().Add(time.Hour)}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	history, err := GetSubjectAuditHistory(db, "FL0000401")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
