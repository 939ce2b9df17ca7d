package services

import (
	"fmt"
	"ident_index_app_go/models"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupIdentTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique shared-cache name per test; a single connection keeps it alive and serializes writers
	dbName := "ident_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, testDB.AutoMigrate(models.All()...))
	return testDB
}

// subjectFixture describes a subject to insert for a test
type subjectFixture struct {
	SID         string
	FBINumber   string
	Rapback     string
	IIIStatus   string
	Fingerprint string
	Comments    string
	Documents   []string // document types, dated one day apart from 2020-01-01
}

type seededSubject struct {
	Master  models.MasterRecord
	Primary models.NameRecord
	Docs    []models.DocumentReference
}

func seedSubject(t *testing.T, db *gorm.DB, fx subjectFixture) *seededSubject {
	t.Helper()

	master := models.MasterRecord{
		SID:              fx.SID,
		RecordType:       models.RecordTypeCriminal,
		RapbackIndicator: fx.Rapback,
		IIIStatus:        fx.IIIStatus,
		Race:             "W",
		Sex:              "M",
		Height:           "510",
		Weight:           "180",
		EyeColor:         "BRO",
		HairColor:        "BLK",
		Comments:         fx.Comments,
	}
	if fx.FBINumber != "" {
		fbi := fx.FBINumber
		master.FBINumber = &fbi
	}
	require.NoError(t, db.Create(&master).Error)

	dob := time.Date(1980, 7, 4, 0, 0, 0, 0, time.UTC)
	primary := models.NameRecord{
		SystemID:       master.SystemID,
		NameType:       models.NameTypePrimary,
		LastName:       "SMITH",
		FirstName:      "JOHN",
		MiddleName:     "QUINCY",
		MiddleInitial:  "Q",
		DateOfBirth:    &dob,
		Race:           "W",
		Sex:            "M",
		SoundexCode:    "S530",
		SequenceNumber: 1,
	}
	if fx.Fingerprint != "" {
		fp := fx.Fingerprint
		primary.FingerprintCode = &fp
	}
	require.NoError(t, db.Create(&primary).Error)

	require.NoError(t, db.Create(&models.Address{
		SystemID:     master.SystemID,
		StreetNumber: "100",
		StreetName:   "MAIN",
		City:         "SPRINGFIELD",
		State:        "IL",
		ZipCode:      "62701",
		IsCurrent:    true,
	}).Error)
	require.NoError(t, db.Create(&models.SSNRecord{SystemID: master.SystemID, SSN: "123456789"}).Error)

	subject := &seededSubject{Master: master, Primary: primary}
	for i, docType := range fx.Documents {
		date := time.Date(2020, 1, 1+i, 0, 0, 0, 0, time.UTC)
		doc := models.DocumentReference{
			SystemID:       master.SystemID,
			DocumentType:   docType,
			Category:       DetermineCategory(docType),
			DocumentNumber: fmt.Sprintf("N%d", i+1),
			DocumentDate:   &date,
		}
		require.NoError(t, db.Create(&doc).Error)
		subject.Docs = append(subject.Docs, doc)
	}
	return subject
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func reloadMaster(t *testing.T, db *gorm.DB, systemID int64) models.MasterRecord {
	t.Helper()
	var m models.MasterRecord
	require.NoError(t, db.First(&m, "system_id = ?", systemID).Error)
	return m
}

func outboxMessages(t *testing.T, db *gorm.DB, topic string) []models.OutboxMessage {
	t.Helper()
	var msgs []models.OutboxMessage
	require.NoError(t, db.Where("topic = ?", topic).Order("created_at").Find(&msgs).Error)
	return msgs
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }
