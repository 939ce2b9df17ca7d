package services

import (
	"errors"
	"fmt"
	"ident_index_app_go/models"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MasterLocks serializes work on the same system id within this process.
// Across processes the row lock taken by lockMaster does the same job.
type MasterLocks struct {
	mu    sync.Mutex
	locks map[int64]*masterLock
}

type masterLock struct {
	mu   sync.Mutex
	refs int
}

// NewMasterLocks creates an empty lock table
func NewMasterLocks() *MasterLocks {
	return &MasterLocks{locks: make(map[int64]*masterLock)}
}

// Lock blocks until systemID is free and returns its unlock func
func (l *MasterLocks) Lock(systemID int64) func() {
	l.mu.Lock()
	entry, ok := l.locks[systemID]
	if !ok {
		entry = &masterLock{}
		l.locks[systemID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, systemID)
		}
		l.mu.Unlock()
	}
}

// lockMaster loads the master row, holding a row lock on PostgreSQL until tx ends
func lockMaster(tx *gorm.DB, systemID int64) (*models.MasterRecord, error) {
	query := tx
	if tx.Dialector.Name() == "postgres" {
		query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var master models.MasterRecord
	if err := query.Where("system_id = ?", systemID).First(&master).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errSystemIDNotFound(systemID)
		}
		return nil, fmt.Errorf("failed to load master: %w", err)
	}
	return &master, nil
}
