// ABOUTME: Persistence interfaces the engine depends on, plus their SQLite implementations
// ABOUTME: Mapping store, sync state store, pass lock, and run history are injected dependencies
package sync

import (
	"database/sql"
	"time"

	"github.com/harperreed/calmirror/db"
)

// StateSnapshot is the persisted sync position and status. An empty
// Token means the next pass must run full; an empty Status means the
// pair has never synced.
type StateSnapshot struct {
	Token        string
	ErrorCount   int
	Status       string
	ErrorMessage *string
	LastSync     *time.Time
}

// StateStore persists the sync token and consecutive-error counter for
// one calendar pair.
type StateStore interface {
	Get() (StateSnapshot, error)
	SetToken(token string) error
	ClearToken() error
	IncrementErrorCount() error
	ResetErrorCount() error
	SetStatus(status string, errorMsg *string) error
	Clear() error
}

// MappingStore persists source-event-id to target-event-id associations
// for one calendar pair.
type MappingStore interface {
	Get(sourceID string) (string, error)
	Set(sourceID, targetID string) error
	Delete(sourceID string) error
	Count() (int, error)
	Clear() error
}

// Locker guards a pass with a bounded-wait mutual exclusion lock.
type Locker interface {
	Acquire(owner string, ttl, wait time.Duration) error
	Release(owner string) error
}

// RunLog records per-pass history.
type RunLog interface {
	Start(id, mode string) error
	Finish(id, status string, created, updated, deleted int, errorMsg *string) error
}

// Stores bundles the persistence dependencies handed to the engine.
type Stores struct {
	Mappings MappingStore
	State    StateStore
	Locker   Locker
	Runs     RunLog
}

// NewSQLiteStores wires all stores to the shared SQLite database, keyed
// by the pair identity.
func NewSQLiteStores(database *sql.DB, pair string) Stores {
	return Stores{
		Mappings: &sqliteMappingStore{db: database, pair: pair},
		State:    &sqliteStateStore{db: database, pair: pair},
		Locker:   &sqliteLocker{db: database, name: pair},
		Runs:     &sqliteRunLog{db: database, pair: pair},
	}
}

type sqliteMappingStore struct {
	db   *sql.DB
	pair string
}

func (s *sqliteMappingStore) Get(sourceID string) (string, error) {
	return db.GetTargetID(s.db, s.pair, sourceID)
}

func (s *sqliteMappingStore) Set(sourceID, targetID string) error {
	return db.SetMapping(s.db, s.pair, sourceID, targetID)
}

func (s *sqliteMappingStore) Delete(sourceID string) error {
	return db.DeleteMapping(s.db, s.pair, sourceID)
}

func (s *sqliteMappingStore) Count() (int, error) {
	return db.CountMappings(s.db, s.pair)
}

func (s *sqliteMappingStore) Clear() error {
	return db.ClearMappings(s.db, s.pair)
}

type sqliteStateStore struct {
	db   *sql.DB
	pair string
}

func (s *sqliteStateStore) Get() (StateSnapshot, error) {
	state, err := db.GetSyncState(s.db, s.pair)
	if err != nil {
		return StateSnapshot{}, err
	}
	if state == nil {
		return StateSnapshot{}, nil
	}

	snap := StateSnapshot{
		ErrorCount:   state.ErrorCount,
		Status:       state.Status,
		ErrorMessage: state.ErrorMessage,
		LastSync:     state.LastSyncTime,
	}
	if state.SyncToken != nil {
		snap.Token = *state.SyncToken
	}
	return snap, nil
}

func (s *sqliteStateStore) SetToken(token string) error {
	return db.UpdateSyncToken(s.db, s.pair, token)
}

func (s *sqliteStateStore) ClearToken() error {
	return db.ClearSyncToken(s.db, s.pair)
}

func (s *sqliteStateStore) IncrementErrorCount() error {
	return db.IncrementErrorCount(s.db, s.pair)
}

func (s *sqliteStateStore) ResetErrorCount() error {
	return db.ResetErrorCount(s.db, s.pair)
}

func (s *sqliteStateStore) SetStatus(status string, errorMsg *string) error {
	return db.UpdateSyncStatus(s.db, s.pair, status, errorMsg)
}

func (s *sqliteStateStore) Clear() error {
	return db.ClearSyncState(s.db, s.pair)
}

type sqliteLocker struct {
	db   *sql.DB
	name string
}

func (l *sqliteLocker) Acquire(owner string, ttl, wait time.Duration) error {
	return db.AcquireLock(l.db, l.name, owner, ttl, wait)
}

func (l *sqliteLocker) Release(owner string) error {
	return db.ReleaseLock(l.db, l.name, owner)
}

type sqliteRunLog struct {
	db   *sql.DB
	pair string
}

func (r *sqliteRunLog) Start(id, mode string) error {
	return db.CreateSyncRun(r.db, id, r.pair, mode)
}

func (r *sqliteRunLog) Finish(id, status string, created, updated, deleted int, errorMsg *string) error {
	return db.FinishSyncRun(r.db, id, status, created, updated, deleted, errorMsg)
}
