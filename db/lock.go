// ABOUTME: Lease-based mutual exclusion lock stored in SQLite
// ABOUTME: Guards a sync pass against overlapping runs with a bounded acquisition wait
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrLockTimeout is returned when the lock cannot be acquired within the
// bounded wait. No state has been mutated; the caller may retry later.
var ErrLockTimeout = errors.New("timed out waiting for sync lock")

const lockPollInterval = 2 * time.Second

// AcquireLock takes the named lease for owner, waiting up to wait for a
// holder to release or for a stale lease to expire. The lease lasts ttl;
// a crashed process therefore blocks other runs for at most ttl.
func AcquireLock(db *sql.DB, name, owner string, ttl, wait time.Duration) error {
	deadline := time.Now().Add(wait)

	for {
		ok, err := tryAcquireLock(db, name, owner, ttl)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		if time.Now().After(deadline) {
			return ErrLockTimeout
		}

		sleep := lockPollInterval
		if remaining := time.Until(deadline); remaining < sleep {
			sleep = remaining
		}
		time.Sleep(sleep)
	}
}

func tryAcquireLock(db *sql.DB, name, owner string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	expires := now.Add(ttl)

	// Take the lease if the row is free, expired, or already ours.
	res, err := db.Exec(`
		INSERT INTO sync_locks (name, owner, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			owner = excluded.owner,
			expires_at = excluded.expires_at
		WHERE sync_locks.owner = excluded.owner OR sync_locks.expires_at <= ?
	`, name, owner, expires, now)
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check lock acquisition: %w", err)
	}

	return affected > 0, nil
}

// ReleaseLock drops the lease if still held by owner. Releasing a lease
// that expired and was taken over is a no-op.
func ReleaseLock(db *sql.DB, name, owner string) error {
	_, err := db.Exec(`
		DELETE FROM sync_locks WHERE name = ? AND owner = ?
	`, name, owner)

	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	return nil
}
