// ABOUTME: Database operations for the source-to-target event id mapping table
// ABOUTME: Mappings are namespaced by the (source, target) calendar pair identity
package db

import (
	"database/sql"
	"fmt"
)

// Mapping associates one mirrored source event with its target calendar copy.
type Mapping struct {
	Pair     string
	SourceID string
	TargetID string
}

// GetTargetID looks up the target event id for a source event.
// Returns ("", nil) when the source event has never been mirrored.
func GetTargetID(db *sql.DB, pair, sourceID string) (string, error) {
	var targetID string
	err := db.QueryRow(`
		SELECT target_id FROM event_mappings
		WHERE pair = ? AND source_id = ?
	`, pair, sourceID).Scan(&targetID)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get mapping: %w", err)
	}

	return targetID, nil
}

// SetMapping inserts or replaces the mapping for a source event.
func SetMapping(db *sql.DB, pair, sourceID, targetID string) error {
	_, err := db.Exec(`
		INSERT INTO event_mappings (pair, source_id, target_id, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(pair, source_id) DO UPDATE SET
			target_id = excluded.target_id,
			updated_at = CURRENT_TIMESTAMP
	`, pair, sourceID, targetID)

	if err != nil {
		return fmt.Errorf("failed to set mapping: %w", err)
	}

	return nil
}

// DeleteMapping removes the mapping for a source event.
func DeleteMapping(db *sql.DB, pair, sourceID string) error {
	_, err := db.Exec(`
		DELETE FROM event_mappings WHERE pair = ? AND source_id = ?
	`, pair, sourceID)

	if err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}

	return nil
}

// AllMappings returns every mapping for a pair, ordered by source id.
func AllMappings(db *sql.DB, pair string) ([]Mapping, error) {
	rows, err := db.Query(`
		SELECT pair, source_id, target_id FROM event_mappings
		WHERE pair = ?
		ORDER BY source_id
	`, pair)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []Mapping
	for rows.Next() {
		var m Mapping
		if err := rows.Scan(&m.Pair, &m.SourceID, &m.TargetID); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		mappings = append(mappings, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mappings: %w", err)
	}

	return mappings, nil
}

// CountMappings returns the number of mirrored events for a pair.
func CountMappings(db *sql.DB, pair string) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM event_mappings WHERE pair = ?
	`, pair).Scan(&count)

	if err != nil {
		return 0, fmt.Errorf("failed to count mappings: %w", err)
	}

	return count, nil
}

// ClearMappings removes all mappings for a pair (full-sync reset).
func ClearMappings(db *sql.DB, pair string) error {
	_, err := db.Exec(`DELETE FROM event_mappings WHERE pair = ?`, pair)
	if err != nil {
		return fmt.Errorf("failed to clear mappings: %w", err)
	}

	return nil
}
