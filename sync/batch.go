// ABOUTME: Batch executor flushing queued mutations in a single batched call
// ABOUTME: Detects partial failure and commits mappings only for attributable outcomes
package sync

import (
	"context"
	"errors"
	"fmt"
)

// ErrPartialBatch signals that the batched mutation returned fewer
// results than were submitted. Individual outcomes are not reliably
// attributable, so the caller invalidates the sync token and lets the
// next pass resync from scratch.
var ErrPartialBatch = errors.New("batch mutation returned fewer results than requested")

// FlushStats counts the outcome of one flush.
type FlushStats struct {
	Created int
	Updated int
	Deleted int
	Failed  int
}

// Executor accumulates nothing itself; the engine builds the request
// list for the whole pass and flushes it here exactly once.
type Executor struct {
	service  EventService
	mappings MappingStore
}

// NewExecutor creates a batch executor committing into mappings.
func NewExecutor(service EventService, mappings MappingStore) *Executor {
	return &Executor{service: service, mappings: mappings}
}

// Execute submits all requests as a single batched call against
// calendarID. A no-op on an empty queue. On partial failure no mapping
// commits happen and ErrPartialBatch is returned alongside the stats.
func (x *Executor) Execute(ctx context.Context, calendarID string, reqs []MutationRequest) (FlushStats, error) {
	var stats FlushStats
	if len(reqs) == 0 {
		return stats, nil
	}

	results, err := x.service.BatchMutate(ctx, calendarID, reqs)
	if err != nil {
		return stats, fmt.Errorf("batch flush failed: %w", err)
	}

	if len(results) != len(reqs) {
		return stats, fmt.Errorf("submitted %d requests, got %d results: %w", len(reqs), len(results), ErrPartialBatch)
	}

	for _, result := range results {
		if !result.Applied() {
			stats.Failed++
			continue
		}

		switch result.Op {
		case OpCreate:
			stats.Created++
			if err := x.mappings.Set(result.SourceID, result.TargetID); err != nil {
				return stats, fmt.Errorf("failed to commit mapping: %w", err)
			}
		case OpUpdate:
			stats.Updated++
		case OpDelete:
			stats.Deleted++
			// Marker-based deletes from the full-sync delete phase carry
			// no source id; the mapping reset handles those
			if result.SourceID != "" {
				if err := x.mappings.Delete(result.SourceID); err != nil {
					return stats, fmt.Errorf("failed to drop mapping: %w", err)
				}
			}
		}
	}

	return stats, nil
}
