// ABOUTME: Sync orchestrator running one locked pass end to end
// ABOUTME: Selects full vs incremental mode, iterates pages, flushes once, commits state
package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const (
	// lockWait bounds how long a pass waits for a concurrent run to
	// finish before giving up with ErrLockTimeout.
	lockWait = 90 * time.Second

	// lockTTL is the lease length; a crashed pass blocks the pair for
	// at most this long.
	lockTTL = 10 * time.Minute
)

// RunStats summarizes one completed pass.
type RunStats struct {
	Mode     string
	Examined int
	Skipped  int
	Created  int
	Updated  int
	Deleted  int
	Failed   int
}

// Engine is the sync orchestrator for one calendar pair.
type Engine struct {
	cfg      *Config
	service  EventService
	stores   Stores
	executor *Executor
	now      func() time.Time
	lockWait time.Duration
	lockTTL  time.Duration
}

// NewEngine builds an engine from explicit dependencies.
func NewEngine(cfg *Config, service EventService, stores Stores) *Engine {
	return &Engine{
		cfg:      cfg,
		service:  service,
		stores:   stores,
		executor: NewExecutor(service, stores.Mappings),
		now:      time.Now,
		lockWait: lockWait,
		lockTTL:  lockTTL,
	}
}

// Run executes exactly one sync pass under the pair's exclusive lock.
// The lock is released on every exit path.
func (e *Engine) Run(ctx context.Context) (*RunStats, error) {
	owner := uuid.New().String()
	if err := e.stores.Locker.Acquire(owner, e.lockTTL, e.lockWait); err != nil {
		return nil, err
	}
	defer func() { _ = e.stores.Locker.Release(owner) }()

	if e.cfg.ForceFullSync {
		fmt.Println("  → Force full sync: clearing mappings and sync state...")
		if err := e.stores.Mappings.Clear(); err != nil {
			return nil, err
		}
		if err := e.stores.State.Clear(); err != nil {
			return nil, err
		}
	}

	snap, err := e.stores.State.Get()
	if err != nil {
		return nil, err
	}

	mode := e.selectMode(snap)
	if mode == "full" && snap.Token != "" {
		// Threshold reached: discard the stale cursor and self-heal
		fmt.Printf("  → %d consecutive errors, discarding sync token...\n", snap.ErrorCount)
		if err := e.stores.State.ClearToken(); err != nil {
			return nil, err
		}
		if err := e.stores.State.ResetErrorCount(); err != nil {
			return nil, err
		}
		snap.Token = ""
	}

	runID := ulid.Make().String()
	if err := e.stores.Runs.Start(runID, mode); err != nil {
		return nil, err
	}
	if err := e.stores.State.SetStatus("syncing", nil); err != nil {
		return nil, err
	}

	var stats *RunStats
	var newToken string

	switch mode {
	case "delete-only":
		stats, newToken, err = e.fullSync(ctx, true)
	case "full":
		stats, newToken, err = e.fullSync(ctx, false)
	default:
		stats, newToken, err = e.incrementalSync(ctx, snap.Token)
		if errors.Is(err, ErrSyncTokenInvalid) {
			fmt.Println("  → Sync token invalid, falling back to full sync...")
			mode = "full"
			stats, newToken, err = e.fullSync(ctx, false)
		}
	}

	if err != nil {
		return stats, e.failPass(runID, stats, err)
	}

	// Commit the pass outcome
	switch {
	case mode == "delete-only":
		// The mirror is gone; the cursor no longer describes it
		if err := e.stores.State.ClearToken(); err != nil {
			return stats, e.failPass(runID, stats, err)
		}
		if err := e.stores.State.SetStatus("idle", nil); err != nil {
			return stats, e.failPass(runID, stats, err)
		}
	case newToken != "":
		if err := e.stores.State.SetToken(newToken); err != nil {
			return stats, e.failPass(runID, stats, err)
		}
	default:
		if err := e.stores.State.SetStatus("idle", nil); err != nil {
			return stats, e.failPass(runID, stats, err)
		}
	}

	stats.Mode = mode
	if err := e.stores.Runs.Finish(runID, "ok", stats.Created, stats.Updated, stats.Deleted, nil); err != nil {
		return stats, err
	}

	fmt.Printf("\n✓ %s sync: %d created, %d updated, %d deleted\n", mode, stats.Created, stats.Updated, stats.Deleted)
	return stats, nil
}

// selectMode implements the state machine for choosing the pass mode.
func (e *Engine) selectMode(snap StateSnapshot) string {
	switch {
	case e.cfg.DeleteOnly:
		return "delete-only"
	case snap.Token == "":
		return "full"
	case snap.ErrorCount >= e.cfg.ErrorThreshold:
		return "full"
	default:
		return "incremental"
	}
}

// failPass records the failure and applies the recovery rule for its
// kind: partial batch failures defensively invalidate the token, other
// failures bump the consecutive-error counter.
func (e *Engine) failPass(runID string, stats *RunStats, err error) error {
	if errors.Is(err, ErrPartialBatch) {
		_ = e.stores.State.ClearToken()
	} else {
		_ = e.stores.State.IncrementErrorCount()
	}

	msg := err.Error()
	_ = e.stores.State.SetStatus("error", &msg)

	var created, updated, deleted int
	if stats != nil {
		created, updated, deleted = stats.Created, stats.Updated, stats.Deleted
	}
	_ = e.stores.Runs.Finish(runID, "error", created, updated, deleted, &msg)

	return err
}

// fullSync deletes every previously mirrored event inside the window,
// then (unless deleteOnly) recreates all currently qualifying source
// events. All mutations flush in one batched call at the end.
func (e *Engine) fullSync(ctx context.Context, deleteOnly bool) (*RunStats, string, error) {
	stats := &RunStats{}
	filter := NewFilter(e.cfg, e.now())
	windowStart, windowEnd := e.cfg.Window(e.now())

	var queue []MutationRequest

	// Delete phase: marker-tagged mirrors in the target calendar
	fmt.Println("  → Full sync: collecting mirrored events for removal...")
	pageToken := ""
	for {
		page, err := e.service.ListPage(ctx, e.cfg.TargetCalendarID, ListQuery{
			TimeMin:   windowStart,
			TimeMax:   windowEnd,
			Search:    e.cfg.Marker,
			PageToken: pageToken,
		})
		if err != nil {
			return stats, "", err
		}

		for _, item := range page.Items {
			// The listing query already filtered on the marker, but the
			// query filter is not authoritative: never delete an event
			// whose summary does not carry it
			if !strings.Contains(item.Summary, e.cfg.Marker) {
				continue
			}
			queue = append(queue, MutationRequest{Op: OpDelete, TargetID: item.Id})
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	// Full sync rebuilds the mirror from scratch
	if err := e.stores.Mappings.Clear(); err != nil {
		return stats, "", err
	}

	newToken := ""
	skipCounts := make(map[string]int)

	if !deleteOnly {
		fmt.Println("  → Full sync: listing source events...")
		pageToken = ""
		for {
			page, err := e.service.ListPage(ctx, e.cfg.SourceCalendarID, ListQuery{
				TimeMin:   windowStart,
				TimeMax:   windowEnd,
				PageToken: pageToken,
			})
			if err != nil {
				return stats, "", err
			}

			for _, event := range page.Items {
				stats.Examined++
				excluded, reason := filter.Exclude(event)
				if excluded {
					skipCounts[reason]++
					stats.Skipped++
					continue
				}
				// Mappings were just cleared, every copy is a create
				queue = append(queue, *Decide(e.cfg, event, "", true))
			}

			pageToken = page.NextPageToken
			if pageToken == "" {
				newToken = page.NextSyncToken
				break
			}
		}
	}

	flush, err := e.executor.Execute(ctx, e.cfg.TargetCalendarID, queue)
	stats.Created, stats.Updated, stats.Deleted, stats.Failed = flush.Created, flush.Updated, flush.Deleted, flush.Failed
	if err != nil {
		return stats, "", err
	}

	printSkipSummary(skipCounts)
	return stats, newToken, nil
}

// incrementalSync processes only events changed since the stored sync
// token and reconciles each against the mapping store.
func (e *Engine) incrementalSync(ctx context.Context, token string) (*RunStats, string, error) {
	stats := &RunStats{}
	filter := NewFilter(e.cfg, e.now())

	fmt.Println("  → Incremental sync...")

	var queue []MutationRequest
	skipCounts := make(map[string]int)

	newToken := ""
	pageToken := ""
	for {
		page, err := e.service.ListPage(ctx, e.cfg.SourceCalendarID, ListQuery{
			SyncToken: token,
			PageToken: pageToken,
		})
		if err != nil {
			return stats, "", err
		}

		for _, event := range page.Items {
			stats.Examined++

			excluded, reason := filter.Exclude(event)
			targetID, err := e.stores.Mappings.Get(event.Id)
			if err != nil {
				return stats, "", err
			}

			req := Decide(e.cfg, event, targetID, !excluded)
			if req == nil {
				skipCounts[reason]++
				stats.Skipped++
				continue
			}
			queue = append(queue, *req)
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			newToken = page.NextSyncToken
			break
		}
	}

	flush, err := e.executor.Execute(ctx, e.cfg.TargetCalendarID, queue)
	stats.Created, stats.Updated, stats.Deleted, stats.Failed = flush.Created, flush.Updated, flush.Deleted, flush.Failed
	if err != nil {
		return stats, "", err
	}

	printSkipSummary(skipCounts)
	return stats, newToken, nil
}

func printSkipSummary(skipCounts map[string]int) {
	for reason, count := range skipCounts {
		fmt.Printf("  ✓ Skipped %d %s event%s\n", count, reason, pluralize(count))
	}
}

// pluralize returns "s" if count != 1, otherwise "".
func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}
