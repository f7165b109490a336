// ABOUTME: Diff engine deciding the mutation for one source event
// ABOUTME: Covers the shouldCopy x mapping-exists matrix and target event synthesis
package sync

import (
	"strings"

	"github.com/google/uuid"
	"google.golang.org/api/calendar/v3"
)

// Op is the kind of a mutation request.
type Op int

const (
	OpCreate Op = iota
	OpUpdate
	OpDelete
)

// String returns the lowercase operation name.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// MutationRequest is one queued change against the target calendar. It is
// never mutated after creation and consumed exactly once by the executor.
// Event is nil for deletes; SourceID is empty for marker-based deletes
// queued by the full-sync delete phase, which have no mapping to drop.
type MutationRequest struct {
	Op       Op
	SourceID string
	TargetID string
	Event    *calendar.Event
}

// MutationResult is the per-request outcome of a batched flush.
type MutationResult struct {
	Op         Op
	SourceID   string
	TargetID   string
	StatusCode int
}

// Applied reports whether the mutation took effect on the target
// calendar. Deleting an already-gone event counts as applied.
func (r MutationResult) Applied() bool {
	if r.StatusCode >= 200 && r.StatusCode < 300 {
		return true
	}
	if r.Op == OpDelete && (r.StatusCode == 404 || r.StatusCode == 410) {
		return true
	}
	return false
}

// Decide maps one source event onto the required mutation. targetID is
// the previously mapped target event id ("" when unmapped). Returns nil
// when no mutation is needed.
func Decide(cfg *Config, src *calendar.Event, targetID string, shouldCopy bool) *MutationRequest {
	mapped := targetID != ""

	switch {
	case !shouldCopy && !mapped:
		// Never mirrored, nothing to clean up
		return nil

	case !shouldCopy && mapped:
		// Stale mirror of an event that no longer qualifies
		return &MutationRequest{
			Op:       OpDelete,
			SourceID: src.Id,
			TargetID: targetID,
		}

	case shouldCopy && !mapped:
		id := NewTargetEventID()
		return &MutationRequest{
			Op:       OpCreate,
			SourceID: src.Id,
			TargetID: id,
			Event:    BuildTargetEvent(cfg, src, id),
		}

	default: // shouldCopy && mapped
		return &MutationRequest{
			Op:       OpUpdate,
			SourceID: src.Id,
			TargetID: targetID,
			Event:    BuildTargetEvent(cfg, src, targetID),
		}
	}
}

// NewTargetEventID generates a fresh opaque event id. Google event ids
// must use the base32hex alphabet, which hex-encoded UUIDs satisfy.
func NewTargetEventID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// BuildTargetEvent derives the mirrored event written to the target
// calendar. All guest-interaction flags are pinned off so the mirror
// never notifies or exposes attendees.
func BuildTargetEvent(cfg *Config, src *calendar.Event, targetID string) *calendar.Event {
	off := false

	event := &calendar.Event{
		Id:          targetID,
		Summary:     cfg.MirrorTitle(src.Summary),
		Description: src.Description,
		Location:    src.Location,
		Start:       src.Start,
		End:         src.End,
		Status:      src.Status,

		GuestsCanModify:         false,
		GuestsCanInviteOthers:   &off,
		GuestsCanSeeOtherGuests: &off,
		AnyoneCanAddSelf:        false,
		Locked:                  true,

		Reminders: &calendar.EventReminders{
			UseDefault:      false,
			ForceSendFields: []string{"UseDefault"},
		},

		// False booleans are zero values and would be dropped from the
		// JSON body without ForceSendFields
		ForceSendFields: []string{"GuestsCanModify", "AnyoneCanAddSelf"},
	}

	if cfg.ColorID != "" {
		event.ColorId = cfg.ColorID
	}
	if cfg.Visibility != "" {
		event.Visibility = cfg.Visibility
	}

	return event
}
