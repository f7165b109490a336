// ABOUTME: Tests for the diff decision matrix and target event synthesis
// ABOUTME: Covers all four shouldCopy x mapped combinations and mirrored field handling
package sync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
)

func testDiffConfig() *Config {
	cfg := DefaultConfig()
	cfg.SourceCalendarID = "me@example.com"
	cfg.TargetCalendarID = "mirror@example.com"
	return cfg
}

func sourceEvent() *calendar.Event {
	return &calendar.Event{
		Id:          "src-123",
		Summary:     "Design review",
		Description: "Quarterly design review",
		Location:    "Room 4",
		Status:      "confirmed",
		Start:       &calendar.EventDateTime{DateTime: "2026-03-05T10:00:00Z"},
		End:         &calendar.EventDateTime{DateTime: "2026-03-05T11:00:00Z"},
	}
}

func TestDecideMatrix(t *testing.T) {
	cfg := testDiffConfig()
	src := sourceEvent()

	t.Run("not copyable and unmapped is a no-op", func(t *testing.T) {
		req := Decide(cfg, src, "", false)
		assert.Nil(t, req)
	})

	t.Run("not copyable but mapped deletes the stale mirror", func(t *testing.T) {
		req := Decide(cfg, src, "tgt-abc", false)
		require.NotNil(t, req)
		assert.Equal(t, OpDelete, req.Op)
		assert.Equal(t, "src-123", req.SourceID)
		assert.Equal(t, "tgt-abc", req.TargetID)
		assert.Nil(t, req.Event)
	})

	t.Run("copyable and unmapped creates with a fresh id", func(t *testing.T) {
		req := Decide(cfg, src, "", true)
		require.NotNil(t, req)
		assert.Equal(t, OpCreate, req.Op)
		assert.NotEmpty(t, req.TargetID)
		require.NotNil(t, req.Event)
		assert.Equal(t, req.TargetID, req.Event.Id)
	})

	t.Run("copyable and mapped updates in place", func(t *testing.T) {
		req := Decide(cfg, src, "tgt-abc", true)
		require.NotNil(t, req)
		assert.Equal(t, OpUpdate, req.Op)
		assert.Equal(t, "tgt-abc", req.TargetID)
		require.NotNil(t, req.Event)
		assert.Equal(t, "tgt-abc", req.Event.Id)
	})
}

func TestNewTargetEventID(t *testing.T) {
	id := NewTargetEventID()
	assert.Len(t, id, 32)
	// Google event ids must stay within the base32hex alphabet
	for _, r := range id {
		assert.True(t, (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f'),
			"unexpected character %q in event id", r)
	}
	assert.NotEqual(t, id, NewTargetEventID())
}

func TestBuildTargetEvent(t *testing.T) {
	cfg := testDiffConfig()
	cfg.ColorID = "8"
	cfg.Visibility = "public"
	src := sourceEvent()

	event := BuildTargetEvent(cfg, src, "tgt-xyz")

	assert.Equal(t, "tgt-xyz", event.Id)
	assert.True(t, strings.HasPrefix(event.Summary, cfg.Marker),
		"summary must start with the marker")
	assert.Contains(t, event.Summary, cfg.CopyPrefix)
	assert.Contains(t, event.Summary, "Design review")
	assert.Equal(t, src.Description, event.Description)
	assert.Equal(t, src.Location, event.Location)
	assert.Equal(t, src.Start, event.Start)
	assert.Equal(t, src.End, event.End)
	assert.Equal(t, "confirmed", event.Status)

	assert.False(t, event.GuestsCanModify)
	assert.False(t, event.AnyoneCanAddSelf)
	require.NotNil(t, event.GuestsCanInviteOthers)
	assert.False(t, *event.GuestsCanInviteOthers)
	require.NotNil(t, event.GuestsCanSeeOtherGuests)
	assert.False(t, *event.GuestsCanSeeOtherGuests)
	assert.True(t, event.Locked)

	require.NotNil(t, event.Reminders)
	assert.False(t, event.Reminders.UseDefault)
	assert.Contains(t, event.Reminders.ForceSendFields, "UseDefault")
	assert.Contains(t, event.ForceSendFields, "GuestsCanModify")
	assert.Contains(t, event.ForceSendFields, "AnyoneCanAddSelf")

	assert.Equal(t, "8", event.ColorId)
	assert.Equal(t, "public", event.Visibility)
}

func TestBuildTargetEventDefaultTitle(t *testing.T) {
	cfg := testDiffConfig()
	src := sourceEvent()
	src.Summary = ""

	event := BuildTargetEvent(cfg, src, "tgt-xyz")
	assert.Contains(t, event.Summary, cfg.DefaultTitle)
}

func TestMutationResultApplied(t *testing.T) {
	tests := []struct {
		name    string
		result  MutationResult
		applied bool
	}{
		{"create 200", MutationResult{Op: OpCreate, StatusCode: 200}, true},
		{"update 204", MutationResult{Op: OpUpdate, StatusCode: 204}, true},
		{"create 403", MutationResult{Op: OpCreate, StatusCode: 403}, false},
		{"update 404", MutationResult{Op: OpUpdate, StatusCode: 404}, false},
		{"delete 404 already gone", MutationResult{Op: OpDelete, StatusCode: 404}, true},
		{"delete 410 already gone", MutationResult{Op: OpDelete, StatusCode: 410}, true},
		{"delete 500", MutationResult{Op: OpDelete, StatusCode: 500}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.applied, tt.result.Applied())
		})
	}
}
