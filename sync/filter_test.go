// ABOUTME: Tests for the exclusion-rule filter pipeline
// ABOUTME: One event per rule plus window boundary and all-day edge cases
package sync

import (
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"
)

func testFilterConfig() *Config {
	cfg := DefaultConfig()
	cfg.SourceCalendarID = "me@example.com"
	cfg.TargetCalendarID = "mirror@example.com"
	cfg.SkipSummaryContains = []string{"[mirror]"}
	cfg.PropertyFilters = map[string][]string{
		"extendedProperties.private.origin": {"calmirror"},
	}
	return cfg
}

// fixedNow anchors the window at a known instant: Wednesday noon.
var fixedNow = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

func timedEvent(start, end time.Time) *calendar.Event {
	return &calendar.Event{
		Id:      "evt-1",
		Summary: "Team standup",
		Status:  "confirmed",
		Start:   &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}
}

// includedEvent builds an event that passes every rule.
func includedEvent() *calendar.Event {
	return timedEvent(fixedNow.Add(24*time.Hour), fixedNow.Add(25*time.Hour))
}

func TestFilterRules(t *testing.T) {
	cfg := testFilterConfig()
	filter := NewFilter(cfg, fixedNow)

	tests := []struct {
		name    string
		mutate  func(*calendar.Event)
		exclude bool
		reason  string
	}{
		{
			name:    "clean event passes",
			mutate:  func(e *calendar.Event) {},
			exclude: false,
		},
		{
			name:    "cancelled status",
			mutate:  func(e *calendar.Event) { e.Status = "cancelled" },
			exclude: true,
			reason:  "cancelled",
		},
		{
			name:    "transparent event",
			mutate:  func(e *calendar.Event) { e.Transparency = "transparent" },
			exclude: true,
			reason:  "non-blocking",
		},
		{
			name:    "private visibility",
			mutate:  func(e *calendar.Event) { e.Visibility = "private" },
			exclude: true,
			reason:  "private",
		},
		{
			name:    "confidential visibility",
			mutate:  func(e *calendar.Event) { e.Visibility = "confidential" },
			exclude: true,
			reason:  "confidential",
		},
		{
			name: "declined by source identity",
			mutate: func(e *calendar.Event) {
				e.Attendees = []*calendar.EventAttendee{
					{Email: "ME@example.com", ResponseStatus: "declined"},
				}
			},
			exclude: true,
			reason:  "declined",
		},
		{
			name: "declined via self flag",
			mutate: func(e *calendar.Event) {
				e.Attendees = []*calendar.EventAttendee{
					{Email: "other@example.com", Self: true, ResponseStatus: "declined"},
				}
			},
			exclude: true,
			reason:  "declined",
		},
		{
			name: "accepted attendance passes",
			mutate: func(e *calendar.Event) {
				e.Attendees = []*calendar.EventAttendee{
					{Email: "me@example.com", ResponseStatus: "accepted"},
				}
			},
			exclude: false,
		},
		{
			name:    "forbidden summary substring",
			mutate:  func(e *calendar.Event) { e.Summary = "[mirror] Team standup" },
			exclude: true,
			reason:  "summary filter",
		},
		{
			name: "property filter on extended properties",
			mutate: func(e *calendar.Event) {
				e.ExtendedProperties = &calendar.EventExtendedProperties{
					Private: map[string]string{"origin": "calmirror-v2"},
				}
			},
			exclude: true,
			reason:  "property filter (extendedProperties.private.origin)",
		},
		{
			name:    "nil event",
			mutate:  nil,
			exclude: true,
			reason:  "nil event",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var event *calendar.Event
			if tt.mutate != nil {
				event = includedEvent()
				tt.mutate(event)
			}

			excluded, reason := filter.Exclude(event)
			if excluded != tt.exclude {
				t.Errorf("expected exclude=%v, got %v (reason %q)", tt.exclude, excluded, reason)
			}
			if tt.exclude && reason != tt.reason {
				t.Errorf("expected reason %q, got %q", tt.reason, reason)
			}
		})
	}
}

func TestFilterWindowBoundaries(t *testing.T) {
	cfg := testFilterConfig()
	filter := NewFilter(cfg, fixedNow)
	windowStart, windowEnd := cfg.Window(fixedNow)

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		included bool
	}{
		{
			name:     "start exactly at window start is excluded",
			start:    windowStart,
			end:      windowStart.Add(-time.Hour), // also outside
			included: false,
		},
		{
			name:     "end exactly at window end is excluded",
			start:    windowEnd, // outside
			end:      windowEnd,
			included: false,
		},
		{
			name:     "event spanning window start is included",
			start:    windowStart.Add(-time.Hour),
			end:      windowStart.Add(time.Hour),
			included: true,
		},
		{
			name:     "event spanning window end is included",
			start:    windowEnd.Add(-time.Hour),
			end:      windowEnd.Add(time.Hour),
			included: true,
		},
		{
			name:     "event entirely before window",
			start:    windowStart.Add(-48 * time.Hour),
			end:      windowStart.Add(-47 * time.Hour),
			included: false,
		},
		{
			name:     "event entirely after window",
			start:    windowEnd.Add(47 * time.Hour),
			end:      windowEnd.Add(48 * time.Hour),
			included: false,
		},
		{
			name:     "event inside window",
			start:    fixedNow,
			end:      fixedNow.Add(time.Hour),
			included: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := timedEvent(tt.start, tt.end)
			got := filter.ShouldCopy(event)
			if got != tt.included {
				t.Errorf("expected included=%v, got %v", tt.included, got)
			}
		})
	}
}

func TestFilterAllDayEvents(t *testing.T) {
	cfg := testFilterConfig()
	filter := NewFilter(cfg, fixedNow)

	// All-day event tomorrow, date-only form
	tomorrow := fixedNow.Add(24 * time.Hour)
	event := &calendar.Event{
		Id:      "evt-allday",
		Summary: "Conference",
		Status:  "confirmed",
		Start:   &calendar.EventDateTime{Date: tomorrow.Format("2006-01-02")},
		End:     &calendar.EventDateTime{Date: tomorrow.Add(24 * time.Hour).Format("2006-01-02")},
	}

	if !filter.ShouldCopy(event) {
		t.Error("expected all-day event inside window to be included")
	}

	// All-day event far outside the window
	farOut := fixedNow.AddDate(0, 0, cfg.DaysFuture+10)
	event.Start = &calendar.EventDateTime{Date: farOut.Format("2006-01-02")}
	event.End = &calendar.EventDateTime{Date: farOut.Add(24 * time.Hour).Format("2006-01-02")}

	if filter.ShouldCopy(event) {
		t.Error("expected all-day event outside window to be excluded")
	}
}

func TestFilterMissingBoundaries(t *testing.T) {
	cfg := testFilterConfig()
	filter := NewFilter(cfg, fixedNow)

	// No parseable start or end means nothing can fall in the window
	event := &calendar.Event{Id: "evt-broken", Summary: "Broken", Status: "confirmed"}
	excluded, reason := filter.Exclude(event)
	if !excluded {
		t.Error("expected event without boundaries to be excluded")
	}
	if reason != "outside sync window" {
		t.Errorf("expected window reason, got %q", reason)
	}
}
