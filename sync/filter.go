// ABOUTME: Pure exclusion-rule pipeline deciding whether a source event is mirrored
// ABOUTME: Returns skip reasons in the style used for per-pass skip counting
package sync

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"
)

// Filter evaluates the ordered exclusion rules against one source event.
// It is pure: the window is fixed at construction so every event in a
// pass sees the same boundaries.
type Filter struct {
	cfg         *Config
	windowStart time.Time
	windowEnd   time.Time
}

// NewFilter builds a filter with the sync window anchored at now.
func NewFilter(cfg *Config, now time.Time) *Filter {
	start, end := cfg.Window(now)
	return &Filter{cfg: cfg, windowStart: start, windowEnd: end}
}

// ShouldCopy reports whether the event qualifies for mirroring.
func (f *Filter) ShouldCopy(event *calendar.Event) bool {
	excluded, _ := f.Exclude(event)
	return !excluded
}

// Exclude determines if an event should be skipped during mirroring.
// Returns (true, reason) if the event should be skipped, (false, "")
// otherwise. Rules short-circuit on the first match; ordering only
// affects the reported reason.
func (f *Filter) Exclude(event *calendar.Event) (bool, string) {
	if event == nil {
		return true, "nil event"
	}

	if containsFold(f.cfg.SkipStatuses, event.Status) {
		return true, event.Status
	}

	if containsFold(f.cfg.SkipTransparencies, event.Transparency) {
		return true, "non-blocking"
	}

	if containsFold(f.cfg.SkipVisibilities, event.Visibility) {
		return true, event.Visibility
	}

	if !f.withinWindow(event) {
		return true, "outside sync window"
	}

	if f.cfg.SkipDeclined && declinedBySource(event, f.cfg.SourceCalendarID) {
		return true, "declined"
	}

	for _, substr := range f.cfg.SkipSummaryContains {
		if substr != "" && strings.Contains(event.Summary, substr) {
			return true, "summary filter"
		}
	}

	for path, substrs := range f.cfg.PropertyFilters {
		value, ok := eventProperty(event, path)
		if !ok {
			continue
		}
		for _, substr := range substrs {
			if substr != "" && strings.Contains(value, substr) {
				return true, fmt.Sprintf("property filter (%s)", path)
			}
		}
	}

	return false, ""
}

// withinWindow checks the start and end instants independently, for both
// all-day (date) and timed (dateTime) forms. The event qualifies when
// either boundary lies strictly inside the window.
func (f *Filter) withinWindow(event *calendar.Event) bool {
	for _, edt := range []*calendar.EventDateTime{event.Start, event.End} {
		instant, ok := parseEventTime(edt)
		if !ok {
			continue
		}
		if instant.After(f.windowStart) && instant.Before(f.windowEnd) {
			return true
		}
	}
	return false
}

// parseEventTime extracts the instant from an event boundary, handling
// both the dateTime and the all-day date representations.
func parseEventTime(edt *calendar.EventDateTime) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}
	if edt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return t, true
		}
		return time.Time{}, false
	}
	if edt.Date != "" {
		if t, err := time.ParseInLocation("2006-01-02", edt.Date, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// declinedBySource checks whether the source calendar identity declined
// the event. The listing is made with maxAttendees=1, which still always
// includes the authenticated calendar's own attendee record.
func declinedBySource(event *calendar.Event, sourceID string) bool {
	for _, attendee := range event.Attendees {
		if attendee == nil {
			continue
		}
		if attendee.Self || strings.EqualFold(attendee.Email, sourceID) {
			if attendee.ResponseStatus == "declined" {
				return true
			}
		}
	}
	return false
}

// eventProperty resolves a dotted-path key (e.g.
// "extendedProperties.private.origin") against the event's JSON form.
func eventProperty(event *calendar.Event, path string) (string, bool) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", false
	}

	var node any
	if err := json.Unmarshal(data, &node); err != nil {
		return "", false
	}

	for _, segment := range strings.Split(path, ".") {
		obj, ok := node.(map[string]any)
		if !ok {
			return "", false
		}
		node, ok = obj[segment]
		if !ok {
			return "", false
		}
	}

	switch v := node.(type) {
	case string:
		return v, true
	case nil:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}

func containsFold(set []string, value string) bool {
	if value == "" {
		return false
	}
	for _, s := range set {
		if strings.EqualFold(s, value) {
			return true
		}
	}
	return false
}
