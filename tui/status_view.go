// ABOUTME: Rendering for the mirror status watch view
// ABOUTME: Shows sync state, mapping count, and a table of recent passes
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"

	dbpkg "github.com/harperreed/calmirror/db"
)

// loadStatus refreshes persisted state for the configured pair through
// the backend stores.
func (m *Model) loadStatus() {
	if m.db == nil || m.cfg == nil {
		return
	}

	if snap, err := m.stores.State.Get(); err == nil {
		m.state = snap
	}

	if count, err := m.stores.Mappings.Count(); err == nil {
		m.mappingCount = count
	}

	if runs, err := dbpkg.RecentSyncRuns(m.db, m.cfg.Pair(), 10); err == nil {
		m.runs = runs
	}
}

func (m Model) renderStatusView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Calendar Mirror Status"))
	s.WriteString("\n\n")

	if m.cfg != nil {
		s.WriteString(labelStyle.Render("Source:"))
		s.WriteString(m.cfg.SourceCalendarID)
		s.WriteString("\n")
		s.WriteString(labelStyle.Render("Target:"))
		s.WriteString(m.cfg.TargetCalendarID)
		s.WriteString("\n")
	}

	s.WriteString(labelStyle.Render("Status:"))
	s.WriteString(m.renderStatusLine())
	s.WriteString("\n")

	s.WriteString(labelStyle.Render("Mappings:"))
	s.WriteString(fmt.Sprintf("%d mirrored events", m.mappingCount))
	s.WriteString("\n")

	s.WriteString(labelStyle.Render("Cursor:"))
	if m.state.Token != "" {
		s.WriteString(idleStyle.Render("sync token stored, next pass incremental"))
	} else {
		s.WriteString(messageStyle.Render("none, next pass full"))
	}
	s.WriteString("\n\n")

	if len(m.runs) > 0 {
		s.WriteString(headerStyle.Render("Recent Passes"))
		s.WriteString("\n\n")
		s.WriteString(m.renderRunsTable())
		s.WriteString("\n")
	} else {
		s.WriteString(messageStyle.Render("No sync passes recorded yet. Press 's' to run one."))
		s.WriteString("\n")
	}

	if len(m.messages) > 0 {
		s.WriteString("\n")
		s.WriteString(headerStyle.Render("Activity"))
		s.WriteString("\n\n")
		start := 0
		if len(m.messages) > 5 {
			start = len(m.messages) - 5
		}
		for i := start; i < len(m.messages); i++ {
			s.WriteString(messageStyle.Render("  " + m.messages[i]))
			s.WriteString("\n")
		}
	}

	s.WriteString(m.renderHelp())

	return s.String()
}

func (m Model) renderStatusLine() string {
	if m.syncInProgress {
		return syncingStyle.Render("⟳ Syncing...")
	}
	switch m.state.Status {
	case "":
		return messageStyle.Render("never synced")
	case "syncing":
		return syncingStyle.Render("⟳ Syncing...")
	case "error":
		line := errorStyle.Render("✗ Error")
		if m.state.ErrorMessage != nil && *m.state.ErrorMessage != "" {
			line += errorStyle.Render(": " + *m.state.ErrorMessage)
		}
		if m.state.ErrorCount > 0 {
			line += messageStyle.Render(fmt.Sprintf(" (%d consecutive)", m.state.ErrorCount))
		}
		return line
	default:
		line := idleStyle.Render("✓ Idle")
		if m.state.LastSync != nil {
			line += messageStyle.Render(" • Last synced " + formatTimeSince(*m.state.LastSync))
		}
		return line
	}
}

func (m Model) renderRunsTable() string {
	columns := []table.Column{
		{Title: "When", Width: 16},
		{Title: "Mode", Width: 12},
		{Title: "Status", Width: 8},
		{Title: "Created", Width: 8},
		{Title: "Updated", Width: 8},
		{Title: "Deleted", Width: 8},
	}

	var rows []table.Row
	for _, run := range m.runs {
		rows = append(rows, table.Row{
			formatTimeSince(run.StartedAt),
			run.Mode,
			run.Status,
			fmt.Sprintf("%d", run.CreatedCount),
			fmt.Sprintf("%d", run.UpdatedCount),
			fmt.Sprintf("%d", run.DeletedCount),
		})
	}

	height := len(rows) + 1
	if max := m.height - 14; height > max && max > 1 {
		height = max
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(height),
	)

	return t.View()
}

func (m Model) renderHelp() string {
	help := []string{
		"s: Sync now",
		"r: Refresh",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

// formatTimeSince formats a time duration in a human-readable way.
func formatTimeSince(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return "just now"
	} else if duration < time.Hour {
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	} else if duration < 24*time.Hour {
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	} else {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}
