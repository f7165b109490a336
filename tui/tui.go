// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Live status watch for the calendar mirror with manual sync trigger
package tui

import (
	"database/sql"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	dbpkg "github.com/harperreed/calmirror/db"
	"github.com/harperreed/calmirror/sync"
)

// refreshInterval is how often the watch view reloads state from the
// database while idle.
const refreshInterval = 5 * time.Second

// SyncRunner executes one sync pass. Injected so the view can be tested
// without calendar credentials.
type SyncRunner func() (*sync.RunStats, error)

// SyncCompleteMsg is sent when a triggered sync pass finishes.
type SyncCompleteMsg struct {
	Stats *sync.RunStats
	Error error
}

type tickMsg time.Time

// Model is the bubbletea model for the status watch view. Mappings and
// sync state are read through the configured backend stores; run history
// is per-device and comes from SQLite.
type Model struct {
	db     *sql.DB
	cfg    *sync.Config
	stores sync.Stores
	runner SyncRunner

	state        sync.StateSnapshot
	mappingCount int
	runs         []dbpkg.SyncRun

	syncInProgress bool
	messages       []string

	width  int
	height int
}

// NewModel creates a watch model for the configured calendar pair.
func NewModel(database *sql.DB, cfg *sync.Config, stores sync.Stores, runner SyncRunner) Model {
	m := Model{
		db:     database,
		cfg:    cfg,
		stores: stores,
		runner: runner,
		width:  80,
		height: 24,
	}
	m.loadStatus()
	return m
}

// Run starts the interactive watch view and blocks until quit.
func Run(database *sql.DB, cfg *sync.Config, stores sync.Stores, runner SyncRunner) error {
	p := tea.NewProgram(NewModel(database, cfg, stores, runner), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run status view: %w", err)
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		m.loadStatus()
		return m, tick()
	case SyncCompleteMsg:
		cmd := m.handleSyncComplete(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	return m.renderStatusView()
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "s", "enter":
		if m.syncInProgress || m.runner == nil {
			return m, nil
		}
		m.syncInProgress = true
		m.addMessage("Starting sync pass...")
		return m, m.triggerSync()
	case "r":
		m.loadStatus()
	}
	return m, nil
}

// triggerSync runs one pass off the update loop.
func (m Model) triggerSync() tea.Cmd {
	return func() tea.Msg {
		stats, err := m.runner()
		return SyncCompleteMsg{Stats: stats, Error: err}
	}
}

// handleSyncComplete records the pass outcome and refreshes state.
func (m *Model) handleSyncComplete(msg SyncCompleteMsg) tea.Cmd {
	m.syncInProgress = false

	if msg.Error != nil {
		m.addMessage(fmt.Sprintf("✗ Sync failed: %v", msg.Error))
	} else if msg.Stats != nil {
		m.addMessage(fmt.Sprintf("✓ %s sync: %d created, %d updated, %d deleted",
			msg.Stats.Mode, msg.Stats.Created, msg.Stats.Updated, msg.Stats.Deleted))
	} else {
		m.addMessage("✓ Sync completed")
	}

	m.loadStatus()
	return nil
}

// addMessage appends a timestamped line to the activity log.
func (m *Model) addMessage(msg string) {
	timestamp := time.Now().Format("15:04:05")
	m.messages = append(m.messages, fmt.Sprintf("[%s] %s", timestamp, msg))
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Underline(true)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Width(12)

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	syncingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)
)
