// ABOUTME: Sync configuration loading from XDG paths with environment overrides
// ABOUTME: Holds calendar pair identities, filter rule sets, and engine tuning knobs
package sync

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

const (
	// AppName is used for XDG config, data, and token paths.
	AppName = "calmirror"

	// DefaultMarker is a zero-width space embedded in every mirrored
	// summary. It is invisible in calendar UIs but lets the delete phase
	// recognize events this engine created.
	DefaultMarker = "\u200b"

	// DefaultErrorThreshold is how many consecutive transient failures
	// are tolerated before the sync token is discarded and the next pass
	// self-heals with a full sync.
	DefaultErrorThreshold = 7
)

// Config is the sync engine configuration, constructed once at process
// entry and passed down explicitly.
type Config struct {
	SourceCalendarID string `json:"source_calendar_id"`
	TargetCalendarID string `json:"target_calendar_id"`

	// Sync window in whole days around today, midnight aligned.
	DaysPast   int `json:"days_past"`
	DaysFuture int `json:"days_future"`

	// Exclusion rule sets. An event matching any rule is not mirrored.
	SkipStatuses        []string            `json:"skip_statuses"`
	SkipTransparencies  []string            `json:"skip_transparencies"`
	SkipVisibilities    []string            `json:"skip_visibilities"`
	SkipDeclined        bool                `json:"skip_declined"`
	SkipSummaryContains []string            `json:"skip_summary_contains,omitempty"`
	PropertyFilters     map[string][]string `json:"property_filters,omitempty"`

	// Target event synthesis.
	Marker       string `json:"marker,omitempty"`
	CopyPrefix   string `json:"copy_prefix,omitempty"`
	DefaultTitle string `json:"default_title,omitempty"`
	ColorID      string `json:"color_id,omitempty"`
	Visibility   string `json:"visibility,omitempty"`

	ErrorThreshold int `json:"error_threshold,omitempty"`

	// Utility flags, normally driven by CLI flags or env.
	ForceFullSync bool `json:"force_full_sync,omitempty"`
	DeleteOnly    bool `json:"delete_only,omitempty"`

	// StateBackend selects where mappings and sync state live:
	// "sqlite" (default) or "charm" for the synced KV store.
	StateBackend string `json:"state_backend,omitempty"`
}

// DefaultConfig returns a config with sensible defaults. Calendar ids
// still have to come from the config file or environment.
func DefaultConfig() *Config {
	return &Config{
		DaysPast:           7,
		DaysFuture:         30,
		SkipStatuses:       []string{"cancelled"},
		SkipTransparencies: []string{"transparent"},
		SkipVisibilities:   []string{"private", "confidential"},
		SkipDeclined:       true,
		Marker:             DefaultMarker,
		CopyPrefix:         "[mirror]",
		DefaultTitle:       "Busy",
		ErrorThreshold:     DefaultErrorThreshold,
		StateBackend:       "sqlite",
	}
}

// ConfigDir returns the XDG-compliant configuration directory.
func ConfigDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// ConfigPath returns the path of the JSON config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// LoadConfig loads configuration from the XDG data directory, falling
// back to defaults when the file does not exist. Environment variables
// override file values:
// - CALMIRROR_SOURCE_CALENDAR
// - CALMIRROR_TARGET_CALENDAR
// - CALMIRROR_DAYS_PAST / CALMIRROR_DAYS_FUTURE
// - CALMIRROR_ERROR_THRESHOLD
// - CALMIRROR_FORCE_FULL_SYNC / CALMIRROR_DELETE_ONLY
// - CALMIRROR_STATE_BACKEND.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// SaveConfig writes the config file with restricted permissions.
func SaveConfig(cfg *Config) error {
	if err := os.MkdirAll(ConfigDir(), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CALMIRROR_SOURCE_CALENDAR"); v != "" {
		cfg.SourceCalendarID = v
	}
	if v := os.Getenv("CALMIRROR_TARGET_CALENDAR"); v != "" {
		cfg.TargetCalendarID = v
	}
	if v := os.Getenv("CALMIRROR_DAYS_PAST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DaysPast = n
		}
	}
	if v := os.Getenv("CALMIRROR_DAYS_FUTURE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DaysFuture = n
		}
	}
	if v := os.Getenv("CALMIRROR_ERROR_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ErrorThreshold = n
		}
	}
	if v := os.Getenv("CALMIRROR_FORCE_FULL_SYNC"); v != "" {
		cfg.ForceFullSync = v == "true" || v == "1"
	}
	if v := os.Getenv("CALMIRROR_DELETE_ONLY"); v != "" {
		cfg.DeleteOnly = v == "true" || v == "1"
	}
	if v := os.Getenv("CALMIRROR_STATE_BACKEND"); v != "" {
		cfg.StateBackend = v
	}
}

// Validate checks that the config names a usable calendar pair.
func (c *Config) Validate() error {
	if c.SourceCalendarID == "" {
		return fmt.Errorf("source calendar id is required")
	}
	if c.TargetCalendarID == "" {
		return fmt.Errorf("target calendar id is required")
	}
	if c.SourceCalendarID == c.TargetCalendarID {
		return fmt.Errorf("source and target calendars must differ")
	}
	if c.Marker == "" {
		return fmt.Errorf("marker must not be empty")
	}
	if c.ErrorThreshold <= 0 {
		return fmt.Errorf("error threshold must be positive")
	}
	switch c.StateBackend {
	case "", "sqlite", "charm":
	default:
		return fmt.Errorf("unknown state backend %q", c.StateBackend)
	}
	return nil
}

// Pair is the identity that namespaces persisted mappings, sync state,
// and the pass lock. Independent pipelines sharing one store get
// independent keys.
func (c *Config) Pair() string {
	return c.SourceCalendarID + "->" + c.TargetCalendarID
}

// Window returns the midnight-aligned sync window around now. An event
// qualifies only when its start or end instant falls strictly inside.
func (c *Config) Window(now time.Time) (time.Time, time.Time) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := midnight.AddDate(0, 0, -c.DaysPast)
	end := midnight.AddDate(0, 0, c.DaysFuture+1)
	return start, end
}

// MirrorTitle builds the summary for a mirrored event: invisible marker,
// optional prefix, then the source summary or the configured fallback.
func (c *Config) MirrorTitle(sourceSummary string) string {
	title := sourceSummary
	if title == "" {
		title = c.DefaultTitle
	}
	if c.CopyPrefix != "" {
		title = strings.TrimSpace(c.CopyPrefix + " " + title)
	}
	return c.Marker + title
}
