// ABOUTME: Tests for config defaults, validation, env overrides, and window math
// ABOUTME: Covers pair identity and mirrored summary construction
package sync

import (
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 7, cfg.DaysPast)
	assert.Equal(t, 30, cfg.DaysFuture)
	assert.Equal(t, []string{"cancelled"}, cfg.SkipStatuses)
	assert.Equal(t, []string{"transparent"}, cfg.SkipTransparencies)
	assert.Equal(t, []string{"private", "confidential"}, cfg.SkipVisibilities)
	assert.True(t, cfg.SkipDeclined)
	assert.Equal(t, DefaultMarker, cfg.Marker)
	assert.Equal(t, DefaultErrorThreshold, cfg.ErrorThreshold)
	assert.Equal(t, "sqlite", cfg.StateBackend)
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.SourceCalendarID = "me@example.com"
		cfg.TargetCalendarID = "mirror@example.com"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing source", func(c *Config) { c.SourceCalendarID = "" }, true},
		{"missing target", func(c *Config) { c.TargetCalendarID = "" }, true},
		{"same source and target", func(c *Config) { c.TargetCalendarID = c.SourceCalendarID }, true},
		{"empty marker", func(c *Config) { c.Marker = "" }, true},
		{"zero threshold", func(c *Config) { c.ErrorThreshold = 0 }, true},
		{"charm backend", func(c *Config) { c.StateBackend = "charm" }, false},
		{"unknown backend", func(c *Config) { c.StateBackend = "redis" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv("CALMIRROR_SOURCE_CALENDAR", "env-src@example.com")
	t.Setenv("CALMIRROR_TARGET_CALENDAR", "env-tgt@example.com")
	t.Setenv("CALMIRROR_DAYS_PAST", "3")
	t.Setenv("CALMIRROR_DAYS_FUTURE", "14")
	t.Setenv("CALMIRROR_ERROR_THRESHOLD", "5")
	t.Setenv("CALMIRROR_DELETE_ONLY", "true")
	t.Setenv("CALMIRROR_STATE_BACKEND", "charm")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, "env-src@example.com", cfg.SourceCalendarID)
	assert.Equal(t, "env-tgt@example.com", cfg.TargetCalendarID)
	assert.Equal(t, 3, cfg.DaysPast)
	assert.Equal(t, 14, cfg.DaysFuture)
	assert.Equal(t, 5, cfg.ErrorThreshold)
	assert.True(t, cfg.DeleteOnly)
	assert.Equal(t, "charm", cfg.StateBackend)
}

func TestConfigWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DaysPast = 7
	cfg.DaysFuture = 30

	now := time.Date(2026, 3, 4, 15, 42, 7, 0, time.UTC)
	start, end := cfg.Window(now)

	require.Equal(t, time.Date(2026, 2, 25, 0, 0, 0, 0, time.UTC), start,
		"start is midnight today minus past days")
	require.Equal(t, time.Date(2026, 4, 4, 0, 0, 0, 0, time.UTC), end,
		"end is midnight today plus future days plus one")
}

func TestConfigPair(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SourceCalendarID = "a@example.com"
	cfg.TargetCalendarID = "b@example.com"
	assert.Equal(t, "a@example.com->b@example.com", cfg.Pair())
}

func TestMirrorTitle(t *testing.T) {
	cfg := DefaultConfig()

	title := cfg.MirrorTitle("Design review")
	assert.Equal(t, DefaultMarker+"[mirror] Design review", title)

	title = cfg.MirrorTitle("")
	assert.Equal(t, DefaultMarker+"[mirror] Busy", title)

	cfg.CopyPrefix = ""
	title = cfg.MirrorTitle("Design review")
	assert.Equal(t, DefaultMarker+"Design review", title)
}

func TestSaveAndLoadConfig(t *testing.T) {
	origHome := xdg.DataHome
	xdg.DataHome = t.TempDir()
	defer func() { xdg.DataHome = origHome }()

	cfg := DefaultConfig()
	cfg.SourceCalendarID = "me@example.com"
	cfg.TargetCalendarID = "mirror@example.com"
	cfg.DaysFuture = 60

	require.NoError(t, SaveConfig(cfg))

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", loaded.SourceCalendarID)
	assert.Equal(t, 60, loaded.DaysFuture)
	assert.Equal(t, DefaultMarker, loaded.Marker)
}
