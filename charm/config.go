// ABOUTME: Connection settings for the Charm KV state backend
// ABOUTME: JSON file under the XDG data dir, host overridable by env
package charm

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	// DefaultCharmHost is the self-hosted 2389 research server.
	DefaultCharmHost = "charm.2389.dev"

	// AppName names the KV database and the config directory.
	AppName = "calmirror"

	configFileName = "charm-config.json"
)

// Config holds the charm backend connection settings.
type Config struct {
	// Host is the charm server hostname.
	Host string `json:"host,omitempty"`

	// AutoSync pushes after every write and pulls on open, keeping
	// mirror state fresh across devices at the cost of a round trip.
	AutoSync bool `json:"auto_sync"`
}

// DefaultConfig returns the backend defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:     DefaultCharmHost,
		AutoSync: true,
	}
}

func configPath() (string, error) {
	dataDir := filepath.Join(xdg.DataHome, AppName)
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(dataDir, configFileName), nil
}

// LoadConfig loads the backend config, falling back to defaults when the
// file is missing or unreadable. CALMIRROR_CHARM_HOST overrides the
// stored host.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	path, err := configPath()
	if err == nil {
		if data, err := os.ReadFile(path); err == nil {
			_ = json.Unmarshal(data, cfg)
		}
	}

	if cfg.Host == "" {
		cfg.Host = DefaultCharmHost
	}
	if host := os.Getenv("CALMIRROR_CHARM_HOST"); host != "" {
		cfg.Host = host
	}

	return cfg, nil
}

// Save persists the config to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// SetAutoSync toggles auto-sync and saves.
func (c *Config) SetAutoSync(enabled bool) error {
	c.AutoSync = enabled
	return c.Save()
}
