// ABOUTME: Tests for OAuth configuration and token paths
// ABOUTME: Verifies calendar scope and XDG-compliant storage locations
package sync

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
)

func TestOAuthConfigCreation(t *testing.T) {
	config := NewOAuthConfig()

	if config == nil {
		t.Fatal("expected config, got nil")
	}

	if len(config.Scopes) != 1 {
		t.Errorf("expected 1 scope, got %d", len(config.Scopes))
	}

	// Mirroring writes to the target calendar, so the read-only scope
	// is not enough
	if config.Scopes[0] != "https://www.googleapis.com/auth/calendar" {
		t.Errorf("expected full calendar scope, got %s", config.Scopes[0])
	}
}

func TestTokenPathXDG(t *testing.T) {
	path := TokenPath()

	expectedBase := filepath.Join(xdg.DataHome, AppName)
	if !strings.HasPrefix(path, expectedBase) {
		t.Errorf("expected path under %s, got %s", expectedBase, path)
	}

	if filepath.Base(path) != "google-credentials.json" {
		t.Errorf("expected filename google-credentials.json, got %s", filepath.Base(path))
	}
}
