// ABOUTME: Calendar mirror CLI commands
// ABOUTME: Handles OAuth setup and one-shot sync passes
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"

	"golang.org/x/oauth2"

	"github.com/harperreed/calmirror/charm"
	"github.com/harperreed/calmirror/sync"
)

// InitCommand handles OAuth setup
func InitCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	_ = fs.Parse(args)

	ctx := context.Background()
	config := sync.NewOAuthConfig()

	// Start local server for OAuth callback
	callbackChan := make(chan *oauth2.Token)
	errChan := make(chan error)

	http.HandleFunc("/oauth/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no authorization code received")
			return
		}

		token, err := config.Exchange(ctx, code)
		if err != nil {
			errChan <- fmt.Errorf("failed to exchange code: %w", err)
			return
		}

		callbackChan <- token
		_, _ = fmt.Fprintf(w, "Authorization successful! You can close this window.")
	})

	server := &http.Server{Addr: ":8080"}
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Generate auth URL
	authURL := config.AuthCodeURL("state", oauth2.AccessTypeOffline)

	fmt.Println("Opening browser for Google OAuth...")
	fmt.Printf("\nIf browser doesn't open, visit this URL:\n%s\n\n", authURL)

	_ = openBrowser(authURL)

	// Wait for callback or error
	select {
	case token := <-callbackChan:
		_ = server.Shutdown(ctx)

		if err := sync.SaveToken(token); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}

		fmt.Printf("\n✓ Authenticated successfully\n")
		fmt.Printf("✓ Tokens saved to %s\n\n", sync.TokenPath())
		fmt.Println("Ready to mirror! Run 'calmirror sync' to run the first pass.")

		return nil

	case err := <-errChan:
		_ = server.Shutdown(ctx)
		return fmt.Errorf("OAuth flow failed: %w", err)
	}
}

// SyncCommand runs one mirror pass
func SyncCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	full := fs.Bool("full", false, "Discard state and rebuild the mirror from scratch")
	deleteOnly := fs.Bool("delete-only", false, "Remove all mirrored events without recreating them")
	_ = fs.Parse(args)

	cfg, err := sync.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ForceFullSync = cfg.ForceFullSync || *full
	cfg.DeleteOnly = cfg.DeleteOnly || *deleteOnly

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w (run 'calmirror config' first)", err)
	}

	fmt.Printf("Mirroring %s → %s\n", cfg.SourceCalendarID, cfg.TargetCalendarID)

	_, err = RunSyncPass(context.Background(), database, cfg)
	return err
}

// RunSyncPass wires up the engine and executes a single pass.
func RunSyncPass(ctx context.Context, database *sql.DB, cfg *sync.Config) (*sync.RunStats, error) {
	token, err := sync.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("no authentication token found. Run 'calmirror init' first: %w", err)
	}

	service, err := sync.NewEventService(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	stores, err := buildStores(database, cfg)
	if err != nil {
		return nil, err
	}

	engine := sync.NewEngine(cfg, service, stores)
	stats, err := engine.Run(ctx)
	if err != nil {
		return stats, fmt.Errorf("sync failed: %w", err)
	}
	return stats, nil
}

// buildStores selects the persistence backend. The pass lock and run
// history always live in SQLite; with the charm backend, mappings and
// sync state move to the synced KV store.
func buildStores(database *sql.DB, cfg *sync.Config) (sync.Stores, error) {
	stores := sync.NewSQLiteStores(database, cfg.Pair())

	if cfg.StateBackend == "charm" {
		client, err := charm.GetClient()
		if err != nil {
			return stores, fmt.Errorf("failed to open charm backend: %w", err)
		}
		stores.Mappings, stores.State = charm.NewStores(client, cfg.Pair())
	}

	return stores, nil
}

// openBrowser attempts to open URL in default browser
func openBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		cmd = "xdg-open"
		args = []string{url}
	}

	command := exec.Command(cmd, args...)
	return command.Start()
}
