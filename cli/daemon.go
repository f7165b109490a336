// ABOUTME: Daemon mode running periodic mirror passes
// ABOUTME: Validates the interval and stops cleanly on SIGINT/SIGTERM
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/harperreed/calmirror/sync"
)

// minDaemonInterval guards against hammering the Calendar API quota.
const minDaemonInterval = 5 * time.Minute

// DaemonCommand runs sync passes on a fixed interval until interrupted.
func DaemonCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)
	intervalStr := fs.String("interval", "15m", "Time between passes (minimum 5m)")
	_ = fs.Parse(args)

	interval, err := time.ParseDuration(*intervalStr)
	if err != nil {
		return fmt.Errorf("invalid interval %q: %w", *intervalStr, err)
	}
	if interval < minDaemonInterval {
		return fmt.Errorf("interval %s is below the minimum of %s", interval, minDaemonInterval)
	}

	cfg, err := sync.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w (run 'calmirror config' first)", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Mirror daemon: %s → %s every %s\n", cfg.SourceCalendarID, cfg.TargetCalendarID, interval)

	// First pass immediately, then on the ticker
	runDaemonPass(ctx, database, cfg)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nShutting down...")
			return nil
		case <-ticker.C:
			runDaemonPass(ctx, database, cfg)
		}
	}
}

// runDaemonPass runs one pass and logs the outcome without killing the
// daemon: the engine's error counter handles persistent failures.
func runDaemonPass(ctx context.Context, database *sql.DB, cfg *sync.Config) {
	start := time.Now()
	fmt.Printf("[%s] Starting sync pass...\n", start.Format("15:04:05"))

	if _, err := RunSyncPass(ctx, database, cfg); err != nil {
		fmt.Printf("[%s] ✗ Pass failed: %v\n", time.Now().Format("15:04:05"), err)
		return
	}

	fmt.Printf("[%s] Pass finished in %s\n", time.Now().Format("15:04:05"), time.Since(start).Round(time.Second))
}
