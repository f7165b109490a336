// ABOUTME: Status, reset, and config CLI commands
// ABOUTME: Plain-print status with an optional live TUI watch mode
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"time"

	"github.com/harperreed/calmirror/db"
	"github.com/harperreed/calmirror/sync"
	"github.com/harperreed/calmirror/tui"
)

// StatusCommand prints the mirror state, or watches it live with -watch.
func StatusCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	watch := fs.Bool("watch", false, "Interactive live status view")
	_ = fs.Parse(args)

	cfg, err := sync.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w (run 'calmirror config' first)", err)
	}

	stores, err := buildStores(database, cfg)
	if err != nil {
		return err
	}

	if *watch {
		runner := func() (*sync.RunStats, error) {
			return RunSyncPass(context.Background(), database, cfg)
		}
		return tui.Run(database, cfg, stores, runner)
	}

	return printStatus(database, stores, cfg)
}

// printStatus reads mappings and sync state through the configured
// backend; run history is per-device and always comes from SQLite.
func printStatus(database *sql.DB, stores sync.Stores, cfg *sync.Config) error {
	fmt.Println("Calendar Mirror Status")
	fmt.Println("──────────────────────")
	fmt.Printf("Source:   %s\n", cfg.SourceCalendarID)
	fmt.Printf("Target:   %s\n", cfg.TargetCalendarID)
	fmt.Printf("Backend:  %s\n", cfg.StateBackend)

	count, err := stores.Mappings.Count()
	if err != nil {
		return fmt.Errorf("failed to count mappings: %w", err)
	}
	fmt.Printf("Mappings: %d mirrored events\n", count)

	snap, err := stores.State.Get()
	if err != nil {
		return fmt.Errorf("failed to load sync state: %w", err)
	}

	if snap.Status == "" {
		fmt.Println("Status:   never synced")
	} else {
		fmt.Printf("Status:   %s\n", snap.Status)
		if snap.Token != "" {
			fmt.Println("Cursor:   sync token stored, next pass incremental")
		} else {
			fmt.Println("Cursor:   none, next pass full")
		}
		if snap.ErrorCount > 0 {
			fmt.Printf("Errors:   %d consecutive (full sync at %d)\n", snap.ErrorCount, cfg.ErrorThreshold)
		}
		if snap.ErrorMessage != nil && *snap.ErrorMessage != "" {
			fmt.Printf("Last err: %s\n", *snap.ErrorMessage)
		}
		if snap.LastSync != nil {
			fmt.Printf("Synced:   %s\n", formatTimeSince(*snap.LastSync))
		}
	}

	runs, err := db.RecentSyncRuns(database, cfg.Pair(), 5)
	if err != nil {
		return fmt.Errorf("failed to load run history: %w", err)
	}
	if len(runs) > 0 {
		fmt.Println("\nRecent passes:")
		for _, run := range runs {
			line := fmt.Sprintf("  %-16s %-12s %-6s +%d ~%d -%d",
				formatTimeSince(run.StartedAt), run.Mode, run.Status,
				run.CreatedCount, run.UpdatedCount, run.DeletedCount)
			if run.ErrorMessage != nil && *run.ErrorMessage != "" {
				line += "  " + *run.ErrorMessage
			}
			fmt.Println(line)
		}
	}

	return nil
}

// ResetCommand wipes mappings and sync state for the configured pair.
func ResetCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	confirm := fs.Bool("confirm", false, "Confirm the reset")
	_ = fs.Parse(args)

	cfg, err := sync.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if !*confirm {
		fmt.Println("This clears all mappings and sync state for the pair.")
		fmt.Println("Mirrored events in the target calendar are NOT touched;")
		fmt.Println("run 'calmirror sync -delete-only' first to remove them.")
		fmt.Println()
		fmt.Println("To confirm, run:")
		fmt.Println("  calmirror reset --confirm")
		return nil
	}

	stores, err := buildStores(database, cfg)
	if err != nil {
		return err
	}

	if err := stores.Mappings.Clear(); err != nil {
		return fmt.Errorf("failed to clear mappings: %w", err)
	}
	if err := stores.State.Clear(); err != nil {
		return fmt.Errorf("failed to clear sync state: %w", err)
	}

	fmt.Println("✓ Mappings and sync state cleared")
	fmt.Println("The next pass runs full and rebuilds the mirror.")

	return nil
}

// ConfigCommand shows or updates the mirror configuration.
func ConfigCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	source := fs.String("source", "", "Source calendar ID")
	target := fs.String("target", "", "Target calendar ID")
	daysPast := fs.Int("days-past", -1, "Days of history to mirror")
	daysFuture := fs.Int("days-future", -1, "Days of future to mirror")
	backend := fs.String("backend", "", "State backend: sqlite or charm")
	show := fs.Bool("show", false, "Print the active configuration")
	_ = fs.Parse(args)

	cfg, err := sync.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	changed := false
	if *source != "" {
		cfg.SourceCalendarID = *source
		changed = true
	}
	if *target != "" {
		cfg.TargetCalendarID = *target
		changed = true
	}
	if *daysPast >= 0 {
		cfg.DaysPast = *daysPast
		changed = true
	}
	if *daysFuture >= 0 {
		cfg.DaysFuture = *daysFuture
		changed = true
	}
	if *backend != "" {
		cfg.StateBackend = *backend
		changed = true
	}

	if changed {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if err := sync.SaveConfig(cfg); err != nil {
			return err
		}
		fmt.Printf("✓ Config saved to %s\n", sync.ConfigPath())
	}

	if *show || !changed {
		fmt.Printf("Source:      %s\n", orUnset(cfg.SourceCalendarID))
		fmt.Printf("Target:      %s\n", orUnset(cfg.TargetCalendarID))
		fmt.Printf("Window:      -%dd .. +%dd\n", cfg.DaysPast, cfg.DaysFuture)
		fmt.Printf("Backend:     %s\n", cfg.StateBackend)
		fmt.Printf("Threshold:   %d consecutive errors\n", cfg.ErrorThreshold)
	}

	return nil
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
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
