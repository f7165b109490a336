// ABOUTME: Entry point for the calendar mirror CLI
// ABOUTME: Routes to sync, daemon, status, and backend commands based on arguments
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"

	"github.com/harperreed/calmirror/charm"
	"github.com/harperreed/calmirror/cli"
	"github.com/harperreed/calmirror/db"
)

const version = "0.2.1"

func main() {
	// Optional .env for OAuth client credentials
	_ = godotenv.Load()

	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Database path (default: ~/.local/share/calmirror/calmirror.db)")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	// Handle version flag
	if *showVersion {
		fmt.Printf("calmirror version %s\n", version)
		os.Exit(0)
	}

	// Get remaining args after flags
	args := flag.Args()

	// If no command specified, show usage
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	// Route to top-level command
	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "backend":
		// Backend commands don't touch the local database
		if len(commandArgs) == 0 {
			fmt.Println("Error: backend requires a subcommand")
			printUsage()
			os.Exit(1)
		}

		backendCommand := commandArgs[0]
		backendArgs := commandArgs[1:]

		switch backendCommand {
		case "link":
			if err := charm.BackendLinkCommand(backendArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "status":
			if err := charm.BackendStatusCommand(backendArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "wipe":
			if err := charm.BackendWipeCommand(backendArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "sync":
			if err := charm.BackendSyncCommand(backendArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "auto":
			if err := charm.SetAutoSyncCommand(backendArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		default:
			fmt.Printf("Unknown backend command: %s\n\n", backendCommand)
			printUsage()
			os.Exit(1)
		}

	case "init", "sync", "daemon", "status", "reset", "config":
		finalDBPath := getDatabasePath(*dbPath)
		database, err := db.OpenDatabase(finalDBPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer database.Close()

		switch command {
		case "init":
			if err := cli.InitCommand(database, commandArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "sync":
			if err := cli.SyncCommand(database, commandArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "daemon":
			if err := cli.DaemonCommand(database, commandArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "status":
			if err := cli.StatusCommand(database, commandArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "reset":
			if err := cli.ResetCommand(database, commandArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "config":
			if err := cli.ConfigCommand(database, commandArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		}

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func getDatabasePath(dbPath string) string {
	if dbPath != "" {
		return dbPath
	}
	return filepath.Join(xdg.DataHome, "calmirror", "calmirror.db")
}

func printUsage() {
	fmt.Printf(`calmirror v%s - Calendar mirror sync

USAGE:
  calmirror [global flags] <command> [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       Database path (default: ~/.local/share/calmirror/calmirror.db)

COMMANDS:
  calmirror init            Authenticate with Google (OAuth flow)

  calmirror config          Show or update the mirror configuration
    --source <id>             Source calendar ID
    --target <id>             Target calendar ID
    --days-past <n>           Days of history to mirror (default: 7)
    --days-future <n>         Days of future to mirror (default: 30)
    --backend <name>          State backend: sqlite or charm
    --show                    Print the active configuration

  calmirror sync            Run one mirror pass
    --full                    Discard state and rebuild the mirror from scratch
    --delete-only             Remove all mirrored events without recreating them

  calmirror daemon          Run sync passes on a schedule
    --interval <dur>          Pass interval, minimum 5m (default: 15m)

  calmirror status          Show mirror state and recent passes
    --watch                   Interactive live status view

  calmirror reset           Clear mappings and sync state
    --confirm                 Confirm the reset

BACKEND COMMANDS (charm state backend):
  calmirror backend link    Link this device to a Charm account
  calmirror backend status  Show backend connection status
  calmirror backend sync    Force an immediate KV sync
    --verbose                 Show verbose output
  calmirror backend wipe    Delete all backend data
    --confirm                 Confirm data wipe
  calmirror backend auto    Enable or disable auto-sync
    --enable | --disable

EXAMPLES:
  # First-time setup
  calmirror init
  calmirror config --source me@example.com --target mirror@example.com

  # Run one pass
  calmirror sync

  # Keep the mirror fresh in the background
  calmirror daemon --interval 15m

  # Watch the mirror live
  calmirror status --watch

`, version)
}
