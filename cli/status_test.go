// ABOUTME: Tests for the plain status output path
// ABOUTME: Covers both state backends so status always reads the configured one
package cli

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harperreed/calmirror/charm"
	"github.com/harperreed/calmirror/db"
	"github.com/harperreed/calmirror/sync"
)

func setupTestDB(t *testing.T) *sql.DB {
	database, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test db: %v", err)
	}
	if err := db.InitSchema(database); err != nil {
		t.Fatalf("Failed to init schema: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func testConfig() *sync.Config {
	cfg := sync.DefaultConfig()
	cfg.SourceCalendarID = "me@example.com"
	cfg.TargetCalendarID = "mirror@example.com"
	return cfg
}

func TestPrintStatusFreshState(t *testing.T) {
	database := setupTestDB(t)
	cfg := testConfig()
	stores := sync.NewSQLiteStores(database, cfg.Pair())

	if err := printStatus(database, stores, cfg); err != nil {
		t.Fatalf("printStatus failed on fresh state: %v", err)
	}
}

func TestPrintStatusWithHistory(t *testing.T) {
	database := setupTestDB(t)
	cfg := testConfig()
	stores := sync.NewSQLiteStores(database, cfg.Pair())

	if err := db.UpdateSyncToken(database, cfg.Pair(), "tok-1"); err != nil {
		t.Fatalf("Failed to set token: %v", err)
	}
	if err := db.SetMapping(database, cfg.Pair(), "src-1", "tgt-1"); err != nil {
		t.Fatalf("Failed to set mapping: %v", err)
	}
	if err := db.CreateSyncRun(database, "run-1", cfg.Pair(), "full"); err != nil {
		t.Fatalf("Failed to create run: %v", err)
	}
	if err := db.FinishSyncRun(database, "run-1", "ok", 1, 0, 0, nil); err != nil {
		t.Fatalf("Failed to finish run: %v", err)
	}

	if err := printStatus(database, stores, cfg); err != nil {
		t.Fatalf("printStatus failed with history: %v", err)
	}
}

func TestPrintStatusCharmBackend(t *testing.T) {
	database := setupTestDB(t)
	cfg := testConfig()
	cfg.StateBackend = "charm"

	client, cleanup := charm.NewTestClient(t)
	defer cleanup()

	stores := sync.NewSQLiteStores(database, cfg.Pair())
	stores.Mappings, stores.State = charm.NewStores(client, cfg.Pair())

	// Mirror state lives only in the KV store; the SQLite mapping and
	// state tables stay empty
	if err := stores.Mappings.Set("src-1", "tgt-1"); err != nil {
		t.Fatalf("Failed to set mapping: %v", err)
	}
	if err := stores.State.SetToken("tok-1"); err != nil {
		t.Fatalf("Failed to set token: %v", err)
	}

	count, err := stores.Mappings.Count()
	if err != nil {
		t.Fatalf("Failed to count mappings: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 mapping in the KV store, got %d", count)
	}

	snap, err := stores.State.Get()
	if err != nil {
		t.Fatalf("Failed to read state: %v", err)
	}
	if snap.Token != "tok-1" || snap.Status != "idle" {
		t.Fatalf("KV state not visible through the store: %+v", snap)
	}
	if snap.LastSync == nil {
		t.Fatal("Committing a token should record the sync time")
	}

	if err := printStatus(database, stores, cfg); err != nil {
		t.Fatalf("printStatus failed on the charm backend: %v", err)
	}
}

func TestBuildStoresDefaultsToSQLite(t *testing.T) {
	database := setupTestDB(t)
	cfg := testConfig()

	stores, err := buildStores(database, cfg)
	if err != nil {
		t.Fatalf("buildStores failed: %v", err)
	}
	if stores.Mappings == nil || stores.State == nil || stores.Locker == nil || stores.Runs == nil {
		t.Fatal("all stores should be wired")
	}
}
