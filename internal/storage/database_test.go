// internal/storage/database_test.go
package storage

import (
	"database/sql"
	"testing"

	"github.com/pharmap/pharmap-backend/config"
)

// testDB opens a fresh temporary database with the full schema applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := &config.Config{
		DatabaseDir:  t.TempDir(),
		DatabaseFile: "test_pharmacy.db",
	}
	db, err := ConnectDB(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	})
	return db
}

func TestConnectDBCreatesSchema(t *testing.T) {
	db := testDB(t)

	for _, table := range []string{
		"users", "pharmacies", "search_history", "search_pharmacies", "active_ips", "migration_status",
	} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing after ConnectDB: %v", table, err)
		}
	}

	for _, index := range []string{"idx_search_history_user_name", "idx_active_ips_expires_at"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?`, index).Scan(&name)
		if err != nil {
			t.Errorf("index %s missing after ConnectDB: %v", index, err)
		}
	}
}

func TestConnectDBIsIdempotent(t *testing.T) {
	cfg := &config.Config{
		DatabaseDir:  t.TempDir(),
		DatabaseFile: "test_pharmacy.db",
	}
	db, err := ConnectDB(cfg)
	if err != nil {
		t.Fatalf("first ConnectDB failed: %v", err)
	}
	db.Close()

	// Reopening the same file must not fail on existing tables.
	db, err = ConnectDB(cfg)
	if err != nil {
		t.Fatalf("second ConnectDB failed: %v", err)
	}
	db.Close()
}
