// internal/storage/database.go
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // Driver registration

	"github.com/pharmap/pharmap-backend/config"
	"github.com/pharmap/pharmap-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// ConnectDB initializes the connection pool for the SQLite database and
// ensures all application tables and indexes exist.
func ConnectDB(cfg *config.Config) (*sql.DB, error) {
	dbPath := filepath.Join(cfg.DatabaseDir, cfg.DatabaseFile)
	customLog.Printf("Storage: Initializing database: %s", dbPath)

	// Ensure the data directory exists
	if err := os.MkdirAll(cfg.DatabaseDir, 0o750); err != nil {
		customLog.Warnf("Storage: Error creating data directory '%s': %v", cfg.DatabaseDir, err)
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// _foreign_keys enforces the FK constraints; _busy_timeout keeps
	// concurrent writers queued instead of failing with SQLITE_BUSY.
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		customLog.Warnf("Storage: Failed to open db '%s': %v", dbPath, err)
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// Verify connection is working
	if err = db.Ping(); err != nil {
		db.Close()
		customLog.Warnf("Storage: Failed to ping db '%s': %v", dbPath, err)
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	customLog.Println("Storage: Database connection successful.")

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// ensureSchema creates the application tables and indexes if missing.
// Declaration order follows the dependency graph: users and pharmacies
// first, then search_history, then the join table.
func ensureSchema(db *sql.DB) error {
	statements := []struct {
		object string
		ddl    string
	}{
		{"users", `
		CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			credits INTEGER NOT NULL DEFAULT 0,
			is_admin INTEGER NOT NULL DEFAULT 0,
			total_requests INTEGER NOT NULL DEFAULT 0
		);`},
		{"pharmacies", `
		CREATE TABLE IF NOT EXISTS pharmacies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			address TEXT,
			latitude REAL,
			longitude REAL,
			UNIQUE (name, latitude, longitude)
		);`},
		{"search_history", `
		CREATE TABLE IF NOT EXISTS search_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			user_id TEXT NOT NULL,
			bounds TEXT,
			search_type TEXT,
			subarea_step REAL,
			subarea_radius INTEGER,
			total_requests INTEGER,
			map_html TEXT,
			center_lat REAL,
			center_lon REAL,
			zoom INTEGER,
			timestamp TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(username)
		);`},
		{"search_pharmacies", `
		CREATE TABLE IF NOT EXISTS search_pharmacies (
			search_id INTEGER NOT NULL,
			pharmacy_id INTEGER NOT NULL,
			PRIMARY KEY (search_id, pharmacy_id),
			FOREIGN KEY (search_id) REFERENCES search_history(id),
			FOREIGN KEY (pharmacy_id) REFERENCES pharmacies(id)
		);`},
		{"active_ips", `
		CREATE TABLE IF NOT EXISTS active_ips (
			ip_address TEXT PRIMARY KEY,
			added_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL
		);`},
		{"migration_status", `
		CREATE TABLE IF NOT EXISTS migration_status (
			id INTEGER PRIMARY KEY,
			status TEXT NOT NULL,
			last_migration_date TIMESTAMP
		);`},
		{"idx_search_history_user_name", `
		CREATE INDEX IF NOT EXISTS idx_search_history_user_name
			ON search_history (user_id, name);`},
		{"idx_active_ips_expires_at", `
		CREATE INDEX IF NOT EXISTS idx_active_ips_expires_at
			ON active_ips (expires_at);`},
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt.ddl); err != nil {
			customLog.Warnf("Storage: Failed to ensure %s: %v", stmt.object, err)
			return fmt.Errorf("failed to ensure %s: %w", stmt.object, err)
		}
	}
	customLog.Println("Storage: Tables and indexes ensured.")
	return nil
}
