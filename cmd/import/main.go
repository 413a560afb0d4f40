// cmd/import/main.go
//
// One-shot importer for the legacy JSON data files. Safe to run more than
// once: the import is recorded in the database and skipped once completed.
package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/pharmap/pharmap-backend/config"
	"github.com/pharmap/pharmap-backend/internal/logger"
	"github.com/pharmap/pharmap-backend/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

func main() {
	usersPath := flag.String("users", "users.json", "path to the legacy users file")
	searchesPath := flag.String("searches", "search_history.json", "path to the legacy search history file")
	requestCountPath := flag.String("request-counts", "request_count.json", "path to the legacy request count file")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		customLog.Fatalf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	db, err := storage.ConnectDB(cfg)
	if err != nil {
		customLog.Fatalf("Failed to initialize database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	err = storage.MigrateLegacyJSON(context.Background(), db, *usersPath, *searchesPath, *requestCountPath)
	if errors.Is(err, storage.ErrMigrationDone) {
		customLog.Println("Legacy import already completed, nothing to do")
		return
	}
	if err != nil {
		customLog.Fatalf("Legacy import failed: %v", err)
		os.Exit(1)
	}
	customLog.Println("Legacy import completed")
}
