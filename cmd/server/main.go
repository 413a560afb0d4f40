// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pharmap/pharmap-backend/api"
	"github.com/pharmap/pharmap-backend/config"
	"github.com/pharmap/pharmap-backend/internal/logger"
	"github.com/pharmap/pharmap-backend/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

func main() {
	customLog.Println("Starting pharmacy coverage backend...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		customLog.Fatalf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	// 2. Initialize Database Connection
	db, err := storage.ConnectDB(cfg)
	if err != nil {
		customLog.Fatalf("Failed to initialize database: %v", err)
		os.Exit(1)
	}
	defer func() {
		customLog.Println("Closing database connection...")
		if err := db.Close(); err != nil {
			customLog.Printf("Error closing database: %v", err)
		}
	}()

	// 3. Start the expired-IP reaper
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	storage.StartIPReaper(ctx, db, time.Hour)

	// 4. Setup Router (passing dependencies)
	router := api.SetupRouter(db, cfg)

	// 5. Start Server
	customLog.Printf("Server listening on port %s", cfg.ServerPort)
	if err := router.Run(fmt.Sprintf(":%s", cfg.ServerPort)); err != nil {
		customLog.Fatalf("Failed to start server: %v", err)
	}
}
