// internal/storage/migrate.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pharmap/pharmap-backend/internal/domain"
)

// ErrMigrationDone signals that the legacy import already completed.
var ErrMigrationDone = errors.New("legacy migration already completed")

// Legacy JSON layouts, as exported by the pre-SQL deployment.

type legacyUser struct {
	Password string `json:"password"`
	Credits  int    `json:"credits"`
	IsAdmin  bool   `json:"is_admin"`
}

type legacyRequestCount struct {
	TotalRequests int `json:"total_requests"`
}

type legacySearch struct {
	Name          string            `json:"name"`
	UserID        string            `json:"user_id"`
	Bounds        domain.Bounds     `json:"bounds"`
	SearchType    string            `json:"search_type"`
	SubareaStep   float64           `json:"subarea_step"`
	SubareaRadius int               `json:"subarea_radius"`
	TotalRequests int               `json:"total_requests"`
	MapHTML       string            `json:"map_html"`
	CenterLat     float64           `json:"center_lat"`
	CenterLon     float64           `json:"center_lon"`
	Zoom          int               `json:"zoom"`
	Timestamp     string            `json:"timestamp"`
	Pharmacies    []domain.Pharmacy `json:"pharmacies"`
}

// parseLegacyTimestamp accepts the formats the Python exporter produced:
// RFC3339 and naive ISO timestamps with or without fractional seconds.
func parseLegacyTimestamp(value string) (time.Time, bool) {
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MigrationPending reports whether the one-shot legacy import still has
// to run. The guard row (id=1) is created on first call.
func MigrationPending(ctx context.Context, db *sql.DB) (bool, error) {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO migration_status (id, status, last_migration_date) VALUES (1, 'pending', NULL)`)
	if err != nil {
		return false, fmt.Errorf("database error initializing migration status: %w", err)
	}

	var status string
	if err := db.QueryRowContext(ctx, `SELECT status FROM migration_status WHERE id = 1`).Scan(&status); err != nil {
		return false, fmt.Errorf("database error reading migration status: %w", err)
	}
	return status != "completed", nil
}

// MigrateLegacyJSON imports the legacy JSON exports (users, search
// history and per-user request counts) into the relational store. The
// import is idempotent: a completed run flips migration_status and a
// re-run returns ErrMigrationDone without touching data. The request
// count file is optional, matching the legacy deployments that never
// produced one.
func MigrateLegacyJSON(ctx context.Context, db *sql.DB, usersPath, searchesPath, requestCountPath string) error {
	pending, err := MigrationPending(ctx, db)
	if err != nil {
		return err
	}
	if !pending {
		return ErrMigrationDone
	}

	users, err := readLegacyUsers(usersPath)
	if err != nil {
		return err
	}
	for username, u := range users {
		err := CreateUser(ctx, db, username, u.Password, u.Credits, u.IsAdmin)
		if err != nil && !errors.Is(err, ErrUsernameExists) {
			return fmt.Errorf("importing user %s: %w", username, err)
		}
	}
	customLog.Printf("Migration: imported %d users", len(users))

	if requestCountPath != "" {
		counts, err := readLegacyRequestCounts(requestCountPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return err
			}
			customLog.Println("Migration: no request count file, skipping")
		} else {
			updated := 0
			for username, c := range counts {
				if username == "admin" {
					continue
				}
				err := IncrementTotalRequests(ctx, db, username, c.TotalRequests)
				if errors.Is(err, ErrUserNotFound) {
					customLog.Warnf("Migration: user %s missing, request count skipped", username)
					continue
				}
				if err != nil {
					return fmt.Errorf("importing request count for %s: %w", username, err)
				}
				updated++
			}
			customLog.Printf("Migration: imported request counts for %d users", updated)
		}
	}

	searches, err := readLegacySearches(searchesPath)
	if err != nil {
		return err
	}
	for _, entry := range searches {
		if entry.UserID == "" {
			customLog.Warnf("Migration: search '%s' has no user, skipped", entry.Name)
			continue
		}
		search := &domain.Search{
			Name:          entry.Name,
			UserID:        entry.UserID,
			Bounds:        entry.Bounds,
			SearchType:    entry.SearchType,
			SubareaStep:   entry.SubareaStep,
			SubareaRadius: entry.SubareaRadius,
			TotalRequests: entry.TotalRequests,
			MapHTML:       entry.MapHTML,
			CenterLat:     entry.CenterLat,
			CenterLon:     entry.CenterLon,
			Zoom:          entry.Zoom,
		}
		if t, ok := parseLegacyTimestamp(entry.Timestamp); ok {
			search.Timestamp = t
		} else {
			search.Timestamp = time.Now().UTC()
		}
		searchID, err := RecordSearch(ctx, db, search)
		if err != nil {
			return fmt.Errorf("importing search '%s': %w", entry.Name, err)
		}
		for _, p := range entry.Pharmacies {
			pharmacyID, err := UpsertPharmacy(ctx, db, p.Name, p.Address, p.Latitude, p.Longitude)
			if err != nil {
				return fmt.Errorf("importing pharmacy '%s': %w", p.Name, err)
			}
			if err := LinkSearchPharmacy(ctx, db, searchID, pharmacyID); err != nil && !errors.Is(err, ErrAlreadyLinked) {
				return fmt.Errorf("linking pharmacy '%s' to search '%s': %w", p.Name, entry.Name, err)
			}
		}
	}
	customLog.Printf("Migration: imported %d searches", len(searches))

	_, err = db.ExecContext(ctx,
		`UPDATE migration_status SET status = 'completed', last_migration_date = ? WHERE id = 1`, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("database error completing migration: %w", err)
	}
	return nil
}

func readLegacyUsers(path string) (map[string]legacyUser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading users file: %w", err)
	}
	users := make(map[string]legacyUser)
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decoding users file: %w", err)
	}
	return users, nil
}

func readLegacyRequestCounts(path string) (map[string]legacyRequestCount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]legacyRequestCount)
	if err := json.Unmarshal(data, &counts); err != nil {
		return nil, fmt.Errorf("decoding request count file: %w", err)
	}
	return counts, nil
}

func readLegacySearches(path string) ([]legacySearch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading search history file: %w", err)
	}
	var searches []legacySearch
	if err := json.Unmarshal(data, &searches); err != nil {
		return nil, fmt.Errorf("decoding search history file: %w", err)
	}
	return searches, nil
}
