// internal/storage/search_repo.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/pharmap/pharmap-backend/internal/domain"
)

// Specific errors for search history operations
var (
	ErrSearchNotFound  = errors.New("search not found")
	ErrSearchNameTaken = errors.New("search name already used")
)

// execer covers *sql.DB and *sql.Tx for the insert helpers.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// RecordSearch inserts a completed search and returns its generated id.
// Rows are immutable once written; there is no update path.
func RecordSearch(ctx context.Context, db *sql.DB, s *domain.Search) (int64, error) {
	return insertSearch(ctx, db, s)
}

// RecordSearchWithPharmacies persists a search together with its
// pharmacy links in one transaction, so a failed link never leaves a
// half-recorded search behind.
func RecordSearchWithPharmacies(ctx context.Context, db *sql.DB, s *domain.Search, pharmacyIDs []int64) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	searchID, err := insertSearch(ctx, tx, s)
	if err != nil {
		return 0, err
	}
	for _, pharmacyID := range pharmacyIDs {
		err := insertSearchLink(ctx, tx, searchID, pharmacyID)
		if err != nil && !errors.Is(err, ErrAlreadyLinked) {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit search: %w", err)
	}
	return searchID, nil
}

func insertSearch(ctx context.Context, ex execer, s *domain.Search) (int64, error) {
	boundsJSON, err := json.Marshal(s.Bounds)
	if err != nil {
		return 0, fmt.Errorf("failed to encode bounds: %w", err)
	}

	sqlStatement := `
		INSERT INTO search_history
			(name, user_id, bounds, search_type, subarea_step, subarea_radius,
			 total_requests, map_html, center_lat, center_lon, zoom, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := ex.ExecContext(ctx, sqlStatement,
		s.Name, s.UserID, string(boundsJSON), s.SearchType, s.SubareaStep, s.SubareaRadius,
		s.TotalRequests, s.MapHTML, s.CenterLat, s.CenterLon, s.Zoom, s.Timestamp)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint &&
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return 0, ErrUserNotFound
		}
		customLog.Warnf("Storage: Failed to record search '%s' for %s: %v", s.Name, s.UserID, err)
		return 0, fmt.Errorf("database error recording search: %w", err)
	}

	searchID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve search ID after insert: %w", err)
	}
	return searchID, nil
}

// SearchNameTaken reports whether a search name is already used. For a
// regular user the namespace is per-user (served by the user_id+name
// index); the admin sees the global namespace.
func SearchNameTaken(ctx context.Context, db *sql.DB, username, name string, isAdmin bool) (bool, error) {
	var query string
	var args []any
	if isAdmin {
		query = `SELECT 1 FROM search_history WHERE name = ? LIMIT 1`
		args = []any{name}
	} else {
		query = `SELECT 1 FROM search_history WHERE user_id = ? AND name = ? LIMIT 1`
		args = []any{username, name}
	}

	var one int
	err := db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		customLog.Warnf("Storage: Failed checking search name '%s': %v", name, err)
		return false, fmt.Errorf("database error checking search name: %w", err)
	}
	return true, nil
}

// GetSearch retrieves a single search with its linked pharmacies.
func GetSearch(ctx context.Context, db *sql.DB, id int64) (*domain.Search, error) {
	sqlStatement := `
		SELECT id, name, user_id, bounds, search_type, subarea_step, subarea_radius,
		       total_requests, map_html, center_lat, center_lon, zoom, timestamp
		FROM search_history WHERE id = ? LIMIT 1`
	s, err := scanSearch(db.QueryRowContext(ctx, sqlStatement, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSearchNotFound
		}
		customLog.Warnf("Storage: Failed to get search %d: %v", id, err)
		return nil, fmt.Errorf("database error finding search: %w", err)
	}

	s.Pharmacies, err = PharmaciesForSearch(ctx, db, s.ID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListSearches returns the search history for one user, newest first.
// An empty username lists every user's history (admin view). Linked
// pharmacies are attached to each entry.
func ListSearches(ctx context.Context, db *sql.DB, username string) ([]domain.Search, error) {
	query := `
		SELECT id, name, user_id, bounds, search_type, subarea_step, subarea_radius,
		       total_requests, map_html, center_lat, center_lon, zoom, timestamp
		FROM search_history`
	var args []any
	if username != "" {
		query += ` WHERE user_id = ?`
		args = append(args, username)
	}
	query += ` ORDER BY timestamp DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		customLog.Warnf("Storage: Failed to list searches: %v", err)
		return nil, fmt.Errorf("database error listing searches: %w", err)
	}
	defer rows.Close()

	var searches []domain.Search
	for rows.Next() {
		s, err := scanSearch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		searches = append(searches, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading searches: %w", err)
	}

	for i := range searches {
		searches[i].Pharmacies, err = PharmaciesForSearch(ctx, db, searches[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return searches, nil
}

// TotalRequestsAcrossSearches sums the request counts consumed by all
// recorded searches (usage/billing view).
func TotalRequestsAcrossSearches(ctx context.Context, db *sql.DB) (int, error) {
	var total sql.NullInt64
	err := db.QueryRowContext(ctx, `SELECT SUM(total_requests) FROM search_history`).Scan(&total)
	if err != nil {
		customLog.Warnf("Storage: Failed to sum search requests: %v", err)
		return 0, fmt.Errorf("database error summing search requests: %w", err)
	}
	return int(total.Int64), nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSearch(row rowScanner) (*domain.Search, error) {
	var s domain.Search
	var boundsJSON sql.NullString
	var searchType, mapHTML sql.NullString
	err := row.Scan(&s.ID, &s.Name, &s.UserID, &boundsJSON, &searchType, &s.SubareaStep,
		&s.SubareaRadius, &s.TotalRequests, &mapHTML, &s.CenterLat, &s.CenterLon, &s.Zoom, &s.Timestamp)
	if err != nil {
		return nil, err
	}
	s.SearchType = searchType.String
	s.MapHTML = mapHTML.String
	if boundsJSON.Valid && boundsJSON.String != "" {
		if err := json.Unmarshal([]byte(boundsJSON.String), &s.Bounds); err != nil {
			return nil, fmt.Errorf("failed to decode bounds: %w", err)
		}
	}
	return &s, nil
}
