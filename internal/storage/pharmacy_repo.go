// internal/storage/pharmacy_repo.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/pharmap/pharmap-backend/internal/domain"
)

// Specific errors for pharmacy and link operations
var (
	ErrPharmacyNotFound   = errors.New("pharmacy not found")
	ErrAlreadyLinked      = errors.New("pharmacy already linked to this search")
	ErrLinkTargetNotFound = errors.New("search or pharmacy not found")
)

// UpsertPharmacy resolves the pharmacy identified by (name, latitude,
// longitude) to a row id, inserting it if absent. The conditional insert
// is a single statement, so two callers racing to discover the same
// pharmacy converge on one row; never select-then-insert here.
func UpsertPharmacy(ctx context.Context, db *sql.DB, name, address string, latitude, longitude float64) (int64, error) {
	insertSQL := `
		INSERT INTO pharmacies (name, address, latitude, longitude)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name, latitude, longitude) DO NOTHING`
	if _, err := db.ExecContext(ctx, insertSQL, name, address, latitude, longitude); err != nil {
		customLog.Warnf("Storage: Failed to upsert pharmacy '%s': %v", name, err)
		return 0, fmt.Errorf("database error upserting pharmacy: %w", err)
	}

	var id int64
	lookupSQL := `SELECT id FROM pharmacies WHERE name = ? AND latitude = ? AND longitude = ? LIMIT 1`
	err := db.QueryRowContext(ctx, lookupSQL, name, latitude, longitude).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrPharmacyNotFound
		}
		customLog.Warnf("Storage: Failed to resolve pharmacy '%s' after upsert: %v", name, err)
		return 0, fmt.Errorf("database error resolving pharmacy: %w", err)
	}
	return id, nil
}

// GetPharmacy retrieves a pharmacy by id.
func GetPharmacy(ctx context.Context, db *sql.DB, id int64) (*domain.Pharmacy, error) {
	sqlStatement := `SELECT id, name, COALESCE(address, ''), latitude, longitude FROM pharmacies WHERE id = ? LIMIT 1`
	var p domain.Pharmacy
	err := db.QueryRowContext(ctx, sqlStatement, id).Scan(&p.ID, &p.Name, &p.Address, &p.Latitude, &p.Longitude)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPharmacyNotFound
		}
		customLog.Warnf("Storage: Failed to get pharmacy %d: %v", id, err)
		return nil, fmt.Errorf("database error finding pharmacy: %w", err)
	}
	return &p, nil
}

// LinkSearchPharmacy records that a search returned a pharmacy.
// Returns ErrAlreadyLinked when the pair exists (idempotent callers
// treat this as a no-op) and ErrLinkTargetNotFound when either side is
// missing.
func LinkSearchPharmacy(ctx context.Context, db *sql.DB, searchID, pharmacyID int64) error {
	return insertSearchLink(ctx, db, searchID, pharmacyID)
}

func insertSearchLink(ctx context.Context, ex execer, searchID, pharmacyID int64) error {
	sqlStatement := `INSERT INTO search_pharmacies (search_id, pharmacy_id) VALUES (?, ?)`
	_, err := ex.ExecContext(ctx, sqlStatement, searchID, pharmacyID)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			switch sqliteErr.ExtendedCode {
			case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
				return ErrAlreadyLinked
			case sqlite3.ErrConstraintForeignKey:
				return ErrLinkTargetNotFound
			}
		}
		customLog.Warnf("Storage: Failed to link search %d to pharmacy %d: %v", searchID, pharmacyID, err)
		return fmt.Errorf("database error linking pharmacy: %w", err)
	}
	return nil
}

// PharmaciesForSearch returns all pharmacies linked to a search.
func PharmaciesForSearch(ctx context.Context, db *sql.DB, searchID int64) ([]domain.Pharmacy, error) {
	sqlStatement := `
		SELECT p.id, p.name, COALESCE(p.address, ''), p.latitude, p.longitude
		FROM pharmacies p
		JOIN search_pharmacies sp ON p.id = sp.pharmacy_id
		WHERE sp.search_id = ?
		ORDER BY p.name`
	rows, err := db.QueryContext(ctx, sqlStatement, searchID)
	if err != nil {
		customLog.Warnf("Storage: Failed to list pharmacies for search %d: %v", searchID, err)
		return nil, fmt.Errorf("database error listing pharmacies: %w", err)
	}
	defer rows.Close()

	var pharmacies []domain.Pharmacy
	for rows.Next() {
		var p domain.Pharmacy
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.Latitude, &p.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan pharmacy row: %w", err)
		}
		pharmacies = append(pharmacies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading pharmacies: %w", err)
	}
	return pharmacies, nil
}
