// internal/storage/activeip_repo.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pharmap/pharmap-backend/internal/domain"
)

// UpsertActiveIP records a client IP as active, replacing any existing
// window for the same address (sliding activity window).
func UpsertActiveIP(ctx context.Context, db *sql.DB, ip string, addedAt, expiresAt time.Time) error {
	sqlStatement := `
		INSERT INTO active_ips (ip_address, added_at, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (ip_address) DO UPDATE SET added_at = excluded.added_at, expires_at = excluded.expires_at`
	if _, err := db.ExecContext(ctx, sqlStatement, ip, addedAt, expiresAt); err != nil {
		customLog.Warnf("Storage: Failed to upsert active IP %s: %v", ip, err)
		return fmt.Errorf("database error upserting active IP: %w", err)
	}
	return nil
}

// ListActiveIPs returns the addresses whose window has not expired at
// the given instant. Expired rows are logically inactive even before
// the reaper removes them; the expires_at index serves this scan.
func ListActiveIPs(ctx context.Context, db *sql.DB, now time.Time) ([]domain.ActiveIP, error) {
	sqlStatement := `SELECT ip_address, added_at, expires_at FROM active_ips WHERE expires_at > ? ORDER BY expires_at`
	rows, err := db.QueryContext(ctx, sqlStatement, now)
	if err != nil {
		customLog.Warnf("Storage: Failed to list active IPs: %v", err)
		return nil, fmt.Errorf("database error listing active IPs: %w", err)
	}
	defer rows.Close()

	var ips []domain.ActiveIP
	for rows.Next() {
		var entry domain.ActiveIP
		if err := rows.Scan(&entry.IPAddress, &entry.AddedAt, &entry.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan active IP row: %w", err)
		}
		ips = append(ips, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading active IPs: %w", err)
	}
	return ips, nil
}

// DeleteExpiredIPs physically removes windows that expired before the
// given instant and returns how many rows went away.
func DeleteExpiredIPs(ctx context.Context, db *sql.DB, now time.Time) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM active_ips WHERE expires_at <= ?`, now)
	if err != nil {
		customLog.Warnf("Storage: Failed to delete expired IPs: %v", err)
		return 0, fmt.Errorf("database error deleting expired IPs: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}

// StartIPReaper runs DeleteExpiredIPs on the given interval until the
// context is cancelled. The storage layer stays query-time-filtered;
// the reaper only reclaims space.
func StartIPReaper(ctx context.Context, db *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := DeleteExpiredIPs(ctx, db, time.Now())
				if err != nil {
					customLog.Warnf("Storage: IP reaper pass failed: %v", err)
					continue
				}
				if removed > 0 {
					customLog.Printf("Storage: IP reaper removed %d expired entries", removed)
				}
			}
		}
	}()
}
