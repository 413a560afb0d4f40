// internal/storage/user_repo.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/pharmap/pharmap-backend/internal/domain"
)

// Specific errors for user operations
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUsernameExists      = errors.New("username already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// CreateUser inserts a new user row.
func CreateUser(ctx context.Context, db *sql.DB, username, passwordHash string, credits int, isAdmin bool) error {
	sqlStatement := `INSERT INTO users (username, password_hash, credits, is_admin) VALUES (?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, sqlStatement, username, passwordHash, credits, isAdmin)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
			return ErrUsernameExists
		}
		customLog.Warnf("Storage: Failed to insert user %s: %v", username, err)
		return fmt.Errorf("database error during user creation: %w", err)
	}
	return nil
}

// FindUserByUsername retrieves a user by their username.
func FindUserByUsername(ctx context.Context, db *sql.DB, username string) (*domain.User, error) {
	sqlStatement := `SELECT username, password_hash, credits, is_admin, total_requests FROM users WHERE username = ? LIMIT 1`
	row := db.QueryRowContext(ctx, sqlStatement, username)
	var user domain.User
	err := row.Scan(&user.Username, &user.PasswordHash, &user.Credits, &user.IsAdmin, &user.TotalRequests)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		customLog.Warnf("Storage: Failed to find user %s: %v", username, err)
		return nil, fmt.Errorf("database error finding user: %w", err)
	}
	return &user, nil
}

// ListUsers returns all users ordered by username.
func ListUsers(ctx context.Context, db *sql.DB) ([]domain.User, error) {
	sqlStatement := `SELECT username, password_hash, credits, is_admin, total_requests FROM users ORDER BY username`
	rows, err := db.QueryContext(ctx, sqlStatement)
	if err != nil {
		customLog.Warnf("Storage: Failed to list users: %v", err)
		return nil, fmt.Errorf("database error listing users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.Username, &user.PasswordHash, &user.Credits, &user.IsAdmin, &user.TotalRequests); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading users: %w", err)
	}
	return users, nil
}

// AdjustCredits applies a delta to a user's credit balance as a single
// atomic read-modify-write. A negative delta is refused when the balance
// would go below zero (the WHERE clause guards the decrement).
func AdjustCredits(ctx context.Context, db *sql.DB, username string, delta int) error {
	sqlStatement := `UPDATE users SET credits = credits + ? WHERE username = ? AND credits + ? >= 0`
	result, err := db.ExecContext(ctx, sqlStatement, delta, username, delta)
	if err != nil {
		customLog.Warnf("Storage: Failed to adjust credits for %s: %v", username, err)
		return fmt.Errorf("database error adjusting credits: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		// Either the user is missing or the guard rejected the decrement.
		if _, err := FindUserByUsername(ctx, db, username); err != nil {
			return err
		}
		return ErrInsufficientCredits
	}
	return nil
}

// SetCredits overwrites a user's credit balance.
func SetCredits(ctx context.Context, db *sql.DB, username string, credits int) error {
	result, err := db.ExecContext(ctx, `UPDATE users SET credits = ? WHERE username = ?`, credits, username)
	if err != nil {
		customLog.Warnf("Storage: Failed to set credits for %s: %v", username, err)
		return fmt.Errorf("database error setting credits: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// IncrementTotalRequests adds delta to a user's running request count.
// The increment happens inside the UPDATE so concurrent callers cannot
// lose updates.
func IncrementTotalRequests(ctx context.Context, db *sql.DB, username string, delta int) error {
	result, err := db.ExecContext(ctx, `UPDATE users SET total_requests = total_requests + ? WHERE username = ?`, delta, username)
	if err != nil {
		customLog.Warnf("Storage: Failed to increment request count for %s: %v", username, err)
		return fmt.Errorf("database error incrementing request count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteUser removes a user together with their search history and its
// pharmacy links. The FKs are declared without cascades, so the children
// are removed explicitly inside one transaction (pharmacies themselves
// are shared across searches and stay).
func DeleteUser(ctx context.Context, db *sql.DB, username string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM search_pharmacies
		WHERE search_id IN (SELECT id FROM search_history WHERE user_id = ?)`, username)
	if err != nil {
		customLog.Warnf("Storage: Failed to delete search links for %s: %v", username, err)
		return fmt.Errorf("database error deleting search links: %w", err)
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM search_history WHERE user_id = ?`, username)
	if err != nil {
		customLog.Warnf("Storage: Failed to delete search history for %s: %v", username, err)
		return fmt.Errorf("database error deleting search history: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		customLog.Warnf("Storage: Failed to delete user %s: %v", username, err)
		return fmt.Errorf("database error deleting user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return tx.Commit()
}
