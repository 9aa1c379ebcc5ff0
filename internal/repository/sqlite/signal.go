package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/signal-registry/internal/apperror"
	"github.com/sakif/signal-registry/internal/model"
	"github.com/sakif/signal-registry/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// If *DB stops implementing repository.SignalRepository, this line fails to compile.
var _ repository.SignalRepository = (*DB)(nil)

// ListSignalIDs returns the allocated signal IDs, for one user or for everyone.
//
// The result is fed into signalid.Allocate, which only needs the set of IDs, so
// the order is irrelevant. DISTINCT keeps the slice small when many users share
// low numbers.
func (db *DB) ListSignalIDs(ctx context.Context, userID string) ([]int, error) {
	query := `SELECT DISTINCT signal_id FROM signals`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing signal ids: %w", err)
	}
	// CRITICAL: always close rows when done!
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning signal id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating signal ids: %w", err)
	}

	return ids, nil
}

// Exists reports whether a signal with this (userID, signalID) pair is stored.
func (db *DB) Exists(ctx context.Context, userID string, signalID int) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM signals WHERE user_id = ? AND signal_id = ?)`,
		userID, signalID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking signal (%s, %d): %w", userID, signalID, err)
	}
	return exists, nil
}

// Insert stores a new signal and fills in its timestamps.
//
// The caller has already checked Exists, but a concurrent create can still get
// here first. The primary key catches that and we translate it into a Conflict.
func (db *DB) Insert(ctx context.Context, signal *model.Signal) error {
	now := time.Now().UTC()
	signal.CreatedAt = now
	signal.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO signals (user_id, signal_id, description, object_key, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		signal.UserID,
		signal.SignalID,
		signal.Description,
		signal.ObjectKey,
		signal.CreatedAt,
		signal.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("signal", pairID(signal.UserID, signal.SignalID))
		}
		return fmt.Errorf("sqlite: inserting signal (%s, %d): %w", signal.UserID, signal.SignalID, err)
	}

	return nil
}

// Update changes the description, and the object key when objectKey is non-nil.
// A nil objectKey leaves the stored key untouched.
func (db *DB) Update(ctx context.Context, userID string, signalID int, description string, objectKey *string) error {
	now := time.Now().UTC()

	var (
		result sql.Result
		err    error
	)
	if objectKey != nil {
		result, err = db.conn.ExecContext(ctx,
			`UPDATE signals
			 SET description = ?, object_key = ?, updated_at = ?
			 WHERE user_id = ? AND signal_id = ?`,
			description, *objectKey, now, userID, signalID,
		)
	} else {
		result, err = db.conn.ExecContext(ctx,
			`UPDATE signals
			 SET description = ?, updated_at = ?
			 WHERE user_id = ? AND signal_id = ?`,
			description, now, userID, signalID,
		)
	}
	if err != nil {
		return fmt.Errorf("sqlite: updating signal (%s, %d): %w", userID, signalID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("signal", pairID(userID, signalID))
	}

	return nil
}

// Get returns the full signal record.
func (db *DB) Get(ctx context.Context, userID string, signalID int) (*model.Signal, error) {
	var s model.Signal
	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id, signal_id, description, object_key, created_at, updated_at
		 FROM signals
		 WHERE user_id = ? AND signal_id = ?`,
		userID, signalID,
	).Scan(
		&s.UserID,
		&s.SignalID,
		&s.Description,
		&s.ObjectKey,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("signal", pairID(userID, signalID))
		}
		return nil, fmt.Errorf("sqlite: getting signal (%s, %d): %w", userID, signalID, err)
	}

	return &s, nil
}

// GetObjectKey returns only the object key of a signal.
func (db *DB) GetObjectKey(ctx context.Context, userID string, signalID int) (string, error) {
	var key string
	err := db.conn.QueryRowContext(ctx,
		`SELECT object_key FROM signals WHERE user_id = ? AND signal_id = ?`,
		userID, signalID,
	).Scan(&key)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", apperror.NotFound("signal", pairID(userID, signalID))
		}
		return "", fmt.Errorf("sqlite: reading object key of (%s, %d): %w", userID, signalID, err)
	}
	return key, nil
}

// Delete removes a signal. Returns NotFound if nothing was deleted.
func (db *DB) Delete(ctx context.Context, userID string, signalID int) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM signals WHERE user_id = ? AND signal_id = ?`,
		userID, signalID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting signal (%s, %d): %w", userID, signalID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("signal", pairID(userID, signalID))
	}

	return nil
}

// CountReferences counts the signals that point at objectKey.
func (db *DB) CountReferences(ctx context.Context, objectKey string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM signals WHERE object_key = ?`,
		objectKey,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting references to %q: %w", objectKey, err)
	}
	return count, nil
}

func pairID(userID string, signalID int) string {
	return userID + "/" + strconv.Itoa(signalID)
}
