package syncops

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pocketledger/internal/dbx"
	"pocketledger/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, op *models.SyncOperation) error {
	query := `INSERT INTO sync_operations (id, type, status, attempts, max_attempts, next_retry_at, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		op.ID, string(op.Type), string(op.Status), op.Attempts, op.MaxAttempts,
		dbx.NullTime(op.NextRetryAt), op.Error, op.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create sync operation: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, op *models.SyncOperation) error {
	query := `UPDATE sync_operations
		SET status = ?, attempts = ?, next_retry_at = ?, error = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		string(op.Status), op.Attempts, dbx.NullTime(op.NextRetryAt), op.Error, op.ID)
	if err != nil {
		return fmt.Errorf("failed to update sync operation %s: %w", op.ID, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count for %s: %d", op.ID, ra)
	}
	return nil
}

const selectColumns = `id, type, status, attempts, max_attempts, next_retry_at, error, created_at`

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.SyncOperation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM sync_operations ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select sync operations: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func (r *SQLiteRepository) GetDue(ctx context.Context, now time.Time) ([]models.SyncOperation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM sync_operations
		WHERE status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)
		ORDER BY created_at, id`,
		string(models.StatusPending), now)
	if err != nil {
		return nil, fmt.Errorf("failed to select due sync operations: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func scanAll(rows *sql.Rows) ([]models.SyncOperation, error) {
	var result []models.SyncOperation
	for rows.Next() {
		var op models.SyncOperation
		var opType, status string
		var nextRetryAt sql.NullTime
		err := rows.Scan(&op.ID, &opType, &status, &op.Attempts, &op.MaxAttempts,
			&nextRetryAt, &op.Error, &op.CreatedAt)
		if err != nil {
			return nil, err
		}
		op.Type = models.OperationType(opType)
		op.Status = models.OperationStatus(status)
		if nextRetryAt.Valid {
			op.NextRetryAt = &nextRetryAt.Time
		}
		result = append(result, op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) countByStatus(ctx context.Context, status models.OperationStatus) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_operations WHERE status = ?`, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s operations: %w", status, err)
	}
	return n, nil
}

func (r *SQLiteRepository) PendingCount(ctx context.Context) (int, error) {
	return r.countByStatus(ctx, models.StatusPending)
}

func (r *SQLiteRepository) FailedCount(ctx context.Context) (int, error) {
	return r.countByStatus(ctx, models.StatusFailed)
}

func (r *SQLiteRepository) ResetFailed(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sync_operations
		SET status = ?, attempts = 0, next_retry_at = NULL, error = ''
		WHERE status = ?`,
		string(models.StatusPending), string(models.StatusFailed))
	if err != nil {
		return 0, fmt.Errorf("failed to reset failed operations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *SQLiteRepository) ClearCompleted(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sync_operations WHERE status = ?`, string(models.StatusCompleted))
	if err != nil {
		return 0, fmt.Errorf("failed to clear completed operations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *SQLiteRepository) ClearAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_operations`); err != nil {
		return fmt.Errorf("failed to clear sync operations: %w", err)
	}
	return nil
}
