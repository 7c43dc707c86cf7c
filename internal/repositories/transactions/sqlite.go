package transactions

import (
	"context"
	"database/sql"
	"fmt"

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

const selectColumns = `id, profile_id, amount, type, motif_id, description,
	created_by, created_at, deleted_at, linked_transaction_id, hidden_for_users`

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM transactions ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select transactions: %w", err)
	}
	defer rows.Close()

	var result []models.Transaction
	for rows.Next() {
		tx, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanRow(rows *sql.Rows) (models.Transaction, error) {
	var tx models.Transaction
	var txType string
	var description sql.NullString
	var deletedAt sql.NullTime
	var linkedID sql.NullInt64
	err := rows.Scan(&tx.ID, &tx.ProfileID, &tx.Amount, &txType, &tx.MotifID,
		&description, &tx.CreatedBy, &tx.CreatedAt, &deletedAt, &linkedID, &tx.HiddenForUsers)
	if err != nil {
		return tx, err
	}
	tx.Type = models.EntryType(txType)
	if description.Valid {
		tx.Description = &description.String
	}
	if deletedAt.Valid {
		tx.DeletedAt = &deletedAt.Time
	}
	if linkedID.Valid {
		tx.LinkedTransactionID = &linkedID.Int64
	}
	return tx, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, tx *models.Transaction) (int64, error) {
	query := `INSERT INTO transactions (profile_id, amount, type, motif_id, description,
			created_by, created_at, deleted_at, linked_transaction_id, hidden_for_users)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		tx.ProfileID, tx.Amount, string(tx.Type), tx.MotifID, dbx.NullString(tx.Description),
		tx.CreatedBy, tx.CreatedAt, dbx.NullTime(tx.DeletedAt),
		dbx.NullInt64(tx.LinkedTransactionID), tx.HiddenForUsers)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted id: %w", err)
	}
	tx.ID = id
	return id, nil
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, rows []models.Transaction) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("failed to clear transactions: %w", err)
	}
	return r.UpsertAll(ctx, rows)
}

func (r *SQLiteRepository) UpsertAll(ctx context.Context, rows []models.Transaction) error {
	query := `INSERT INTO transactions (id, profile_id, amount, type, motif_id, description,
			created_by, created_at, deleted_at, linked_transaction_id, hidden_for_users)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET profile_id = excluded.profile_id,
			amount = excluded.amount,
			type = excluded.type,
			motif_id = excluded.motif_id,
			description = excluded.description,
			created_by = excluded.created_by,
			created_at = excluded.created_at,
			deleted_at = excluded.deleted_at,
			linked_transaction_id = excluded.linked_transaction_id,
			hidden_for_users = excluded.hidden_for_users
	`
	for _, tx := range rows {
		_, err := r.db.ExecContext(ctx, query,
			tx.ID, tx.ProfileID, tx.Amount, string(tx.Type), tx.MotifID, dbx.NullString(tx.Description),
			tx.CreatedBy, tx.CreatedAt, dbx.NullTime(tx.DeletedAt),
			dbx.NullInt64(tx.LinkedTransactionID), tx.HiddenForUsers)
		if err != nil {
			return fmt.Errorf("failed to upsert transaction %d: %w", tx.ID, err)
		}
	}
	return nil
}
