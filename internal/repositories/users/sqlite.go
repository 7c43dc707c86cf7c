package users

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

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, role, profile_id, created_at, updated_at FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select users: %w", err)
	}
	defer rows.Close()

	var result []models.User
	for rows.Next() {
		var u models.User
		var profileID sql.NullInt64
		var updatedAt sql.NullTime
		var role string
		if err := rows.Scan(&u.ID, &u.Name, &role, &profileID, &u.CreatedAt, &updatedAt); err != nil {
			return nil, err
		}
		u.Role = models.UserRole(role)
		if profileID.Valid {
			u.ProfileID = &profileID.Int64
		}
		if updatedAt.Valid {
			u.UpdatedAt = &updatedAt.Time
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, rows []models.User) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}
	return r.UpsertAll(ctx, rows)
}

func (r *SQLiteRepository) UpsertAll(ctx context.Context, rows []models.User) error {
	query := `INSERT INTO users (id, name, role, profile_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			role = excluded.role,
			profile_id = excluded.profile_id,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`
	for _, u := range rows {
		_, err := r.db.ExecContext(ctx, query,
			u.ID, u.Name, string(u.Role), dbx.NullInt64(u.ProfileID), u.CreatedAt, dbx.NullTime(u.UpdatedAt))
		if err != nil {
			return fmt.Errorf("failed to upsert user %d: %w", u.ID, err)
		}
	}
	return nil
}
