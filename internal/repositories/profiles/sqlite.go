package profiles

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

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, color, icon, created_at, updated_at, archived_at FROM profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select profiles: %w", err)
	}
	defer rows.Close()

	var result []models.Profile
	for rows.Next() {
		var p models.Profile
		var updatedAt, archivedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.Name, &p.Color, &p.Icon, &p.CreatedAt, &updatedAt, &archivedAt); err != nil {
			return nil, err
		}
		if updatedAt.Valid {
			p.UpdatedAt = &updatedAt.Time
		}
		if archivedAt.Valid {
			p.ArchivedAt = &archivedAt.Time
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, rows []models.Profile) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM profiles`); err != nil {
		return fmt.Errorf("failed to clear profiles: %w", err)
	}
	return r.UpsertAll(ctx, rows)
}

func (r *SQLiteRepository) UpsertAll(ctx context.Context, rows []models.Profile) error {
	query := `INSERT INTO profiles (id, name, color, icon, created_at, updated_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			color = excluded.color,
			icon = excluded.icon,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			archived_at = excluded.archived_at
	`
	for _, p := range rows {
		_, err := r.db.ExecContext(ctx, query,
			p.ID, p.Name, p.Color, p.Icon, p.CreatedAt, dbx.NullTime(p.UpdatedAt), dbx.NullTime(p.ArchivedAt))
		if err != nil {
			return fmt.Errorf("failed to upsert profile %d: %w", p.ID, err)
		}
	}
	return nil
}
