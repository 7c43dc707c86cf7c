package motifs

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

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Motif, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, label, type, icon, is_default, updated_at, archived_at FROM motifs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select motifs: %w", err)
	}
	defer rows.Close()

	var result []models.Motif
	for rows.Next() {
		var m models.Motif
		var motifType string
		var updatedAt, archivedAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.Label, &motifType, &m.Icon, &m.IsDefault, &updatedAt, &archivedAt); err != nil {
			return nil, err
		}
		m.Type = models.EntryType(motifType)
		if updatedAt.Valid {
			m.UpdatedAt = &updatedAt.Time
		}
		if archivedAt.Valid {
			m.ArchivedAt = &archivedAt.Time
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, rows []models.Motif) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM motifs`); err != nil {
		return fmt.Errorf("failed to clear motifs: %w", err)
	}
	return r.UpsertAll(ctx, rows)
}

func (r *SQLiteRepository) UpsertAll(ctx context.Context, rows []models.Motif) error {
	query := `INSERT INTO motifs (id, label, type, icon, is_default, updated_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET label = excluded.label,
			type = excluded.type,
			icon = excluded.icon,
			is_default = excluded.is_default,
			updated_at = excluded.updated_at,
			archived_at = excluded.archived_at
	`
	for _, m := range rows {
		_, err := r.db.ExecContext(ctx, query,
			m.ID, m.Label, string(m.Type), m.Icon, m.IsDefault, dbx.NullTime(m.UpdatedAt), dbx.NullTime(m.ArchivedAt))
		if err != nil {
			return fmt.Errorf("failed to upsert motif %d: %w", m.ID, err)
		}
	}
	return nil
}
