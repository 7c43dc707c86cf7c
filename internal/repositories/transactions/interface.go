// Package transactions persists money movements. Transactions are append-only
// facts: the app inserts them and merge unions them, nothing updates them in
// place except soft deletion.
package transactions

import (
	"context"

	"pocketledger/internal/models"
)

// Repository is the storage contract used by the app and the backup codec.
type Repository interface {
	GetAll(ctx context.Context) ([]models.Transaction, error)

	// Insert adds a locally created transaction, assigning the next id
	// when tx.ID is zero. Returns the stored id.
	Insert(ctx context.Context, tx *models.Transaction) (int64, error)

	ReplaceAll(ctx context.Context, rows []models.Transaction) error
	UpsertAll(ctx context.Context, rows []models.Transaction) error
}
