// Package motifs persists transaction categories.
package motifs

import (
	"context"

	"pocketledger/internal/models"
)

// Repository is the storage contract used by the app and the backup codec.
type Repository interface {
	GetAll(ctx context.Context) ([]models.Motif, error)
	ReplaceAll(ctx context.Context, rows []models.Motif) error
	UpsertAll(ctx context.Context, rows []models.Motif) error
}
