// Package profiles persists child money-account profiles.
package profiles

import (
	"context"

	"pocketledger/internal/models"
)

// Repository is the storage contract used by the app and the backup codec.
type Repository interface {
	GetAll(ctx context.Context) ([]models.Profile, error)

	// ReplaceAll clears the table and writes rows. Callers that need
	// atomicity run it inside dbx.WithTx.
	ReplaceAll(ctx context.Context, rows []models.Profile) error

	// UpsertAll inserts or overwrites rows by id without touching others.
	UpsertAll(ctx context.Context, rows []models.Profile) error
}
