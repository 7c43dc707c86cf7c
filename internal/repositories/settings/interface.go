// Package settings persists key/value configuration, including the
// device-local keys that never participate in synchronization.
package settings

import (
	"context"

	"pocketledger/internal/models"
)

// Repository is the storage contract used by the app, the sync engine (for
// its metadata keys) and the backup codec.
type Repository interface {
	// Get returns the value for key, or "" with no error when the key is
	// absent.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error

	GetAll(ctx context.Context) ([]models.Setting, error)
	ReplaceAll(ctx context.Context, rows []models.Setting) error

	// UpsertByKey writes rows keyed by Setting.Key, ignoring ids.
	UpsertByKey(ctx context.Context, rows []models.Setting) error
}
