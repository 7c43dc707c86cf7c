// Package syncops persists the durable retry queue of backup/restore
// operations so pending work survives process restarts.
package syncops

import (
	"context"
	"time"

	"pocketledger/internal/models"
)

// Repository is the storage contract used by the sync queue and the status
// manager.
type Repository interface {
	Create(ctx context.Context, op *models.SyncOperation) error

	// Update rewrites the mutable fields (status, attempts, next_retry_at,
	// error) of an existing operation.
	Update(ctx context.Context, op *models.SyncOperation) error

	GetAll(ctx context.Context) ([]models.SyncOperation, error)

	// GetDue lists PENDING operations whose NextRetryAt is unset or has
	// elapsed at now, oldest first. FAILED operations are terminal and
	// only re-enter the queue through ResetFailed.
	GetDue(ctx context.Context, now time.Time) ([]models.SyncOperation, error)

	PendingCount(ctx context.Context) (int, error)
	FailedCount(ctx context.Context) (int, error)

	// ResetFailed flips every FAILED operation back to PENDING with zero
	// attempts, clearing error and retry time. Returns the number reset.
	ResetFailed(ctx context.Context) (int, error)

	// ClearCompleted prunes COMPLETED operations. Returns the number removed.
	ClearCompleted(ctx context.Context) (int, error)

	ClearAll(ctx context.Context) error
}
