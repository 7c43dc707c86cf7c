package sync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"pocketledger/internal/logging"
	"pocketledger/internal/models"
	"pocketledger/internal/repositories/syncops"
	"pocketledger/internal/shared"
)

const (
	defaultMaxAttempts = 5
	baseRetryDelay     = time.Second
	maxRetryDelay      = 60 * time.Second
)

// retryDelay grows exponentially with the attempt count, capped at one minute.
func retryDelay(attempt int) time.Duration {
	d := baseRetryDelay
	for i := 0; i < attempt && d < maxRetryDelay; i++ {
		d *= 2
	}
	return min(d, maxRetryDelay)
}

// nonRetryable reports whether retrying can ever succeed. Validation,
// authentication, authorization and encryption failures need the user to act
// first; only transient (or unclassified) failures get the backoff treatment.
func nonRetryable(err error) bool {
	for _, kind := range []error{
		shared.ErrorValidation,
		shared.ErrorUnsupportedSchema,
		shared.ErrorAuthRequired,
		shared.ErrorTokenExpired,
		shared.ErrorNotOwner,
		shared.ErrorUploadForbidden,
		shared.ErrorDecryptionFailed,
		shared.ErrorEncryptionVersionMismatch,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// Queue is the durable retry queue. Operations live in the local database, so
// work enqueued while offline survives a restart and drains when the device
// comes back.
type Queue struct {
	repo    syncops.Repository
	service *Service
	status  *StatusManager
	logger  logging.Logger
	now     func() time.Time

	mu         sync.Mutex
	processing bool

	stopAuto chan struct{}
}

// NewQueue wires the queue to its storage, the orchestrator it drives and the
// status manager it notifies.
func NewQueue(repo syncops.Repository, service *Service, status *StatusManager, logger logging.Logger) *Queue {
	return &Queue{
		repo:    repo,
		service: service,
		status:  status,
		logger:  logger,
		now:     time.Now,
	}
}

// Enqueue adds an operation and immediately tries to drain the queue.
func (q *Queue) Enqueue(ctx context.Context, opType models.OperationType) (string, error) {
	op := &models.SyncOperation{
		ID:          uuid.NewString(),
		Type:        opType,
		Status:      models.StatusPending,
		MaxAttempts: defaultMaxAttempts,
		CreatedAt:   q.now().UTC(),
	}
	if err := q.repo.Create(ctx, op); err != nil {
		return "", err
	}

	q.logger.Info(ctx, "enqueued operation", "type", string(opType), "id", op.ID)
	q.status.Refresh(ctx)

	if err := q.ProcessQueue(ctx); err != nil {
		q.logger.Warn(ctx, "draining queue after enqueue", "error", err.Error())
	}
	return op.ID, nil
}

// ProcessQueue drains every due operation once. Reentrant calls return
// immediately, so overlapping triggers (enqueue, timer, connectivity change)
// never run cycles concurrently.
func (q *Queue) ProcessQueue(ctx context.Context) error {
	q.mu.Lock()
	if q.processing {
		q.mu.Unlock()
		q.logger.Debug(ctx, "queue already draining, skipping")
		return nil
	}
	q.processing = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.processing = false
		q.mu.Unlock()
	}()

	// without a session the queued work waits instead of burning its
	// attempt budget; connectivity returning triggers another drain
	if !q.service.IsAvailable(ctx) {
		q.logger.Debug(ctx, "remote session unavailable, queue drain deferred")
		return nil
	}

	due, err := q.repo.GetDue(ctx, q.now().UTC())
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	q.logger.Info(ctx, "draining queue", "operations", len(due))
	for i := range due {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.processOperation(ctx, &due[i])
	}
	return nil
}

func (q *Queue) processOperation(ctx context.Context, op *models.SyncOperation) {
	op.Status = models.StatusInProgress
	if err := q.repo.Update(ctx, op); err != nil {
		q.logger.Error(ctx, "marking operation in progress", "id", op.ID, "error", err.Error())
		return
	}

	var err error
	switch op.Type {
	case models.OpBackup:
		err = q.service.Upload(ctx, nil)
	case models.OpRestore:
		_, err = q.service.Sync(ctx, Options{})
	}

	if err != nil {
		q.handleOperationError(ctx, op, err)
		return
	}

	op.Status = models.StatusCompleted
	op.Error = ""
	op.NextRetryAt = nil
	if err := q.repo.Update(ctx, op); err != nil {
		q.logger.Error(ctx, "marking operation completed", "id", op.ID, "error", err.Error())
		return
	}
	q.status.Refresh(ctx)
	q.logger.Info(ctx, "operation completed", "id", op.ID)
}

func (q *Queue) handleOperationError(ctx context.Context, op *models.SyncOperation, opErr error) {
	op.Attempts++
	op.Error = opErr.Error()

	if nonRetryable(opErr) || op.Attempts >= op.MaxAttempts {
		// terminal: only an explicit RetryFailed brings it back
		op.Status = models.StatusFailed
		op.NextRetryAt = nil
		if err := q.repo.Update(ctx, op); err != nil {
			q.logger.Error(ctx, "marking operation failed", "id", op.ID, "error", err.Error())
			return
		}
		q.status.Refresh(ctx)
		q.logger.Error(ctx, "operation permanently failed",
			"id", op.ID, "attempts", op.Attempts, "error", opErr.Error())
		return
	}

	retryAt := q.now().UTC().Add(retryDelay(op.Attempts))
	op.Status = models.StatusPending
	op.NextRetryAt = &retryAt
	if err := q.repo.Update(ctx, op); err != nil {
		q.logger.Error(ctx, "scheduling retry", "id", op.ID, "error", err.Error())
		return
	}
	q.status.Refresh(ctx)
	q.logger.Warn(ctx, "operation will retry",
		"id", op.ID, "attempt", op.Attempts, "max", op.MaxAttempts, "at", retryAt.Format(time.RFC3339))
}

// StartAutoProcessing drains the queue now and then on every tick until
// StopAutoProcessing or context cancellation. Called at startup and when
// connectivity returns.
func (q *Queue) StartAutoProcessing(ctx context.Context, interval time.Duration) {
	q.mu.Lock()
	if q.stopAuto != nil {
		q.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	q.stopAuto = stop
	q.mu.Unlock()

	q.logger.Info(ctx, "starting queue auto-processing", "interval", interval.String())

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		if err := q.ProcessQueue(ctx); err != nil {
			q.logger.Warn(ctx, "draining queue", "error", err.Error())
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				if err := q.ProcessQueue(ctx); err != nil {
					q.logger.Warn(ctx, "draining queue", "error", err.Error())
				}
			}
		}
	}()
}

// StopAutoProcessing cancels the periodic drain.
func (q *Queue) StopAutoProcessing() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopAuto != nil {
		close(q.stopAuto)
		q.stopAuto = nil
	}
}

// PendingCount returns the number of queued operations.
func (q *Queue) PendingCount(ctx context.Context) (int, error) {
	return q.repo.PendingCount(ctx)
}

// FailedCount returns the number of permanently failed operations.
func (q *Queue) FailedCount(ctx context.Context) (int, error) {
	return q.repo.FailedCount(ctx)
}

// ClearCompleted prunes finished operations.
func (q *Queue) ClearCompleted(ctx context.Context) error {
	n, err := q.repo.ClearCompleted(ctx)
	if err != nil {
		return err
	}
	q.logger.Debug(ctx, "cleared completed operations", "count", n)
	return nil
}

// RetryFailed resets every failed operation to pending with a fresh attempt
// budget and drains the queue.
func (q *Queue) RetryFailed(ctx context.Context) error {
	n, err := q.repo.ResetFailed(ctx)
	if err != nil {
		return err
	}
	q.status.Refresh(ctx)
	q.logger.Info(ctx, "retrying failed operations", "count", n)
	return q.ProcessQueue(ctx)
}

// Clear removes every operation, whatever its state.
func (q *Queue) Clear(ctx context.Context) error {
	if err := q.repo.ClearAll(ctx); err != nil {
		return err
	}
	q.status.Refresh(ctx)
	q.logger.Info(ctx, "queue cleared")
	return nil
}
