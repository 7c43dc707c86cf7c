package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketledger/internal/models"
	"pocketledger/internal/remote"
)

func pendingOp(id string) *models.SyncOperation {
	return &models.SyncOperation{
		ID: id, Type: models.OpBackup, Status: models.StatusPending,
		MaxAttempts: defaultMaxAttempts, CreatedAt: time.Now().UTC(),
	}
}

func TestStatusRefresh_Precedence(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, remote.NewMemory(), "mom@example.com")

	// empty queue: synced
	assert.Equal(t, StatusSynced, h.status.Refresh(ctx))

	// a failed operation alone means error
	failed := pendingOp("op-failed")
	failed.Status = models.StatusFailed
	require.NoError(t, h.store.SyncOps.Create(ctx, failed))
	assert.Equal(t, StatusError, h.status.Refresh(ctx))

	// queued work outranks the failure
	require.NoError(t, h.store.SyncOps.Create(ctx, pendingOp("op-pending")))
	assert.Equal(t, StatusPending, h.status.Refresh(ctx))

	// a running cycle outranks everything
	h.status.StartSync(ctx)
	assert.Equal(t, StatusSyncing, h.status.Refresh(ctx))
}

func TestStatusEndSync(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, remote.NewMemory(), "mom@example.com")

	assert.Nil(t, h.status.LastSyncAt())

	h.status.StartSync(ctx)
	assert.Equal(t, StatusSyncing, h.status.Status())

	h.status.EndSync(ctx)
	assert.Equal(t, StatusSynced, h.status.Status())
	require.NotNil(t, h.status.LastSyncAt())
	assert.WithinDuration(t, time.Now(), *h.status.LastSyncAt(), time.Minute)
	assert.Empty(t, h.status.Error())
}

func TestStatusSetSyncError(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, remote.NewMemory(), "mom@example.com")

	h.status.StartSync(ctx)
	h.status.SetSyncError(ctx, "remote unreachable")

	assert.Equal(t, StatusError, h.status.Status())
	assert.Equal(t, "remote unreachable", h.status.Error())
}

func TestStatusSubscribe(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, remote.NewMemory(), "mom@example.com")

	var states []State
	unsubscribe := h.status.Subscribe(ctx, func(s State) {
		states = append(states, s)
	})

	// the subscriber sees the current state right away
	require.Len(t, states, 1)
	assert.Equal(t, StatusSynced, states[0].Status)
	assert.True(t, states[0].Online)

	h.status.StartSync(ctx)
	require.Len(t, states, 2)
	assert.Equal(t, StatusSyncing, states[1].Status)

	h.status.EndSync(ctx)
	last := states[len(states)-1]
	assert.Equal(t, StatusSynced, last.Status)
	assert.NotNil(t, last.LastSyncAt)

	// after unsubscribing nothing more arrives
	unsubscribe()
	seen := len(states)
	h.status.StartSync(ctx)
	assert.Len(t, states, seen)
}

func TestStatusRefresh_NotifiesOnPendingCountChange(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, remote.NewMemory(), "mom@example.com")

	require.NoError(t, h.store.SyncOps.Create(ctx, pendingOp("op-1")))
	require.NoError(t, h.store.SyncOps.Create(ctx, pendingOp("op-2")))

	var states []State
	h.status.Subscribe(ctx, func(s State) { states = append(states, s) })
	states = nil

	assert.Equal(t, StatusPending, h.status.Refresh(ctx))
	require.Len(t, states, 1)
	assert.Equal(t, 2, states[0].PendingCount)

	// one operation finishes: the status stays pending but subscribers
	// still hear about the shrinking queue
	ops, err := h.store.SyncOps.GetAll(ctx)
	require.NoError(t, err)
	for i := range ops {
		if ops[i].ID == "op-1" {
			ops[i].Status = models.StatusCompleted
			require.NoError(t, h.store.SyncOps.Update(ctx, &ops[i]))
		}
	}

	assert.Equal(t, StatusPending, h.status.Refresh(ctx))
	require.Len(t, states, 2)
	assert.Equal(t, StatusPending, states[1].Status)
	assert.Equal(t, 1, states[1].PendingCount)

	// an unchanged count and status stays quiet
	assert.Equal(t, StatusPending, h.status.Refresh(ctx))
	assert.Len(t, states, 2)
}

func TestStatusSetOnline(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, remote.NewMemory(), "mom@example.com")

	var notified int
	h.status.Subscribe(ctx, func(State) { notified++ })
	notified = 0

	h.status.SetOnline(ctx, false)
	assert.Equal(t, 1, notified)
	assert.False(t, h.status.State(ctx).Online)

	// same value again: no change, no callback
	h.status.SetOnline(ctx, false)
	assert.Equal(t, 1, notified)

	h.status.SetOnline(ctx, true)
	assert.Equal(t, 2, notified)
	assert.True(t, h.status.State(ctx).Online)
}

func TestStatusInitializeAndReset(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, remote.NewMemory(), "mom@example.com")

	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	h.status.Initialize(ctx, &at)
	require.NotNil(t, h.status.LastSyncAt())
	assert.Equal(t, at, *h.status.LastSyncAt())

	h.status.Reset(ctx)
	assert.Nil(t, h.status.LastSyncAt())
	assert.Equal(t, StatusSynced, h.status.Status())
}

func TestStatusState_PendingCount(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, remote.NewMemory(), "mom@example.com")

	require.NoError(t, h.store.SyncOps.Create(ctx, pendingOp("op-1")))
	require.NoError(t, h.store.SyncOps.Create(ctx, pendingOp("op-2")))

	state := h.status.State(ctx)
	assert.Equal(t, 2, state.PendingCount)
}
