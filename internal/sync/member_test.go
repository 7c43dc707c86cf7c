package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketledger/internal/remote"
)

func newMemberWithBackup(t *testing.T, blob *remote.Memory) *harness {
	t.Helper()
	ctx := context.Background()

	owner := newHarness(t, blob, "mom@example.com")
	owner.service.SetMode(ModeOwner)
	owner.seedTransactions(t, 1, 2, time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
	_, err := owner.service.Sync(ctx, Options{})
	require.NoError(t, err)

	member := newHarness(t, blob, "kid@example.com")
	member.service.SetMode(ModeMember)
	return member
}

func TestMemberLoad_ImportsAndRateLimits(t *testing.T) {
	ctx := context.Background()
	member := newMemberWithBackup(t, remote.NewMemory())

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	member.loader.now = func() time.Time { return now }

	ran, err := member.loader.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.ElementsMatch(t, []int64{1, 2}, member.transactionIDs(t))

	// a second load inside the interval is skipped
	now = now.Add(10 * time.Second)
	ran, err = member.loader.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ran)

	// past the interval it runs again
	now = now.Add(defaultMinLoadInterval)
	ran, err = member.loader.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestMemberForceLoad_BypassesInterval(t *testing.T) {
	ctx := context.Background()
	member := newMemberWithBackup(t, remote.NewMemory())

	ran, err := member.loader.Load(ctx)
	require.NoError(t, err)
	require.True(t, ran)

	// wipe the local copy, then force a reload right away
	require.NoError(t, member.store.Transactions.ReplaceAll(ctx, nil))
	require.NoError(t, member.loader.ForceLoad(ctx))
	assert.ElementsMatch(t, []int64{1, 2}, member.transactionIDs(t))
}

func TestMemberLoad_EmptyFolder(t *testing.T) {
	ctx := context.Background()
	member := newHarness(t, remote.NewMemory(), "kid@example.com")
	member.service.SetMode(ModeMember)

	ran, err := member.loader.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ran, "an empty folder is not an error")
	assert.Empty(t, member.transactionIDs(t))
}

func TestMemberLoad_FailureDoesNotBumpClock(t *testing.T) {
	ctx := context.Background()
	blob := remote.NewMemory()
	member := newMemberWithBackup(t, blob)

	blob.FailNext = transientErr(1)
	_, err := member.loader.Load(ctx)
	require.Error(t, err)

	_, ok := member.loader.TimeSinceLastLoad()
	assert.False(t, ok, "a failed load must not start the rate limit")

	// the next attempt is allowed immediately
	ran, err := member.loader.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestMemberLoader_ResetAndInterval(t *testing.T) {
	ctx := context.Background()
	member := newMemberWithBackup(t, remote.NewMemory())
	member.loader.SetMinInterval(time.Hour)

	ran, err := member.loader.Load(ctx)
	require.NoError(t, err)
	require.True(t, ran)

	ran, err = member.loader.Load(ctx)
	require.NoError(t, err)
	require.False(t, ran)

	// forgetting the last load lifts the limit
	member.loader.Reset()
	ran, err = member.loader.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ran)

	since, ok := member.loader.TimeSinceLastLoad()
	assert.True(t, ok)
	assert.Less(t, since, time.Minute)
}
