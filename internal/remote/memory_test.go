package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketledger/internal/shared"
)

func TestMemory_UploadDownloadUpdateDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	entry, err := m.Upload(ctx, UploadInput{
		Name:       "backup.json",
		Content:    []byte(`{"v":1}`),
		Properties: map[string]string{"schemaVersion": "3"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, entry.ID)
	assert.Equal(t, int64(7), entry.Size)

	content, err := m.Download(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":1}`), content)

	require.NoError(t, m.Update(ctx, entry.ID, []byte(`{"v":2}`)))
	content, err = m.Download(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":2}`), content)

	files, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "backup.json", files[0].Name)
	assert.Equal(t, "3", files[0].Properties["schemaVersion"])

	require.NoError(t, m.Delete(ctx, entry.ID))
	files, err = m.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestMemory_MissingFile(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Download(ctx, "nope")
	require.ErrorIs(t, err, shared.ErrorNotFound)
	require.ErrorIs(t, m.Update(ctx, "nope", nil), shared.ErrorNotFound)
	require.ErrorIs(t, m.Delete(ctx, "nope"), shared.ErrorNotFound)
}

func TestMemory_FailNextFiresOnce(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	boom := errors.New("offline")

	m.FailNext = boom
	_, err := m.List(ctx)
	require.ErrorIs(t, err, boom)

	_, err = m.List(ctx)
	require.NoError(t, err)
}

func TestMemory_ClockStampsEntries(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	m := NewMemoryWithClock(func() time.Time { return now })

	entry, err := m.Upload(context.Background(), UploadInput{Name: "a", Content: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, now, entry.CreatedAt)
	assert.Equal(t, now, entry.ModifiedAt)
}
