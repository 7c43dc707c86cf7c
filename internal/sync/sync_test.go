package sync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pocketledger/internal/backup"
	"pocketledger/internal/logging"
	"pocketledger/internal/models"
	"pocketledger/internal/remote"
	"pocketledger/internal/shared"
	"pocketledger/internal/store"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeTokens is a TokenProvider fixed to one account. Err, when set, is
// returned from both methods to simulate a missing session.
type fakeTokens struct {
	account string
	err     error
}

func (f *fakeTokens) Token(ctx context.Context, interactive bool) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token-" + f.account, nil
}

func (f *fakeTokens) AccountID(ctx context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.account, nil
}

// harness bundles one device: its local store, codec and sync services, all
// sharing one remote folder.
type harness struct {
	store     *store.Store
	codec     *backup.Codec
	tokens    *fakeTokens
	blob      *remote.Memory
	detector  *Detector
	service   *Service
	status    *StatusManager
	queue     *Queue
	scheduler *Scheduler
	loader    *MemberLoader
}

func newHarness(t *testing.T, blob *remote.Memory, account string) *harness {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	logger := testLogger()
	tokens := &fakeTokens{account: account}
	codec := backup.NewCodec(s)
	detector := NewDetector(blob, tokens, logger, "1.0.0")
	service := NewService(blob, tokens, codec, s.Settings, logger)
	status := NewStatusManager(s.SyncOps, logger)
	queue := NewQueue(s.SyncOps, service, status, logger)
	scheduler := NewScheduler(service, queue, status, s.Settings, logger)
	loader := NewMemberLoader(service, codec, logger)

	return &harness{
		store:     s,
		codec:     codec,
		tokens:    tokens,
		blob:      blob,
		detector:  detector,
		service:   service,
		status:    status,
		queue:     queue,
		scheduler: scheduler,
		loader:    loader,
	}
}

// seedTransactions inserts n transactions with distinct ids starting at base.
func (h *harness) seedTransactions(t *testing.T, base int64, n int, createdAt time.Time) {
	t.Helper()
	ctx := context.Background()
	rows := make([]models.Transaction, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, models.Transaction{
			ID: base + int64(i), ProfileID: 1, Amount: float64(i + 1),
			Type: models.TypeCredit, MotifID: 1, CreatedBy: 1,
			CreatedAt: createdAt.Add(time.Duration(i) * time.Second),
		})
	}
	require.NoError(t, h.store.Transactions.UpsertAll(ctx, rows))
}

func (h *harness) transactionIDs(t *testing.T) []int64 {
	t.Helper()
	rows, err := h.store.Transactions.GetAll(context.Background())
	require.NoError(t, err)
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids
}

// transientErr builds an outage error; the queue backs off and retries these
// until the attempt budget runs out.
func transientErr(i int) error {
	return fmt.Errorf("%w: simulated 503 (%d)", shared.ErrorTransient, i)
}
