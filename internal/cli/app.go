// Package cli implements the interactive shell of the pocket-money ledger:
// recording transactions, managing the shared folder and driving sync.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"pocketledger/internal/auth"
	"pocketledger/internal/backup"
	"pocketledger/internal/config"
	"pocketledger/internal/logging"
	"pocketledger/internal/remote/s3"
	"pocketledger/internal/store"
	"pocketledger/internal/sync"
)

const appVersion = "1.0.0"

// App wires the store, the remote folder and the sync engine behind the REPL.
type App struct {
	config    *config.Config
	logger    logging.Logger
	store     *store.Store
	codec     *backup.Codec
	tokens    auth.TokenProvider
	detector  *sync.Detector
	service   *sync.Service
	status    *sync.StatusManager
	queue     *sync.Queue
	scheduler *sync.Scheduler
	loader    *sync.MemberLoader
	reader    *bufio.Reader
}

// NewApp opens the local database, connects the remote folder client and
// builds the sync engine on top of both.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	st, err := store.Open(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	blob, err := s3.New(ctx, s3.Options{
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
		Bucket:       c.S3Bucket,
		Prefix:       c.S3Prefix,
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("connecting remote folder: %w", err)
	}

	tokens := auth.NewCachedTokenProvider(st.Settings)
	codec := backup.NewCodec(st)
	detector := sync.NewDetector(blob, tokens, logger, appVersion)
	service := sync.NewService(blob, tokens, codec, st.Settings, logger)
	status := sync.NewStatusManager(st.SyncOps, logger)
	queue := sync.NewQueue(st.SyncOps, service, status, logger)
	scheduler := sync.NewScheduler(service, queue, status, st.Settings, logger)
	loader := sync.NewMemberLoader(service, codec, logger)

	a := &App{
		config:    c,
		logger:    logger,
		store:     st,
		codec:     codec,
		tokens:    tokens,
		detector:  detector,
		service:   service,
		status:    status,
		queue:     queue,
		scheduler: scheduler,
		loader:    loader,
		reader:    bufio.NewReader(os.Stdin),
	}

	if err := a.initialize(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return a, nil
}

// initialize seeds settings from the config (persisted values win) and loads
// the sync state.
func (a *App) initialize(ctx context.Context) error {
	if v, err := a.store.Settings.Get(ctx, "auto_sync_debounce_ms"); err == nil && v == "" {
		if err := a.scheduler.SetDebounce(ctx, a.config.AutoSyncDebounce); err != nil {
			return err
		}
	}
	if v, err := a.store.Settings.Get(ctx, "remote_retention"); err == nil && v == "" && a.config.RetentionCount > 0 {
		if err := a.store.Settings.Set(ctx, "remote_retention", strconv.Itoa(a.config.RetentionCount)); err != nil {
			return err
		}
	}
	if err := a.scheduler.Initialize(ctx); err != nil {
		return err
	}

	lastSyncAt, err := a.service.LastSyncAt(ctx)
	if err != nil {
		return err
	}
	a.status.Initialize(ctx, lastSyncAt)
	return nil
}

// connect detects the device role from the shared folder, creating or
// migrating the descriptor when this device owns it.
func (a *App) connect(ctx context.Context) error {
	mode, err := a.detector.InitializeIfNeeded(ctx)
	if err != nil {
		return err
	}
	a.service.SetMode(mode)
	return nil
}

func (a *App) isConnected() bool {
	return a.service.IsAvailable(context.Background())
}

func (a *App) getStatus() string {
	state := a.status.State(context.Background())
	s := fmt.Sprintf("%s %s", a.service.Mode(), state.Status)
	if state.PendingCount > 0 {
		s = fmt.Sprintf("%s pending:%d", s, state.PendingCount)
	}
	return fmt.Sprintf("(%s)", s)
}

// Run connects to the shared folder when a session exists, starts the queue's
// background drain and enters the REPL.
func (a *App) Run(ctx context.Context) {
	defer func() { _ = a.store.Close() }()

	if a.isConnected() {
		if err := a.connect(ctx); err != nil {
			a.logger.Warn(ctx, "connecting shared folder", "error", err.Error())
		}
	}

	a.queue.StartAutoProcessing(ctx, a.config.QueueInterval)
	defer a.queue.StopAutoProcessing()

	fmt.Println("Pocket ledger (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}
