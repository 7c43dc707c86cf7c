package sync

import (
	"context"
	"strconv"
	"sync"
	"time"

	"pocketledger/internal/logging"
	"pocketledger/internal/models"
	"pocketledger/internal/repositories/settings"
)

const (
	autoSyncEnabledKey  = "auto_sync_enabled"
	autoSyncDebounceKey = "auto_sync_debounce_ms"

	defaultDebounce = 5 * time.Second
)

// timerHandle is what the scheduler needs from a timer: cancelability.
type timerHandle interface {
	Stop() bool
}

// startTimer schedules fn after d. Production uses time.AfterFunc; tests
// inject their own to fire the timer by hand.
type startTimer func(d time.Duration, fn func()) timerHandle

func realTimer(d time.Duration, fn func()) timerHandle {
	return time.AfterFunc(d, fn)
}

// Scheduler debounces data mutations into sync cycles: every MarkDirty resets
// a timer, and only when the app has been quiet for the debounce window does a
// cycle run. When sync is unavailable the work is queued instead of lost.
type Scheduler struct {
	service  *Service
	queue    *Queue
	status   *StatusManager
	settings settings.Repository
	logger   logging.Logger
	newTimer startTimer

	mu       sync.Mutex
	timer    timerHandle
	dirty    bool
	enabled  bool
	debounce time.Duration
}

// NewScheduler wires the auto-sync scheduler. It is enabled with the default
// debounce until Initialize loads the stored configuration.
func NewScheduler(service *Service, queue *Queue, status *StatusManager,
	settingsRepo settings.Repository, logger logging.Logger) *Scheduler {
	return &Scheduler{
		service:  service,
		queue:    queue,
		status:   status,
		settings: settingsRepo,
		logger:   logger,
		newTimer: realTimer,
		enabled:  true,
		debounce: defaultDebounce,
	}
}

// Initialize loads the persisted enabled flag and debounce window.
func (s *Scheduler) Initialize(ctx context.Context) error {
	enabled, err := s.settings.Get(ctx, autoSyncEnabledKey)
	if err != nil {
		return err
	}
	debounceMs, err := s.settings.Get(ctx, autoSyncDebounceKey)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.enabled = enabled != "false"
	if ms, err := strconv.Atoi(debounceMs); err == nil && ms > 0 {
		s.debounce = time.Duration(ms) * time.Millisecond
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "auto-sync initialized", "enabled", s.Enabled(), "debounce", s.Debounce().String())
	return nil
}

// MarkDirty notes that local data changed and (re)starts the debounce timer.
// Rapid successive edits collapse into one cycle.
func (s *Scheduler) MarkDirty(ctx context.Context) {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return
	}
	s.dirty = true
	if s.timer != nil {
		s.timer.Stop()
	}
	d := s.debounce
	s.timer = s.newTimer(d, func() {
		if err := s.performSync(context.Background()); err != nil {
			s.logger.Error(context.Background(), "auto-sync", "error", err.Error())
		}
	})
	s.mu.Unlock()

	s.logger.Debug(ctx, "auto-sync scheduled", "in", d.String())
}

// performSync runs the debounced cycle. When sync is unavailable or fails,
// the work is enqueued as a BACKUP so it survives; either way the dirty flag
// is cleared because responsibility has been handed over.
func (s *Scheduler) performSync(ctx context.Context) error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	s.dirty = false
	s.timer = nil
	s.mu.Unlock()

	if !s.service.IsAvailable(ctx) {
		s.logger.Info(ctx, "sync unavailable, queueing backup")
		_, err := s.queue.Enqueue(ctx, models.OpBackup)
		return err
	}

	s.status.StartSync(ctx)
	if _, err := s.service.Sync(ctx, Options{}); err != nil {
		s.status.SetSyncError(ctx, err.Error())
		if _, qerr := s.queue.Enqueue(ctx, models.OpBackup); qerr != nil {
			s.logger.Error(ctx, "queueing backup after sync failure", "error", qerr.Error())
		}
		return err
	}
	s.status.EndSync(ctx)
	return nil
}

// SyncNow cancels any pending debounce and runs the cycle immediately.
func (s *Scheduler) SyncNow(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	return s.performSync(ctx)
}

// Enable turns auto-sync on and persists the choice.
func (s *Scheduler) Enable(ctx context.Context) error {
	s.mu.Lock()
	s.enabled = true
	s.mu.Unlock()
	return s.settings.Set(ctx, autoSyncEnabledKey, "true")
}

// Disable turns auto-sync off, cancels any pending timer and persists the
// choice.
func (s *Scheduler) Disable(ctx context.Context) error {
	s.mu.Lock()
	s.enabled = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	return s.settings.Set(ctx, autoSyncEnabledKey, "false")
}

// SetDebounce changes the quiet window and persists it. Takes effect on the
// next MarkDirty.
func (s *Scheduler) SetDebounce(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.debounce = d
	s.mu.Unlock()
	return s.settings.Set(ctx, autoSyncDebounceKey, strconv.FormatInt(d.Milliseconds(), 10))
}

// Enabled reports whether auto-sync is on.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Debounce returns the current quiet window.
func (s *Scheduler) Debounce() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debounce
}

// Dirty reports whether changes await synchronization.
func (s *Scheduler) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}
