package sync

import (
	"context"
	"sync"
	"time"

	"pocketledger/internal/logging"
	"pocketledger/internal/repositories/syncops"
)

// StatusManager derives the user-facing sync status from the queue and the
// running cycle, and fans out state changes to subscribers.
type StatusManager struct {
	repo   syncops.Repository
	logger logging.Logger
	now    func() time.Time

	mu          sync.Mutex
	status      Status
	lastSyncAt  *time.Time
	errMsg      string
	online      bool
	subs        map[int]StateCallback
	nextSubID   int
	lastPending int
}

// NewStatusManager returns a manager starting in the synced state.
func NewStatusManager(repo syncops.Repository, logger logging.Logger) *StatusManager {
	return &StatusManager{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		status: StatusSynced,
		online: true,
		subs:   make(map[int]StateCallback),
	}
}

// Initialize seeds the last-sync time and computes the initial status.
func (m *StatusManager) Initialize(ctx context.Context, lastSyncAt *time.Time) {
	m.mu.Lock()
	m.lastSyncAt = lastSyncAt
	m.mu.Unlock()
	m.Refresh(ctx)
}

// Subscribe registers a callback, calls it immediately with the current state
// and returns an unsubscribe function.
func (m *StatusManager) Subscribe(ctx context.Context, cb StateCallback) func() {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = cb
	state := m.stateLocked(ctx)
	m.mu.Unlock()

	cb(state)

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// State returns a snapshot of the current state.
func (m *StatusManager) State(ctx context.Context) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked(ctx)
}

func (m *StatusManager) stateLocked(ctx context.Context) State {
	pending, err := m.repo.PendingCount(ctx)
	if err != nil {
		m.logger.Warn(ctx, "counting pending operations", "error", err.Error())
	}
	return State{
		Status:       m.status,
		LastSyncAt:   m.lastSyncAt,
		PendingCount: pending,
		Error:        m.errMsg,
		Online:       m.online,
	}
}

// Status returns the current status.
func (m *StatusManager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Error returns the last sync error message, "" when none.
func (m *StatusManager) Error() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errMsg
}

// LastSyncAt returns the last successful cycle time.
func (m *StatusManager) LastSyncAt() *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSyncAt
}

// SetOnline records connectivity and notifies subscribers on change.
func (m *StatusManager) SetOnline(ctx context.Context, online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	m.mu.Unlock()
	if changed {
		m.notify(ctx)
	}
}

func (m *StatusManager) setStatus(ctx context.Context, status Status, errMsg string) bool {
	m.mu.Lock()
	changed := m.status != status
	m.status = status
	m.errMsg = errMsg
	m.mu.Unlock()

	if changed {
		m.logger.Debug(ctx, "sync status changed", "status", string(status))
		m.notify(ctx)
	}
	return changed
}

// Refresh recomputes the status from the queue: queued work means pending,
// otherwise a failed operation means error, otherwise synced. A running cycle
// (StartSync) overrides until EndSync or SetSyncError. Subscribers hear about
// a changed pending count even when the status itself stays the same.
func (m *StatusManager) Refresh(ctx context.Context) Status {
	m.mu.Lock()
	if m.status == StatusSyncing {
		m.mu.Unlock()
		return StatusSyncing
	}
	m.mu.Unlock()

	pending, err := m.repo.PendingCount(ctx)
	if err != nil {
		m.logger.Warn(ctx, "counting pending operations", "error", err.Error())
		return m.Status()
	}
	failed, err := m.repo.FailedCount(ctx)
	if err != nil {
		m.logger.Warn(ctx, "counting failed operations", "error", err.Error())
		return m.Status()
	}

	m.mu.Lock()
	pendingChanged := pending != m.lastPending
	m.mu.Unlock()

	status := StatusSynced
	switch {
	case pending > 0:
		status = StatusPending
	case failed > 0:
		status = StatusError
	}
	if !m.setStatus(ctx, status, m.Error()) && pendingChanged {
		m.notify(ctx)
	}
	return status
}

// StartSync marks a cycle as running.
func (m *StatusManager) StartSync(ctx context.Context) {
	m.setStatus(ctx, StatusSyncing, "")
}

// EndSync records a successful cycle and recomputes the status.
func (m *StatusManager) EndSync(ctx context.Context) {
	now := m.now().UTC()
	m.mu.Lock()
	m.lastSyncAt = &now
	m.errMsg = ""
	m.status = StatusSynced
	m.mu.Unlock()
	m.Refresh(ctx)
	m.notify(ctx)
}

// SetSyncError records a failed cycle.
func (m *StatusManager) SetSyncError(ctx context.Context, errMsg string) {
	m.setStatus(ctx, StatusError, errMsg)
}

// Reset returns the manager to its initial state.
func (m *StatusManager) Reset(ctx context.Context) {
	m.mu.Lock()
	m.status = StatusSynced
	m.lastSyncAt = nil
	m.errMsg = ""
	m.mu.Unlock()
	m.notify(ctx)
}

func (m *StatusManager) notify(ctx context.Context) {
	m.mu.Lock()
	state := m.stateLocked(ctx)
	m.lastPending = state.PendingCount
	cbs := make([]StateCallback, 0, len(m.subs))
	for _, cb := range m.subs {
		cbs = append(cbs, cb)
	}
	m.mu.Unlock()

	for _, cb := range cbs {
		cb(state)
	}
}
