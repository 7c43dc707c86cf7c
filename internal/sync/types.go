// Package sync implements the offline-first synchronization engine: merge
// strategy, shared-folder role detection, the sync cycle, the durable retry
// queue, the status feed and the auto-sync scheduler.
package sync

import "time"

// Mode is the device's role against the shared folder.
type Mode string

const (
	// ModeOwner devices upload and merge; their account is on the folder
	// roster (or the folder has no descriptor yet).
	ModeOwner Mode = "owner"
	// ModeMember devices only download and import, never upload.
	ModeMember Mode = "member"
	// ModeNone means no usable remote session.
	ModeNone Mode = "none"
)

// Eligibility is the answer to "may this account act as a parent here".
type Eligibility string

const (
	EligibilityOwner        Eligibility = "owner"
	EligibilityMember       Eligibility = "member"
	EligibilityFirstUser    Eligibility = "first_user"
	EligibilityNotConnected Eligibility = "not_connected"
)

// Status is the coarse sync state shown to the user.
// Precedence when several apply: syncing > pending > error > synced.
type Status string

const (
	StatusSynced  Status = "synced"
	StatusSyncing Status = "syncing"
	StatusPending Status = "pending"
	StatusError   Status = "error"
)

// Resolution says how a merge conflict was settled.
type Resolution string

const (
	ResolutionRemoteWins   Resolution = "remote_wins"
	ResolutionLocalWins    Resolution = "local_wins"
	ResolutionLocalWinsTie Resolution = "local_wins_tie"
)

// ConflictLog records one resolved merge conflict. Logs are returned from a
// sync cycle for display and never persisted.
type ConflictLog struct {
	EntityType  string     `json:"entityType"`
	EntityID    int64      `json:"entityId"`
	Resolution  Resolution `json:"resolution"`
	LocalValue  any        `json:"localValue"`
	RemoteValue any        `json:"remoteValue"`
	Timestamp   string     `json:"timestamp"`
}

// State is the full sync state pushed to subscribers.
type State struct {
	Status       Status
	LastSyncAt   *time.Time
	PendingCount int
	Error        string
	Online       bool
}

// StateCallback receives the state on subscription and on every change.
type StateCallback func(State)

// Options tweaks a single sync cycle.
type Options struct {
	// SkipDownload leaves the local tables untouched.
	SkipDownload bool
	// SkipBackup skips the upload step.
	SkipBackup bool
}

// Settings keys for sync metadata, all device-local.
const (
	lastSyncAtKey     = "sync_last_sync_at"
	lastBackupHashKey = "sync_last_backup_hash"
	retentionKey      = "remote_retention"
)
