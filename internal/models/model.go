// Package models defines the entities stored in the local ledger database
// and the payload types exchanged with the shared remote folder.
package models

import "time"

// UserRole distinguishes parents (full access) from children (read-mostly).
type UserRole string

const (
	RoleParent UserRole = "PARENT"
	RoleChild  UserRole = "CHILD"
)

// EntryType classifies money movements and motifs.
type EntryType string

const (
	TypeCredit EntryType = "CREDIT"
	TypeDebit  EntryType = "DEBIT"
	TypeBoth   EntryType = "BOTH" // motifs only
)

// Profile is a child's money account.
type Profile struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Color      string     `json:"color"`
	Icon       string     `json:"icon"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`
}

// User is a family member using the app on this or another device.
type User struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Role      UserRole   `json:"role"`
	ProfileID *int64     `json:"profileId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Transaction is an append-only money movement on a profile. Corrections are
// expressed as new transactions linked through LinkedTransactionID, never as
// in-place edits, which is what makes union-by-id merging safe.
type Transaction struct {
	ID                  int64      `json:"id"`
	ProfileID           int64      `json:"profileId"`
	Amount              float64    `json:"amount"`
	Type                EntryType  `json:"type"`
	MotifID             int64      `json:"motifId"`
	Description         *string    `json:"description,omitempty"`
	CreatedBy           int64      `json:"createdBy"`
	CreatedAt           time.Time  `json:"createdAt"`
	DeletedAt           *time.Time `json:"deletedAt,omitempty"`
	LinkedTransactionID *int64     `json:"linkedTransactionId,omitempty"`
	HiddenForUsers      bool       `json:"hiddenForUsers"`
}

// Motif is a transaction category. Motifs flagged IsDefault ship with the app
// and are protected from being overwritten by merge.
type Motif struct {
	ID         int64      `json:"id"`
	Label      string     `json:"label"`
	Type       EntryType  `json:"type"`
	Icon       string     `json:"icon"`
	IsDefault  bool       `json:"isDefault"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`
}

// Setting is a key/value pair. Some keys are device-local (PIN hash, cached
// remote session) and never leave the device; see backup.ProtectedSettingsKeys.
type Setting struct {
	ID    int64  `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// BackupData groups every synced table of the local database.
type BackupData struct {
	Profiles     []Profile     `json:"profiles"`
	Users        []User        `json:"users"`
	Transactions []Transaction `json:"transactions"`
	Motifs       []Motif       `json:"motifs"`
	Settings     []Setting     `json:"settings"`
}

// BackupPayload is the unit of exchange with the shared folder: a full
// snapshot of the synced dataset plus schema version and export timestamp.
type BackupPayload struct {
	SchemaVersion int        `json:"schemaVersion"`
	ExportedAt    string     `json:"exportedAt"`
	Data          BackupData `json:"data"`
}

// EncryptedPayload wraps a serialized BackupPayload encrypted with a
// password-derived key. All binary fields are base64-encoded.
type EncryptedPayload struct {
	Encrypted bool   `json:"encrypted"`
	Salt      string `json:"salt"`
	IV        string `json:"iv"`
	Data      string `json:"data"`
	Version   int    `json:"version"`
}

// SharedFolderInfo is the small descriptor object living in the remote folder.
// OwnerIDs lists the accounts allowed to write; OwnerIDs[0] is the folder's
// creator and can never be removed. OwnerID is the legacy single-owner form,
// read transparently and migrated to OwnerIDs on first write.
type SharedFolderInfo struct {
	OwnerID    string   `json:"ownerId,omitempty"`
	OwnerIDs   []string `json:"ownerIds"`
	CreatedAt  string   `json:"createdAt"`
	AppVersion string   `json:"appVersion"`
	SharedMode bool     `json:"sharedMode"`
}

// OperationType is the kind of work a queued sync operation performs.
type OperationType string

const (
	OpBackup  OperationType = "BACKUP"
	OpRestore OperationType = "RESTORE"
)

// OperationStatus is the lifecycle state of a queued sync operation.
type OperationStatus string

const (
	StatusPending    OperationStatus = "PENDING"
	StatusInProgress OperationStatus = "IN_PROGRESS"
	StatusCompleted  OperationStatus = "COMPLETED"
	StatusFailed     OperationStatus = "FAILED"
)

// SyncOperation is a durable queue entry for a backup or restore that could
// not run immediately. It survives process restarts in the local database.
type SyncOperation struct {
	ID          string
	Type        OperationType
	Status      OperationStatus
	Attempts    int
	MaxAttempts int
	NextRetryAt *time.Time
	Error       string
	CreatedAt   time.Time
}
