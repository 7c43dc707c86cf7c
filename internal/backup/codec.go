// Package backup serializes the local ledger to the JSON payload exchanged
// with the shared folder and imports such payloads back, with optional
// password-based encryption for manual exports.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pocketledger/internal/cryptox"
	"pocketledger/internal/dbx"
	"pocketledger/internal/models"
	"pocketledger/internal/shared"
	"pocketledger/internal/store"
)

// SchemaVersion is written into every exported payload. Older versions are
// read for backward compatibility; newer ones are refused.
const SchemaVersion = 3

// ImportMode selects how an imported payload is applied to the local tables.
type ImportMode string

const (
	// ImportReplace clears the synced tables and loads the payload as-is,
	// preserving the device-local protected settings.
	ImportReplace ImportMode = "replace"
	// ImportMerge upserts rows by id and merges settings by key.
	ImportMerge ImportMode = "merge"
)

// Summary describes a payload without exposing its contents.
type Summary struct {
	ExportedAt string `json:"exportedAt"`
	Counts     struct {
		Profiles     int `json:"profiles"`
		Users        int `json:"users"`
		Transactions int `json:"transactions"`
		Motifs       int `json:"motifs"`
		Settings     int `json:"settings"`
	} `json:"counts"`
}

// ProtectedSettingsKeys are device-local settings that never leave the device:
// they are filtered out of incoming payloads and survive a replace import.
var ProtectedSettingsKeys = map[string]struct{}{
	"pin_hash":           {},
	"auth_mode":          {},
	"remote_token":       {},
	"remote_folder_id":   {},
	"remote_profile":     {},
	"remote_last_backup": {},
}

// IsProtectedSettingKey reports whether key is device-local.
func IsProtectedSettingKey(key string) bool {
	_, ok := ProtectedSettingsKeys[key]
	return ok
}

// syncMetadataKeys track this device's view of the remote folder. Syncing
// them would leak one device's bookkeeping into another's.
var syncMetadataKeys = map[string]struct{}{
	"sync_last_sync_at":     {},
	"sync_last_backup_hash": {},
	"auto_sync_enabled":     {},
	"auto_sync_debounce_ms": {},
	"remote_retention":      {},
}

// IsDeviceLocalSettingKey reports whether key stays on this device: protected
// secrets plus per-device sync metadata.
func IsDeviceLocalSettingKey(key string) bool {
	if IsProtectedSettingKey(key) {
		return true
	}
	_, ok := syncMetadataKeys[key]
	return ok
}

// Codec reads and writes backup payloads against the local store.
type Codec struct {
	store *store.Store
	now   func() time.Time
}

// NewCodec returns a Codec over the given store.
func NewCodec(s *store.Store) *Codec {
	return &Codec{store: s, now: time.Now}
}

// Export snapshots every synced table into a payload stamped with the current
// schema version and export time.
func (c *Codec) Export(ctx context.Context) (*models.BackupPayload, error) {
	profiles, err := c.store.Profiles.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting profiles: %w", err)
	}
	users, err := c.store.Users.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting users: %w", err)
	}
	txs, err := c.store.Transactions.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting transactions: %w", err)
	}
	motifs, err := c.store.Motifs.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting motifs: %w", err)
	}
	settings, err := c.store.Settings.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting settings: %w", err)
	}
	// protected keys are filtered here, not just on import, so they never
	// appear in an exported file or an uploaded backup
	settings = filterProtected(settings)

	return &models.BackupPayload{
		SchemaVersion: SchemaVersion,
		ExportedAt:    c.now().UTC().Format(time.RFC3339),
		Data: models.BackupData{
			Profiles:     profiles,
			Users:        users,
			Transactions: txs,
			Motifs:       motifs,
			Settings:     settings,
		},
	}, nil
}

// ExportJSON exports the ledger as indented JSON.
func (c *Codec) ExportJSON(ctx context.Context) ([]byte, error) {
	payload, err := c.Export(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(payload, "", "  ")
}

// ExportEncrypted exports the ledger sealed with a password-derived key.
// The password must pass cryptox.ValidatePassword.
func (c *Codec) ExportEncrypted(ctx context.Context, password string) ([]byte, error) {
	if err := cryptox.ValidatePassword(password); err != nil {
		return nil, err
	}
	payload, err := c.Export(ctx)
	if err != nil {
		return nil, err
	}
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	envelope, err := cryptox.EncryptBackup(plaintext, []byte(password))
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(envelope, "", "  ")
}

// IsEncrypted reports whether raw is an encrypted backup envelope.
func IsEncrypted(raw []byte) bool {
	return cryptox.IsEncryptedPayload(raw)
}

// Parse decodes and validates a plain JSON backup. Malformed payloads return
// an error wrapping shared.ErrorValidation naming the offending field; a
// schema version newer than SchemaVersion returns shared.ErrorUnsupportedSchema.
func Parse(raw []byte) (*models.BackupPayload, error) {
	var payload models.BackupPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: not a valid JSON backup: %v", shared.ErrorValidation, err)
	}
	if err := validatePayload(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ParseEncrypted decrypts an encrypted backup envelope with password and
// parses the plaintext.
func ParseEncrypted(raw []byte, password string) (*models.BackupPayload, error) {
	var envelope models.EncryptedPayload
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: not a valid JSON backup: %v", shared.ErrorValidation, err)
	}
	if !envelope.Encrypted {
		return nil, fmt.Errorf("%w: file is not encrypted", shared.ErrorValidation)
	}
	plaintext, err := cryptox.DecryptBackup(&envelope, []byte(password))
	if err != nil {
		return nil, err
	}
	return Parse(plaintext)
}

// ParseAuto parses raw as either a plain or an encrypted backup, prompting the
// caller's password function only when needed.
func ParseAuto(raw []byte, password func() (string, error)) (*models.BackupPayload, error) {
	if !IsEncrypted(raw) {
		return Parse(raw)
	}
	pw, err := password()
	if err != nil {
		return nil, err
	}
	return ParseEncrypted(raw, pw)
}

// Import applies a validated payload to the local tables inside one
// transaction. Replace mode snapshots the protected settings before clearing
// and restores them afterwards, so a restore never logs the device out or
// drops its PIN.
func (c *Codec) Import(ctx context.Context, payload *models.BackupPayload, mode ImportMode) error {
	if mode != ImportReplace && mode != ImportMerge {
		return fmt.Errorf("%w: unsupported import mode %q", shared.ErrorValidation, mode)
	}
	if err := validatePayload(payload); err != nil {
		return err
	}

	return dbx.WithTx(ctx, c.store.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		s := store.WithTx(tx)

		if mode == ImportReplace {
			existing, err := s.Settings.GetAll(ctx)
			if err != nil {
				return err
			}
			var local []models.Setting
			for _, row := range existing {
				if IsDeviceLocalSettingKey(row.Key) {
					local = append(local, row)
				}
			}

			if err := s.Profiles.ReplaceAll(ctx, payload.Data.Profiles); err != nil {
				return err
			}
			if err := s.Users.ReplaceAll(ctx, payload.Data.Users); err != nil {
				return err
			}
			if err := s.Transactions.ReplaceAll(ctx, payload.Data.Transactions); err != nil {
				return err
			}
			if err := s.Motifs.ReplaceAll(ctx, payload.Data.Motifs); err != nil {
				return err
			}

			incoming := filterProtected(payload.Data.Settings)
			if err := s.Settings.ReplaceAll(ctx, incoming); err != nil {
				return err
			}
			return s.Settings.UpsertByKey(ctx, local)
		}

		if err := s.Profiles.UpsertAll(ctx, payload.Data.Profiles); err != nil {
			return err
		}
		if err := s.Users.UpsertAll(ctx, payload.Data.Users); err != nil {
			return err
		}
		if err := s.Transactions.UpsertAll(ctx, payload.Data.Transactions); err != nil {
			return err
		}
		if err := s.Motifs.UpsertAll(ctx, payload.Data.Motifs); err != nil {
			return err
		}
		return s.Settings.UpsertByKey(ctx, filterProtected(payload.Data.Settings))
	})
}

func filterProtected(rows []models.Setting) []models.Setting {
	out := make([]models.Setting, 0, len(rows))
	for _, row := range rows {
		if !IsDeviceLocalSettingKey(row.Key) {
			out = append(out, row)
		}
	}
	return out
}

// BuildFileName names a manual export after its date.
func BuildFileName(date time.Time) string {
	return fmt.Sprintf("pocketledger-backup-%s.json", date.UTC().Format("2006-01-02"))
}

// Summarize describes a payload by its entity counts.
func Summarize(payload *models.BackupPayload) Summary {
	var s Summary
	s.ExportedAt = payload.ExportedAt
	s.Counts.Profiles = len(payload.Data.Profiles)
	s.Counts.Users = len(payload.Data.Users)
	s.Counts.Transactions = len(payload.Data.Transactions)
	s.Counts.Motifs = len(payload.Data.Motifs)
	s.Counts.Settings = len(payload.Data.Settings)
	return s
}
