package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"pocketledger/internal/auth"
	"pocketledger/internal/backup"
	"pocketledger/internal/logging"
	"pocketledger/internal/models"
	"pocketledger/internal/remote"
	"pocketledger/internal/repositories/settings"
	"pocketledger/internal/shared"
)

// BackupFilePrefix identifies backup files among everything else in the
// shared folder.
const BackupFilePrefix = "pocketledger-backup"

// Service runs the sync cycle against the shared folder. It never retries by
// itself; failed cycles are the queue's business.
type Service struct {
	blob     remote.BlobStore
	auth     auth.TokenProvider
	codec    *backup.Codec
	settings settings.Repository
	logger   logging.Logger
	now      func() time.Time

	mu      sync.Mutex
	mode    Mode
	syncing bool
}

// NewService wires the orchestrator. The initial mode is ModeNone until the
// detector has run.
func NewService(blob remote.BlobStore, tokens auth.TokenProvider, codec *backup.Codec,
	settingsRepo settings.Repository, logger logging.Logger) *Service {
	return &Service{
		blob:     blob,
		auth:     tokens,
		codec:    codec,
		settings: settingsRepo,
		logger:   logger,
		now:      time.Now,
		mode:     ModeNone,
	}
}

// SetMode records the role decided by the detector.
func (s *Service) SetMode(mode Mode) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
	s.logger.Info(context.Background(), "sync mode set", "mode", string(mode))
}

// Mode returns the current role.
func (s *Service) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// IsAvailable reports whether a non-interactive remote session exists.
func (s *Service) IsAvailable(ctx context.Context) bool {
	return s.checkAvailable(ctx) == nil
}

// checkAvailable wraps the session error so callers can detect the
// unavailable state and still classify the underlying cause.
func (s *Service) checkAvailable(ctx context.Context) error {
	if _, err := s.auth.Token(ctx, false); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrorSyncUnavailable, err)
	}
	return nil
}

// payloadHash fingerprints a payload for change detection. The payload's JSON
// form is canonical because export and merge order rows deterministically.
func payloadHash(p *models.BackupPayload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return shared.SHA256Hex(raw), nil
}

// Sync runs one full cycle.
//
// Members only download the latest backup and import it read-only. Owners
// export, detect local and remote changes by content hash, skip the cycle
// when nothing moved, merge otherwise, import the merged payload and upload
// it. The first sync against an empty folder uploads the local data as-is.
//
// Only one cycle runs at a time: a Sync while another is in flight is a no-op,
// so overlapping triggers (debounce timer, queue drain, explicit command)
// never interleave their merge and upload steps.
func (s *Service) Sync(ctx context.Context, opts Options) ([]ConflictLog, error) {
	s.mu.Lock()
	if s.syncing {
		s.mu.Unlock()
		s.logger.Debug(ctx, "sync already running, skipping")
		return nil, nil
	}
	s.syncing = true
	mode := s.mode
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.syncing = false
		s.mu.Unlock()
	}()

	if err := s.checkAvailable(ctx); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "starting sync", "mode", string(mode))

	if mode == ModeMember {
		return nil, s.memberCycle(ctx, opts)
	}

	localPayload, err := s.codec.Export(ctx)
	if err != nil {
		return nil, err
	}
	localHash, err := payloadHash(localPayload)
	if err != nil {
		return nil, err
	}
	lastHash, err := s.settings.Get(ctx, lastBackupHashKey)
	if err != nil {
		return nil, err
	}
	hasLocalChanges := localHash != lastHash

	remotePayload, err := s.DownloadLatest(ctx)
	if err != nil {
		return nil, err
	}

	if remotePayload == nil {
		s.logger.Info(ctx, "first sync, uploading local data")
		if !opts.SkipBackup {
			if err := s.Upload(ctx, localPayload); err != nil {
				return nil, err
			}
		}
		return nil, s.updateMetadata(ctx, localHash)
	}

	remoteHash, err := payloadHash(remotePayload)
	if err != nil {
		return nil, err
	}
	hasRemoteChanges := remoteHash != lastHash

	if !hasLocalChanges && !hasRemoteChanges {
		s.logger.Info(ctx, "no changes detected, skipping sync")
		return nil, nil
	}

	merged, conflicts := MergeBackups(localPayload, remotePayload, backup.IsDeviceLocalSettingKey, s.now())

	if !opts.SkipDownload {
		if err := s.codec.Import(ctx, merged, backup.ImportReplace); err != nil {
			return nil, err
		}
	}
	if !opts.SkipBackup {
		if err := s.Upload(ctx, merged); err != nil {
			return nil, err
		}
	}

	mergedHash, err := payloadHash(merged)
	if err != nil {
		return nil, err
	}
	if err := s.updateMetadata(ctx, mergedHash); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "sync completed", "conflicts", len(conflicts))
	return conflicts, nil
}

// memberCycle downloads the latest backup and imports it. Members never
// upload, so there is nothing to merge.
func (s *Service) memberCycle(ctx context.Context, opts Options) error {
	remotePayload, err := s.DownloadLatest(ctx)
	if err != nil {
		return err
	}
	if remotePayload == nil {
		s.logger.Info(ctx, "no backup found in shared folder")
		return nil
	}

	if !opts.SkipDownload {
		if err := s.codec.Import(ctx, remotePayload, backup.ImportReplace); err != nil {
			return err
		}
	}

	remoteHash, err := payloadHash(remotePayload)
	if err != nil {
		return err
	}
	if err := s.updateMetadata(ctx, remoteHash); err != nil {
		return err
	}

	s.logger.Info(ctx, "member sync completed")
	return nil
}

// Upload writes a payload to the shared folder. Only owners may upload.
// Passing nil exports the current local data first.
func (s *Service) Upload(ctx context.Context, payload *models.BackupPayload) error {
	if err := s.checkAvailable(ctx); err != nil {
		return err
	}
	if mode := s.Mode(); mode != ModeOwner {
		return fmt.Errorf("%w: mode is %s", shared.ErrorUploadForbidden, mode)
	}

	if payload == nil {
		var err error
		payload, err = s.codec.Export(ctx)
		if err != nil {
			return err
		}
	}

	content, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}

	name := backup.BuildFileName(s.now())
	_, err = s.blob.Upload(ctx, remote.UploadInput{
		Name:        name,
		Content:     content,
		ContentType: "application/json",
		Properties: map[string]string{
			"exportedAt":    payload.ExportedAt,
			"schemaVersion": strconv.Itoa(payload.SchemaVersion),
		},
	})
	if err != nil {
		return err
	}

	if err := s.settings.Set(ctx, "remote_last_backup", payload.ExportedAt); err != nil {
		return err
	}
	if err := s.pruneRemoteBackups(ctx); err != nil {
		// pruning is housekeeping, a failure must not fail the upload
		s.logger.Warn(ctx, "pruning remote backups", "error", err.Error())
	}

	s.logger.Info(ctx, "upload completed", "file", name)
	return nil
}

// listBackups returns the folder's backup files, newest first by export time
// (falling back to modification time).
func (s *Service) listBackups(ctx context.Context) ([]remote.FileEntry, error) {
	files, err := s.blob.List(ctx)
	if err != nil {
		return nil, err
	}

	backups := files[:0:0]
	for _, f := range files {
		if strings.Contains(f.Name, BackupFilePrefix) {
			backups = append(backups, f)
		}
	}

	stamp := func(f remote.FileEntry) time.Time {
		if exportedAt, ok := f.Properties["exportedAt"]; ok {
			if t, err := time.Parse(time.RFC3339, exportedAt); err == nil {
				return t
			}
		}
		if !f.ModifiedAt.IsZero() {
			return f.ModifiedAt
		}
		return f.CreatedAt
	}
	sort.Slice(backups, func(i, j int) bool {
		si, sj := stamp(backups[i]), stamp(backups[j])
		// export stamps have second precision, break ties by upload time
		if !si.Equal(sj) {
			return si.After(sj)
		}
		return backups[i].ModifiedAt.After(backups[j].ModifiedAt)
	})
	return backups, nil
}

// DownloadLatest fetches and parses the most recent backup, or (nil, nil)
// when the folder has none.
func (s *Service) DownloadLatest(ctx context.Context) (*models.BackupPayload, error) {
	backups, err := s.listBackups(ctx)
	if err != nil {
		return nil, err
	}
	if len(backups) == 0 {
		return nil, nil
	}

	latest := backups[0]
	content, err := s.blob.Download(ctx, latest.ID)
	if err != nil {
		return nil, err
	}
	payload, err := backup.Parse(content)
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "downloaded latest backup", "file", latest.Name)
	return payload, nil
}

// HasRemoteChanges reports whether the latest remote backup differs from the
// last one this device saw. Errors degrade to false.
func (s *Service) HasRemoteChanges(ctx context.Context) bool {
	remotePayload, err := s.DownloadLatest(ctx)
	if err != nil || remotePayload == nil {
		return false
	}
	remoteHash, err := payloadHash(remotePayload)
	if err != nil {
		return false
	}
	lastHash, err := s.settings.Get(ctx, lastBackupHashKey)
	if err != nil {
		return false
	}
	return remoteHash != lastHash
}

// pruneRemoteBackups deletes backups beyond the configured retention count.
// No retention setting means keep everything.
func (s *Service) pruneRemoteBackups(ctx context.Context) error {
	value, err := s.settings.Get(ctx, retentionKey)
	if err != nil || value == "" {
		return err
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit <= 0 {
		return nil
	}

	backups, err := s.listBackups(ctx)
	if err != nil {
		return err
	}
	for _, f := range backups[min(limit, len(backups)):] {
		if err := s.blob.Delete(ctx, f.ID); err != nil {
			return err
		}
		s.logger.Debug(ctx, "pruned old backup", "file", f.Name)
	}
	return nil
}

func (s *Service) updateMetadata(ctx context.Context, hash string) error {
	if err := s.settings.Set(ctx, lastSyncAtKey, s.now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return s.settings.Set(ctx, lastBackupHashKey, hash)
}

// LastSyncAt returns the time of the last successful cycle, nil before the
// first one.
func (s *Service) LastSyncAt(ctx context.Context) (*time.Time, error) {
	value, err := s.settings.Get(ctx, lastSyncAtKey)
	if err != nil || value == "" {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, nil
	}
	return &t, nil
}

// ResetMetadata forgets the last sync time and hash, forcing the next cycle
// to treat everything as changed.
func (s *Service) ResetMetadata(ctx context.Context) error {
	if err := s.settings.Delete(ctx, lastSyncAtKey); err != nil {
		return err
	}
	return s.settings.Delete(ctx, lastBackupHashKey)
}
