package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pocketledger/internal/auth"
	"pocketledger/internal/logging"
	"pocketledger/internal/models"
	"pocketledger/internal/remote"
	"pocketledger/internal/shared"
)

// DescriptorFileName is the marker file making a remote folder a shared one.
const DescriptorFileName = "SHARED_FOLDER_INFO.json"

// Detector reads and maintains the shared-folder descriptor and derives the
// device's role from it.
type Detector struct {
	blob       remote.BlobStore
	auth       auth.TokenProvider
	logger     logging.Logger
	appVersion string
	now        func() time.Time
}

// NewDetector returns a Detector over the given folder and session.
func NewDetector(blob remote.BlobStore, tokens auth.TokenProvider, logger logging.Logger, appVersion string) *Detector {
	return &Detector{
		blob:       blob,
		auth:       tokens,
		logger:     logger,
		appVersion: appVersion,
		now:        time.Now,
	}
}

// ownerIDs resolves the roster, reading the legacy single-owner field when the
// list form is absent.
func ownerIDs(info *models.SharedFolderInfo) []string {
	if len(info.OwnerIDs) > 0 {
		return info.OwnerIDs
	}
	if info.OwnerID != "" {
		return []string{info.OwnerID}
	}
	return nil
}

func isOwner(info *models.SharedFolderInfo, accountID string) bool {
	normalized := auth.NormalizeAccountID(accountID)
	for _, id := range ownerIDs(info) {
		if auth.NormalizeAccountID(id) == normalized {
			return true
		}
	}
	return false
}

// DetectMode derives the device role. No session means ModeNone; a missing
// descriptor means this device will create the folder and is an owner; with a
// descriptor the roster decides. Errors reading the folder degrade to
// ModeNone so a flaky network never blocks the app.
func (d *Detector) DetectMode(ctx context.Context) Mode {
	accountID, err := d.auth.AccountID(ctx)
	if err != nil {
		return ModeNone
	}

	info, err := d.Descriptor(ctx)
	if err != nil {
		d.logger.Warn(ctx, "detecting sync mode", "error", err.Error())
		return ModeNone
	}
	if info == nil {
		return ModeOwner
	}
	if isOwner(info, accountID) {
		return ModeOwner
	}
	return ModeMember
}

// CheckEligibility answers whether the current account may act as a parent,
// without side effects.
func (d *Detector) CheckEligibility(ctx context.Context) Eligibility {
	accountID, err := d.auth.AccountID(ctx)
	if err != nil {
		return EligibilityNotConnected
	}

	info, err := d.Descriptor(ctx)
	if err != nil {
		// on a network error force another attempt later
		return EligibilityNotConnected
	}
	if info == nil {
		return EligibilityFirstUser
	}
	if isOwner(info, accountID) {
		return EligibilityOwner
	}
	return EligibilityMember
}

// Descriptor downloads and parses the shared-folder descriptor. A folder
// without one returns (nil, nil).
func (d *Detector) Descriptor(ctx context.Context) (*models.SharedFolderInfo, error) {
	entry, err := d.findDescriptor(ctx)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	content, err := d.blob.Download(ctx, entry.ID)
	if err != nil {
		return nil, fmt.Errorf("downloading descriptor: %w", err)
	}

	var info models.SharedFolderInfo
	if err := json.Unmarshal(content, &info); err != nil {
		return nil, fmt.Errorf("%w: corrupted descriptor: %v", shared.ErrorValidation, err)
	}
	return &info, nil
}

func (d *Detector) findDescriptor(ctx context.Context) (*remote.FileEntry, error) {
	files, err := d.blob.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing folder: %w", err)
	}
	for i := range files {
		if files[i].Name == DescriptorFileName {
			return &files[i], nil
		}
	}
	return nil, nil
}

// IsShared reports whether the folder carries a descriptor with sharedMode on.
func (d *Detector) IsShared(ctx context.Context) (bool, error) {
	info, err := d.Descriptor(ctx)
	if err != nil {
		return false, err
	}
	return info != nil && info.SharedMode, nil
}

// OwnerIDs returns the roster, empty when there is no descriptor.
func (d *Detector) OwnerIDs(ctx context.Context) ([]string, error) {
	info, err := d.Descriptor(ctx)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, nil
	}
	return ownerIDs(info), nil
}

// CreatorID returns the first roster entry, the account that created the
// folder, or "" when there is no descriptor.
func (d *Detector) CreatorID(ctx context.Context) (string, error) {
	ids, err := d.OwnerIDs(ctx)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", nil
	}
	return ids[0], nil
}

// InitializeIfNeeded detects the mode and, for owners, creates the descriptor
// when it does not exist yet or migrates a legacy one to the roster format.
func (d *Detector) InitializeIfNeeded(ctx context.Context) (Mode, error) {
	mode := d.DetectMode(ctx)
	if mode != ModeOwner {
		return mode, nil
	}

	info, err := d.Descriptor(ctx)
	if err != nil {
		return mode, err
	}
	if info == nil {
		accountID, err := d.auth.AccountID(ctx)
		if err != nil {
			return mode, err
		}
		if err := d.create(ctx, accountID); err != nil {
			return mode, err
		}
		return mode, nil
	}

	if _, err := d.migrateLegacyOwner(ctx, info); err != nil {
		return mode, err
	}
	return mode, nil
}

func (d *Detector) create(ctx context.Context, creatorID string) error {
	info := models.SharedFolderInfo{
		OwnerIDs:   []string{auth.NormalizeAccountID(creatorID)},
		CreatedAt:  d.now().UTC().Format(time.RFC3339),
		AppVersion: d.appVersion,
		SharedMode: true,
	}

	content, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	_, err = d.blob.Upload(ctx, remote.UploadInput{
		Name:        DescriptorFileName,
		Content:     content,
		ContentType: "application/json",
		Properties:  map[string]string{"type": "shared-folder-info"},
	})
	if err != nil {
		return fmt.Errorf("creating descriptor: %w", err)
	}

	d.logger.Info(ctx, "created shared folder descriptor", "creator", info.OwnerIDs[0])
	return nil
}

// migrateLegacyOwner rewrites a single-owner descriptor to the roster format.
// Reports whether a write happened.
func (d *Detector) migrateLegacyOwner(ctx context.Context, info *models.SharedFolderInfo) (bool, error) {
	if len(info.OwnerIDs) > 0 || info.OwnerID == "" {
		return false, nil
	}

	updated := models.SharedFolderInfo{
		OwnerIDs:   []string{info.OwnerID},
		CreatedAt:  info.CreatedAt,
		AppVersion: info.AppVersion,
		SharedMode: info.SharedMode,
	}
	if err := d.write(ctx, &updated); err != nil {
		return false, err
	}

	d.logger.Info(ctx, "migrated legacy owner to roster format", "owner", info.OwnerID)
	return true, nil
}

// AddOwner adds an account to the roster. Only a current owner may do this;
// adding an account already present is a no-op.
func (d *Detector) AddOwner(ctx context.Context, newOwnerID string) error {
	accountID, err := d.auth.AccountID(ctx)
	if err != nil {
		return err
	}

	info, err := d.Descriptor(ctx)
	if err != nil {
		return err
	}
	if info == nil {
		return shared.ErrorNoSharedFolder
	}
	if !isOwner(info, accountID) {
		return fmt.Errorf("%w: only a parent can add another parent", shared.ErrorNotOwner)
	}

	normalized := auth.NormalizeAccountID(newOwnerID)
	ids := ownerIDs(info)
	for _, id := range ids {
		if auth.NormalizeAccountID(id) == normalized {
			return nil
		}
	}

	updated := models.SharedFolderInfo{
		OwnerIDs:   append(ids, normalized),
		CreatedAt:  info.CreatedAt,
		AppVersion: info.AppVersion,
		SharedMode: true,
	}
	if err := d.write(ctx, &updated); err != nil {
		return err
	}

	d.logger.Info(ctx, "added owner", "owner", normalized)
	return nil
}

// RemoveOwner removes an account from the roster. Only a current owner may do
// this, and the creator (first roster entry) can never be removed.
func (d *Detector) RemoveOwner(ctx context.Context, ownerID string) error {
	accountID, err := d.auth.AccountID(ctx)
	if err != nil {
		return err
	}

	info, err := d.Descriptor(ctx)
	if err != nil {
		return err
	}
	if info == nil {
		return shared.ErrorNoSharedFolder
	}
	if !isOwner(info, accountID) {
		return fmt.Errorf("%w: only a parent can remove another parent", shared.ErrorNotOwner)
	}

	ids := ownerIDs(info)
	normalized := auth.NormalizeAccountID(ownerID)
	if len(ids) > 0 && auth.NormalizeAccountID(ids[0]) == normalized {
		return shared.ErrorCreatorRemoval
	}

	remaining := make([]string, 0, len(ids))
	for _, id := range ids {
		if auth.NormalizeAccountID(id) != normalized {
			remaining = append(remaining, id)
		}
	}

	updated := models.SharedFolderInfo{
		OwnerIDs:   remaining,
		CreatedAt:  info.CreatedAt,
		AppVersion: info.AppVersion,
		SharedMode: true,
	}
	if err := d.write(ctx, &updated); err != nil {
		return err
	}

	d.logger.Info(ctx, "removed owner", "owner", normalized)
	return nil
}

// write updates the descriptor in place, creating it when it vanished.
func (d *Detector) write(ctx context.Context, info *models.SharedFolderInfo) error {
	content, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}

	entry, err := d.findDescriptor(ctx)
	if err != nil {
		return err
	}
	if entry != nil {
		if err := d.blob.Update(ctx, entry.ID, content); err != nil && !errors.Is(err, shared.ErrorNotFound) {
			return fmt.Errorf("updating descriptor: %w", err)
		} else if err == nil {
			return nil
		}
	}

	_, err = d.blob.Upload(ctx, remote.UploadInput{
		Name:        DescriptorFileName,
		Content:     content,
		ContentType: "application/json",
		Properties:  map[string]string{"type": "shared-folder-info"},
	})
	if err != nil {
		return fmt.Errorf("uploading descriptor: %w", err)
	}
	return nil
}
