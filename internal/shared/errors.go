package shared

import "errors"

var (

	// common errors
	ErrorNotFound = errors.New("not found")

	// payload/codec errors: malformed or unsupported backups are never
	// retried, the user has to fix the input
	ErrorValidation        = errors.New("validation error")
	ErrorUnsupportedSchema = errors.New("unsupported schema version")

	// auth errors: surfaced with a "reconnect" prompt, never retried
	ErrorAuthRequired = errors.New("authentication required")
	ErrorTokenExpired = errors.New("token expired")

	// authorization errors on the shared-folder roster
	ErrorNotOwner        = errors.New("caller is not an owner")
	ErrorNoSharedFolder  = errors.New("no shared folder descriptor")
	ErrorCreatorRemoval  = errors.New("folder creator cannot be removed")
	ErrorUploadForbidden = errors.New("upload not allowed in this mode")

	// transient network errors: retried with backoff by the sync queue
	ErrorTransient = errors.New("transient network error")

	// encryption errors: surfaced verbatim, never retried
	ErrorDecryptionFailed          = errors.New("decryption failed")
	ErrorEncryptionVersionMismatch = errors.New("unsupported encryption version")
	ErrorWeakPassword              = errors.New("password too weak")

	// sync engine state errors
	ErrorSyncUnavailable = errors.New("sync unavailable")
)
