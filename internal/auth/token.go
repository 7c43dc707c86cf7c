// Package auth supplies the remote account identity and bearer token the sync
// engine attaches to blob-store requests.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pocketledger/internal/repositories/settings"
	"pocketledger/internal/shared"
)

// Settings keys holding the cached remote session. Both are protected keys:
// they never leave the device.
const (
	TokenKey   = "remote_token"
	ProfileKey = "remote_profile"
)

// TokenProvider abstracts where the remote session comes from.
type TokenProvider interface {
	// Token returns a bearer token for the remote folder. When interactive
	// is false the provider must not block on user input; a missing or
	// expired session returns shared.ErrorAuthRequired or
	// shared.ErrorTokenExpired instead.
	Token(ctx context.Context, interactive bool) (string, error)

	// AccountID returns the stable account identifier (normalized email)
	// used in the shared-folder owner roster.
	AccountID(ctx context.Context) (string, error)
}

// profileInfo is the JSON stored under ProfileKey.
type profileInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// CachedTokenProvider reads the session cached in the settings table. It
// never initiates a login; when the cached token is missing or expired the
// caller surfaces a reconnect prompt.
type CachedTokenProvider struct {
	settings settings.Repository
	now      func() time.Time
}

// NewCachedTokenProvider returns a provider over the given settings repository.
func NewCachedTokenProvider(s settings.Repository) *CachedTokenProvider {
	return &CachedTokenProvider{settings: s, now: time.Now}
}

func (p *CachedTokenProvider) Token(ctx context.Context, interactive bool) (string, error) {
	token, err := p.settings.Get(ctx, TokenKey)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", fmt.Errorf("%w: no cached session", shared.ErrorAuthRequired)
	}

	if err := p.checkExpiry(token); err != nil {
		return "", err
	}
	return token, nil
}

// checkExpiry inspects the token's exp claim without verifying the signature;
// the remote side is the authority, this is only an early rejection so the
// queue does not retry a session that cannot work.
func (p *CachedTokenProvider) checkExpiry(token string) error {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		// opaque non-JWT tokens pass through, the remote decides
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if exp.Before(p.now()) {
		return fmt.Errorf("%w: session expired at %s", shared.ErrorTokenExpired, exp.Format(time.RFC3339))
	}
	return nil
}

func (p *CachedTokenProvider) AccountID(ctx context.Context) (string, error) {
	raw, err := p.settings.Get(ctx, ProfileKey)
	if err != nil {
		return "", err
	}
	if raw == "" {
		return "", fmt.Errorf("%w: no cached profile", shared.ErrorAuthRequired)
	}

	var info profileInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return "", fmt.Errorf("%w: corrupted cached profile", shared.ErrorAuthRequired)
	}
	if info.Email == "" {
		return "", fmt.Errorf("%w: cached profile has no email", shared.ErrorAuthRequired)
	}
	return NormalizeAccountID(info.Email), nil
}

// NormalizeAccountID lowercases and trims an account email so roster
// comparisons are stable across devices.
func NormalizeAccountID(email string) string {
	return normalize(email)
}
