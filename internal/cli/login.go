package cli

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"pocketledger/internal/auth"
	"pocketledger/internal/sync"
)

// Login caches a remote session: the account email and its access token. The
// token is pasted rather than obtained interactively, so any S3-compatible
// backend with any identity provider in front of it works.
func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter account email", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	token, err := GetPassword(os.Stdout, "Paste access token")
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	profile, err := json.Marshal(map[string]string{"email": auth.NormalizeAccountID(email)})
	if err != nil {
		return err
	}
	if err := a.store.Settings.Set(ctx, auth.TokenKey, string(token)); err != nil {
		log.Printf("error: %v", err)
		return err
	}
	if err := a.store.Settings.Set(ctx, auth.ProfileKey, string(profile)); err != nil {
		log.Printf("error: %v", err)
		return err
	}

	if err := a.connect(ctx); err != nil {
		log.Printf("Connected, but shared folder detection failed: %s", err.Error())
		return err
	}

	log.Printf("Connected as %s (%s)", auth.NormalizeAccountID(email), a.service.Mode())
	return nil
}

// Logout drops the cached session. Local data stays; the engine just loses
// the shared folder until the next login.
func (a *App) Logout(ctx context.Context) error {
	if err := a.store.Settings.Delete(ctx, auth.TokenKey); err != nil {
		log.Printf("error: %v", err)
		return err
	}
	if err := a.store.Settings.Delete(ctx, auth.ProfileKey); err != nil {
		log.Printf("error: %v", err)
		return err
	}
	a.service.SetMode(sync.ModeNone)
	log.Println("Logged out")
	return nil
}
