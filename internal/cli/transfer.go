package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pocketledger/internal/backup"
	"pocketledger/internal/filex"
)

// Export writes the ledger to a JSON file: export [path] [-e].
// Without a path the file goes to the backups/ subdirectory; with -e the file
// is sealed with a password.
func (a *App) Export(ctx context.Context, args []string) error {
	path := ""
	encrypted := false
	for _, arg := range args {
		if arg == "-e" {
			encrypted = true
			continue
		}
		path = arg
	}
	if path == "" {
		dir, err := filex.EnsureSubDir("backups")
		if err != nil {
			log.Printf("error: %v", err)
			return err
		}
		path = filepath.Join(dir, backup.BuildFileName(time.Now()))
	}

	var content []byte
	var err error
	if encrypted {
		var pw []byte
		pw, err = GetPassword(os.Stdout, "Backup password (min 8 chars, letters and digits)")
		if err != nil {
			log.Printf("error: %v", err)
			return err
		}
		content, err = a.codec.ExportEncrypted(ctx, string(pw))
	} else {
		content, err = a.codec.ExportJSON(ctx)
	}
	if err != nil {
		log.Printf("Export failed: %s", err.Error())
		return err
	}

	if err := os.WriteFile(path, content, 0o600); err != nil {
		log.Printf("error: %v", err)
		return err
	}
	log.Printf("Exported to %s", path)
	return nil
}

// Import loads a backup file: import <path> [merge].
// Replace is the default; "merge" upserts instead of clearing. Encrypted
// files prompt for their password.
func (a *App) Import(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: import <path> [merge]")
		return nil
	}
	path := args[0]

	mode := backup.ImportReplace
	if len(args) > 1 && strings.EqualFold(args[1], "merge") {
		mode = backup.ImportMerge
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	payload, err := backup.ParseAuto(raw, func() (string, error) {
		pw, err := GetPassword(os.Stdout, "Backup password")
		return string(pw), err
	})
	if err != nil {
		log.Printf("Import failed: %s", err.Error())
		return err
	}

	summary := backup.Summarize(payload)
	fmt.Printf("Backup from %s: %d transactions, %d profiles\n",
		summary.ExportedAt, summary.Counts.Transactions, summary.Counts.Profiles)

	if err := a.codec.Import(ctx, payload, mode); err != nil {
		log.Printf("Import failed: %s", err.Error())
		return err
	}

	a.scheduler.MarkDirty(ctx)
	log.Printf("Imported %s (%s)", path, mode)
	return nil
}
