package cli

import (
	"context"
	"log"

	"pocketledger/internal/sync"
)

// Sync runs a cycle immediately. Members pull the latest backup; owners run
// the full merge cycle through the scheduler, so the outcome lands in the
// status manager and the queue like any debounced sync.
func (a *App) Sync(ctx context.Context) error {
	if a.service.Mode() == sync.ModeMember {
		if err := a.loader.ForceLoad(ctx); err != nil {
			log.Printf("Sync failed: %s", err.Error())
			return err
		}
		log.Println("Loaded latest shared data")
		return nil
	}

	a.scheduler.MarkDirty(ctx)
	if err := a.scheduler.SyncNow(ctx); err != nil {
		log.Printf("Sync failed: %s", err.Error())
		return err
	}
	log.Println("Sync completed")
	return nil
}

// Retry revives permanently failed queue operations and drains immediately.
func (a *App) Retry(ctx context.Context) error {
	if err := a.queue.RetryFailed(ctx); err != nil {
		log.Printf("error: %v", err)
		return err
	}
	log.Println("Failed operations re-queued")
	return nil
}
