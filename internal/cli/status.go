package cli

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Status prints the device role, the sync state and the queue counters.
func (a *App) Status(ctx context.Context) error {
	state := a.status.State(ctx)

	fmt.Printf("Mode:    %s\n", a.service.Mode())
	fmt.Printf("Status:  %s\n", state.Status)
	if state.LastSyncAt != nil {
		fmt.Printf("Last sync: %s\n", state.LastSyncAt.Local().Format(time.RFC1123))
	} else {
		fmt.Println("Last sync: never")
	}
	if state.Error != "" {
		fmt.Printf("Error:   %s\n", state.Error)
	}

	failed, err := a.queue.FailedCount(ctx)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	fmt.Printf("Queue:   %d pending, %d failed\n", state.PendingCount, failed)
	return nil
}
