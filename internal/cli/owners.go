package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	"pocketledger/internal/shared"
)

// Owners prints the parent roster of the shared folder.
func (a *App) Owners(ctx context.Context) error {
	ids, err := a.detector.OwnerIDs(ctx)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No shared folder yet")
		return nil
	}

	for i, id := range ids {
		if i == 0 {
			fmt.Printf("%s (creator)\n", id)
			continue
		}
		fmt.Println(id)
	}
	return nil
}

// AddOwner adds a parent account to the roster.
func (a *App) AddOwner(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Println("Usage: addowner <email>")
		return nil
	}

	if err := a.detector.AddOwner(ctx, args[0]); err != nil {
		switch {
		case errors.Is(err, shared.ErrorNotOwner):
			fmt.Println("Only a parent can add another parent")
		case errors.Is(err, shared.ErrorNoSharedFolder):
			fmt.Println("No shared folder yet, sync once first")
		default:
			log.Printf("error: %v", err)
		}
		return err
	}

	log.Printf("Added %s to the parent roster", args[0])
	return nil
}

// RemoveOwner removes a parent account from the roster. The creator stays.
func (a *App) RemoveOwner(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Println("Usage: rmowner <email>")
		return nil
	}

	if err := a.detector.RemoveOwner(ctx, args[0]); err != nil {
		switch {
		case errors.Is(err, shared.ErrorCreatorRemoval):
			fmt.Println("The folder creator cannot be removed")
		case errors.Is(err, shared.ErrorNotOwner):
			fmt.Println("Only a parent can remove another parent")
		case errors.Is(err, shared.ErrorNoSharedFolder):
			fmt.Println("No shared folder yet")
		default:
			log.Printf("error: %v", err)
		}
		return err
	}

	log.Printf("Removed %s from the parent roster", args[0])
	return nil
}
