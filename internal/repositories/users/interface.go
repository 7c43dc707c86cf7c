// Package users persists family members.
package users

import (
	"context"

	"pocketledger/internal/models"
)

// Repository is the storage contract used by the app and the backup codec.
type Repository interface {
	GetAll(ctx context.Context) ([]models.User, error)
	ReplaceAll(ctx context.Context, rows []models.User) error
	UpsertAll(ctx context.Context, rows []models.User) error
}
