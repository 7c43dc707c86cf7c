// Package store opens the local ledger database, applies migrations and
// bundles the table repositories behind a single handle.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"pocketledger/internal/dbx"
	"pocketledger/internal/migrations"
	"pocketledger/internal/repositories/motifs"
	"pocketledger/internal/repositories/profiles"
	"pocketledger/internal/repositories/settings"
	"pocketledger/internal/repositories/syncops"
	"pocketledger/internal/repositories/transactions"
	"pocketledger/internal/repositories/users"
)

// Store owns the database connection and the repositories over it. DB is
// exposed so callers can wrap multi-table work in dbx.WithTx.
type Store struct {
	DB *sql.DB

	Profiles     profiles.Repository
	Users        users.Repository
	Transactions transactions.Repository
	Motifs       motifs.Repository
	Settings     settings.Repository
	SyncOps      syncops.Repository
}

// RunMigrations applies the embedded goose migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (or creates) the database at dsn, runs migrations and returns a
// ready Store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{
		DB:           db,
		Profiles:     profiles.NewSQLiteRepository(db),
		Users:        users.NewSQLiteRepository(db),
		Transactions: transactions.NewSQLiteRepository(db),
		Motifs:       motifs.NewSQLiteRepository(db),
		Settings:     settings.NewSQLiteRepository(db),
		SyncOps:      syncops.NewSQLiteRepository(db),
	}, nil
}

// WithTx returns a Store view whose repositories run against the given DBTX,
// typically a transaction started by dbx.WithTx. The returned Store has no DB.
func WithTx(tx dbx.DBTX) *Store {
	return &Store{
		Profiles:     profiles.NewSQLiteRepository(tx),
		Users:        users.NewSQLiteRepository(tx),
		Transactions: transactions.NewSQLiteRepository(tx),
		Motifs:       motifs.NewSQLiteRepository(tx),
		Settings:     settings.NewSQLiteRepository(tx),
		SyncOps:      syncops.NewSQLiteRepository(tx),
	}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.DB.Close()
}
