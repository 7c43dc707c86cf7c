package cli

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"pocketledger/internal/models"
)

// Add records a transaction: add <profileId> <amount> <credit|debit> [description].
// The motif defaults to the first one matching the entry type.
func (a *App) Add(ctx context.Context, args []string) error {
	if len(args) < 3 {
		fmt.Println("Usage: add <profileId> <amount> <credit|debit> [description]")
		return nil
	}

	profileID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Println("Invalid profile id:", args[0])
		return nil
	}
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil || amount <= 0 {
		fmt.Println("Invalid amount:", args[1])
		return nil
	}

	var entryType models.EntryType
	switch strings.ToLower(args[2]) {
	case "credit":
		entryType = models.TypeCredit
	case "debit":
		entryType = models.TypeDebit
	default:
		fmt.Println("Type must be credit or debit, got:", args[2])
		return nil
	}

	motifID, err := a.defaultMotif(ctx, entryType)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	tx := &models.Transaction{
		ProfileID: profileID,
		Amount:    amount,
		Type:      entryType,
		MotifID:   motifID,
		CreatedBy: 1,
		CreatedAt: time.Now().UTC(),
	}
	if len(args) > 3 {
		description := strings.Join(args[3:], " ")
		tx.Description = &description
	}

	id, err := a.store.Transactions.Insert(ctx, tx)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}

	a.scheduler.MarkDirty(ctx)
	log.Printf("Recorded transaction %d", id)
	return nil
}

// defaultMotif picks the first motif usable for the given entry type.
func (a *App) defaultMotif(ctx context.Context, entryType models.EntryType) (int64, error) {
	motifs, err := a.store.Motifs.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	for _, m := range motifs {
		if m.Type == entryType || m.Type == models.TypeBoth {
			return m.ID, nil
		}
	}
	return 0, fmt.Errorf("no motif available for type %s", entryType)
}

// List prints every transaction, newest first.
func (a *App) List(ctx context.Context) error {
	rows, err := a.store.Transactions.GetAll(ctx)
	if err != nil {
		log.Printf("error: %v", err)
		return err
	}
	if len(rows) == 0 {
		fmt.Println("No transactions yet")
		return nil
	}

	for _, tx := range rows {
		if tx.DeletedAt != nil {
			continue
		}
		desc := ""
		if tx.Description != nil {
			desc = " " + *tx.Description
		}
		fmt.Printf("%6d  %s  profile %d  %-6s %8.2f%s\n",
			tx.ID, tx.CreatedAt.Local().Format("2006-01-02 15:04"), tx.ProfileID, tx.Type, tx.Amount, desc)
	}
	return nil
}
