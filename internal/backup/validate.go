package backup

import (
	"fmt"
	"time"

	"pocketledger/internal/models"
	"pocketledger/internal/shared"
)

func fieldErr(path, reason string) error {
	return fmt.Errorf("%w: %s %s", shared.ErrorValidation, path, reason)
}

// validatePayload checks the semantic constraints JSON decoding cannot
// express. Errors name the offending field path so the user can locate it in
// a hand-edited file.
func validatePayload(p *models.BackupPayload) error {
	if p.SchemaVersion <= 0 {
		return fieldErr("schemaVersion", "must be a positive number")
	}
	if p.SchemaVersion > SchemaVersion {
		return fmt.Errorf("%w: schema version %d, newest supported is %d",
			shared.ErrorUnsupportedSchema, p.SchemaVersion, SchemaVersion)
	}
	if p.ExportedAt == "" {
		return fieldErr("exportedAt", "is required")
	}
	if _, err := time.Parse(time.RFC3339, p.ExportedAt); err != nil {
		return fieldErr("exportedAt", "must be an RFC 3339 timestamp")
	}

	for i, row := range p.Data.Profiles {
		path := fmt.Sprintf("profiles[%d]", i)
		if row.ID == 0 {
			return fieldErr(path+".id", "is required")
		}
		if row.Name == "" {
			return fieldErr(path+".name", "is required")
		}
		if row.CreatedAt.IsZero() {
			return fieldErr(path+".createdAt", "is required")
		}
	}

	for i, row := range p.Data.Users {
		path := fmt.Sprintf("users[%d]", i)
		if row.ID == 0 {
			return fieldErr(path+".id", "is required")
		}
		if row.Name == "" {
			return fieldErr(path+".name", "is required")
		}
		if row.Role != models.RoleParent && row.Role != models.RoleChild {
			return fieldErr(path+".role", "must be PARENT or CHILD")
		}
		if row.CreatedAt.IsZero() {
			return fieldErr(path+".createdAt", "is required")
		}
	}

	for i, row := range p.Data.Transactions {
		path := fmt.Sprintf("transactions[%d]", i)
		if row.ID == 0 {
			return fieldErr(path+".id", "is required")
		}
		if row.ProfileID == 0 {
			return fieldErr(path+".profileId", "is required")
		}
		if row.Type != models.TypeCredit && row.Type != models.TypeDebit {
			return fieldErr(path+".type", "must be CREDIT or DEBIT")
		}
		if row.MotifID == 0 {
			return fieldErr(path+".motifId", "is required")
		}
		if row.CreatedAt.IsZero() {
			return fieldErr(path+".createdAt", "is required")
		}
	}

	for i, row := range p.Data.Motifs {
		path := fmt.Sprintf("motifs[%d]", i)
		if row.ID == 0 {
			return fieldErr(path+".id", "is required")
		}
		if row.Label == "" {
			return fieldErr(path+".label", "is required")
		}
		if row.Type != models.TypeCredit && row.Type != models.TypeDebit && row.Type != models.TypeBoth {
			return fieldErr(path+".type", "must be CREDIT, DEBIT or BOTH")
		}
	}

	for i, row := range p.Data.Settings {
		if row.Key == "" {
			return fieldErr(fmt.Sprintf("settings[%d].key", i), "is required")
		}
	}

	return nil
}
