package backup

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketledger/internal/models"
	"pocketledger/internal/shared"
	"pocketledger/internal/store"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedLedger(t *testing.T, s *store.Store) {
	t.Helper()
	ctx := context.Background()
	created := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.Profiles.UpsertAll(ctx, []models.Profile{
		{ID: 1, Name: "Emma", Color: "#22cc88", Icon: "cat", CreatedAt: created},
	}))
	require.NoError(t, s.Users.UpsertAll(ctx, []models.User{
		{ID: 1, Name: "Dad", Role: models.RoleParent, CreatedAt: created},
	}))
	require.NoError(t, s.Motifs.UpsertAll(ctx, []models.Motif{
		{ID: 1, Label: "Allowance", Type: models.TypeCredit, Icon: "coins", IsDefault: true},
	}))
	require.NoError(t, s.Transactions.UpsertAll(ctx, []models.Transaction{
		{ID: 1, ProfileID: 1, Amount: 5, Type: models.TypeCredit, MotifID: 1, CreatedBy: 1, CreatedAt: created},
	}))
	require.NoError(t, s.Settings.Set(ctx, "currency", "EUR"))
	require.NoError(t, s.Settings.Set(ctx, "pin_hash", "local-secret"))
}

func TestExportParseRoundTrip(t *testing.T) {
	s := setupStore(t)
	seedLedger(t, s)
	c := NewCodec(s)

	raw, err := c.ExportJSON(context.Background())
	require.NoError(t, err)

	payload, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, payload.SchemaVersion)
	assert.Len(t, payload.Data.Profiles, 1)
	assert.Len(t, payload.Data.Transactions, 1)
	assert.Equal(t, "Emma", payload.Data.Profiles[0].Name)

	// serializing the parsed payload again produces the same document
	again, err := json.MarshalIndent(payload, "", "  ")
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(again))
}

func TestExport_FiltersProtectedSettings(t *testing.T) {
	s := setupStore(t)
	seedLedger(t, s)
	c := NewCodec(s)

	payload, err := c.Export(context.Background())
	require.NoError(t, err)
	for _, row := range payload.Data.Settings {
		assert.False(t, IsProtectedSettingKey(row.Key), "protected key %q must not be exported", row.Key)
	}
	require.Len(t, payload.Data.Settings, 1)
	assert.Equal(t, "currency", payload.Data.Settings[0].Key)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"not json", `{`, shared.ErrorValidation},
		{"newer schema", `{"schemaVersion": 99, "exportedAt": "2024-01-01T00:00:00Z",
			"data": {"profiles": [], "users": [], "transactions": [], "motifs": [], "settings": []}}`,
			shared.ErrorUnsupportedSchema},
		{"missing exportedAt", `{"schemaVersion": 3,
			"data": {"profiles": [], "users": [], "transactions": [], "motifs": [], "settings": []}}`,
			shared.ErrorValidation},
		{"bad transaction type", `{"schemaVersion": 3, "exportedAt": "2024-01-01T00:00:00Z",
			"data": {"profiles": [], "users": [], "motifs": [], "settings": [], "transactions": [
				{"id": 1, "profileId": 1, "amount": 2, "type": "WIRE", "motifId": 1,
				 "createdBy": 1, "createdAt": "2024-01-01T00:00:00Z", "hiddenForUsers": false}
			]}}`, shared.ErrorValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParse_NamesTheField(t *testing.T) {
	raw := `{"schemaVersion": 3, "exportedAt": "2024-01-01T00:00:00Z",
		"data": {"profiles": [], "users": [], "motifs": [], "settings": [], "transactions": [
			{"id": 1, "profileId": 1, "amount": 2, "type": "CREDIT", "motifId": 1,
			 "createdBy": 1, "createdAt": "2024-01-01T00:00:00Z", "hiddenForUsers": false},
			{"id": 2, "profileId": 1, "amount": 2, "type": "CASH", "motifId": 1,
			 "createdBy": 1, "createdAt": "2024-01-01T00:00:00Z", "hiddenForUsers": false}
		]}}`
	_, err := Parse([]byte(raw))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transactions[1].type")
}

func TestParse_OlderSchemaAccepted(t *testing.T) {
	raw := `{"schemaVersion": 2, "exportedAt": "2023-06-01T00:00:00Z",
		"data": {"profiles": [], "users": [], "transactions": [], "motifs": [], "settings": []}}`
	payload, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, 2, payload.SchemaVersion)
}

func TestImportReplace_PreservesProtectedSettings(t *testing.T) {
	s := setupStore(t)
	seedLedger(t, s)
	c := NewCodec(s)
	ctx := context.Background()

	payload := &models.BackupPayload{
		SchemaVersion: SchemaVersion,
		ExportedAt:    "2024-02-01T00:00:00Z",
		Data: models.BackupData{
			Profiles: []models.Profile{
				{ID: 7, Name: "Leo", Color: "#0000ff", Icon: "dog", CreatedAt: time.Now().UTC()},
			},
			Settings: []models.Setting{
				{Key: "currency", Value: "USD"},
				// an attacker-supplied protected key must never land
				{Key: "pin_hash", Value: "evil"},
			},
		},
	}

	require.NoError(t, c.Import(ctx, payload, ImportReplace))

	profilesAfter, err := s.Profiles.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, profilesAfter, 1)
	assert.Equal(t, "Leo", profilesAfter[0].Name)

	txsAfter, err := s.Transactions.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, txsAfter, "replace clears tables absent from the payload")

	pin, err := s.Settings.Get(ctx, "pin_hash")
	require.NoError(t, err)
	assert.Equal(t, "local-secret", pin, "protected key survives replace")

	currency, err := s.Settings.Get(ctx, "currency")
	require.NoError(t, err)
	assert.Equal(t, "USD", currency)
}

func TestImportMerge_UpsertsWithoutClearing(t *testing.T) {
	s := setupStore(t)
	seedLedger(t, s)
	c := NewCodec(s)
	ctx := context.Background()

	payload := &models.BackupPayload{
		SchemaVersion: SchemaVersion,
		ExportedAt:    "2024-02-01T00:00:00Z",
		Data: models.BackupData{
			Transactions: []models.Transaction{
				{ID: 2, ProfileID: 1, Amount: 3, Type: models.TypeDebit, MotifID: 1,
					CreatedBy: 1, CreatedAt: time.Now().UTC()},
			},
			Settings: []models.Setting{{Key: "pin_hash", Value: "evil"}},
		},
	}

	require.NoError(t, c.Import(ctx, payload, ImportMerge))

	txs, err := s.Transactions.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, 2, "merge keeps existing rows")

	pin, err := s.Settings.Get(ctx, "pin_hash")
	require.NoError(t, err)
	assert.Equal(t, "local-secret", pin)
}

func TestImport_BadModeAndBadPayload(t *testing.T) {
	s := setupStore(t)
	c := NewCodec(s)
	ctx := context.Background()

	good := &models.BackupPayload{
		SchemaVersion: SchemaVersion,
		ExportedAt:    "2024-02-01T00:00:00Z",
	}
	require.ErrorIs(t, c.Import(ctx, good, ImportMode("wipe")), shared.ErrorValidation)

	bad := &models.BackupPayload{SchemaVersion: SchemaVersion + 1, ExportedAt: "2024-02-01T00:00:00Z"}
	require.ErrorIs(t, c.Import(ctx, bad, ImportReplace), shared.ErrorUnsupportedSchema)
}

func TestEncryptedExportImport(t *testing.T) {
	s := setupStore(t)
	seedLedger(t, s)
	c := NewCodec(s)
	ctx := context.Background()

	raw, err := c.ExportEncrypted(ctx, "sekret123")
	require.NoError(t, err)
	assert.True(t, IsEncrypted(raw))

	payload, err := ParseEncrypted(raw, "sekret123")
	require.NoError(t, err)
	assert.Len(t, payload.Data.Profiles, 1)

	_, err = ParseEncrypted(raw, "wrong9999")
	require.ErrorIs(t, err, shared.ErrorDecryptionFailed)
}

func TestExportEncrypted_WeakPassword(t *testing.T) {
	s := setupStore(t)
	c := NewCodec(s)

	_, err := c.ExportEncrypted(context.Background(), "short")
	require.ErrorIs(t, err, shared.ErrorWeakPassword)
}

func TestParseAuto(t *testing.T) {
	s := setupStore(t)
	seedLedger(t, s)
	c := NewCodec(s)
	ctx := context.Background()

	plain, err := c.ExportJSON(ctx)
	require.NoError(t, err)
	asked := false
	_, err = ParseAuto(plain, func() (string, error) { asked = true; return "", nil })
	require.NoError(t, err)
	assert.False(t, asked, "plain backups never prompt for a password")

	sealed, err := c.ExportEncrypted(ctx, "sekret123")
	require.NoError(t, err)
	payload, err := ParseAuto(sealed, func() (string, error) { return "sekret123", nil })
	require.NoError(t, err)
	assert.Len(t, payload.Data.Users, 1)
}

func TestBuildFileNameAndSummarize(t *testing.T) {
	date := time.Date(2024, 3, 5, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "pocketledger-backup-2024-03-05.json", BuildFileName(date))

	payload := &models.BackupPayload{
		ExportedAt: "2024-03-05T23:30:00Z",
		Data: models.BackupData{
			Profiles: []models.Profile{{}, {}},
			Settings: []models.Setting{{Key: "a"}},
		},
	}
	sum := Summarize(payload)
	assert.Equal(t, "2024-03-05T23:30:00Z", sum.ExportedAt)
	assert.Equal(t, 2, sum.Counts.Profiles)
	assert.Equal(t, 1, sum.Counts.Settings)
	assert.Zero(t, sum.Counts.Transactions)
}
