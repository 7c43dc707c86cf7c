package sync

import (
	"fmt"
	"sort"
	"time"

	"pocketledger/internal/models"
	"pocketledger/internal/shared"
)

// Fingerprints of the user-editable content of each entity. Used to tell a
// real concurrent edit from a harmless double delivery when timestamps tie.

func fingerprintProfile(p models.Profile) string {
	return shared.SHA256Hex(fmt.Appendf(nil, "%s|%s|%s", p.Name, p.Color, p.Icon))
}

func fingerprintUser(u models.User) string {
	profileID := "null"
	if u.ProfileID != nil {
		profileID = fmt.Sprint(*u.ProfileID)
	}
	return shared.SHA256Hex(fmt.Appendf(nil, "%s|%s|%s", u.Name, u.Role, profileID))
}

func fingerprintMotif(m models.Motif) string {
	return shared.SHA256Hex(fmt.Appendf(nil, "%s|%s|%s", m.Label, m.Type, m.Icon))
}

// effectiveTime is the LWW timestamp of a record: updatedAt when set,
// createdAt otherwise.
func effectiveTime(updatedAt *time.Time, createdAt time.Time) time.Time {
	if updatedAt != nil {
		return *updatedAt
	}
	return createdAt
}

// MergeTransactions unions both sides by id. Transactions are immutable facts,
// so there is no conflict to resolve; on a duplicate id the local row is kept.
// The result is ordered newest first, ties broken by id, so repeated merges of
// the same inputs are byte-identical.
func MergeTransactions(local, remote []models.Transaction) []models.Transaction {
	byID := make(map[int64]models.Transaction, len(local)+len(remote))
	for _, tx := range local {
		byID[tx.ID] = tx
	}
	for _, tx := range remote {
		if _, ok := byID[tx.ID]; !ok {
			byID[tx.ID] = tx
		}
	}

	merged := make([]models.Transaction, 0, len(byID))
	for _, tx := range byID {
		merged = append(merged, tx)
	}
	sort.Slice(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].CreatedAt.After(merged[j].CreatedAt)
		}
		return merged[i].ID < merged[j].ID
	})
	return merged
}

// mergeLWW resolves two versions of the same record. Returns the winner and a
// conflict log entry, or nil when both sides are identical in content.
func mergeLWW[T any](entityType string, id int64, local, remote T,
	localTime, remoteTime time.Time, localPrint, remotePrint string, now time.Time) (T, *ConflictLog) {

	log := func(winner T, res Resolution) (T, *ConflictLog) {
		return winner, &ConflictLog{
			EntityType:  entityType,
			EntityID:    id,
			Resolution:  res,
			LocalValue:  local,
			RemoteValue: remote,
			Timestamp:   now.UTC().Format(time.RFC3339),
		}
	}

	switch {
	case remoteTime.After(localTime):
		return log(remote, ResolutionRemoteWins)
	case remoteTime.Equal(localTime):
		if localPrint != remotePrint {
			// concurrent edit with identical timestamps, keep ours
			return log(local, ResolutionLocalWinsTie)
		}
		return local, nil
	default:
		return log(local, ResolutionLocalWins)
	}
}

// MergeProfiles applies last-write-wins per profile id.
func MergeProfiles(local, remote []models.Profile, now time.Time) ([]models.Profile, []ConflictLog) {
	byID := make(map[int64]models.Profile, len(local))
	for _, p := range local {
		byID[p.ID] = p
	}

	var conflicts []ConflictLog
	for _, rp := range remote {
		lp, ok := byID[rp.ID]
		if !ok {
			byID[rp.ID] = rp
			continue
		}
		winner, c := mergeLWW("profile", rp.ID, lp, rp,
			effectiveTime(lp.UpdatedAt, lp.CreatedAt),
			effectiveTime(rp.UpdatedAt, rp.CreatedAt),
			fingerprintProfile(lp), fingerprintProfile(rp), now)
		byID[rp.ID] = winner
		if c != nil {
			conflicts = append(conflicts, *c)
		}
	}
	return sortedByID(byID), conflicts
}

// MergeUsers applies last-write-wins per user id.
func MergeUsers(local, remote []models.User, now time.Time) ([]models.User, []ConflictLog) {
	byID := make(map[int64]models.User, len(local))
	for _, u := range local {
		byID[u.ID] = u
	}

	var conflicts []ConflictLog
	for _, ru := range remote {
		lu, ok := byID[ru.ID]
		if !ok {
			byID[ru.ID] = ru
			continue
		}
		winner, c := mergeLWW("user", ru.ID, lu, ru,
			effectiveTime(lu.UpdatedAt, lu.CreatedAt),
			effectiveTime(ru.UpdatedAt, ru.CreatedAt),
			fingerprintUser(lu), fingerprintUser(ru), now)
		byID[ru.ID] = winner
		if c != nil {
			conflicts = append(conflicts, *c)
		}
	}
	return sortedByID(byID), conflicts
}

// MergeMotifs applies last-write-wins per motif id, except that when both
// sides are system defaults the local copy is kept untouched. Motifs have no
// createdAt; a missing updatedAt counts as the zero time.
func MergeMotifs(local, remote []models.Motif, now time.Time) ([]models.Motif, []ConflictLog) {
	byID := make(map[int64]models.Motif, len(local))
	for _, m := range local {
		byID[m.ID] = m
	}

	var conflicts []ConflictLog
	for _, rm := range remote {
		lm, ok := byID[rm.ID]
		if !ok {
			byID[rm.ID] = rm
			continue
		}
		if lm.IsDefault && rm.IsDefault {
			continue
		}
		winner, c := mergeLWW("motif", rm.ID, lm, rm,
			effectiveTime(lm.UpdatedAt, time.Time{}),
			effectiveTime(rm.UpdatedAt, time.Time{}),
			fingerprintMotif(lm), fingerprintMotif(rm), now)
		byID[rm.ID] = winner
		if c != nil {
			conflicts = append(conflicts, *c)
		}
	}
	return sortedByID(byID), conflicts
}

// MergeSettings merges by key: a remote key wins when it is new or carries a
// different value, protected keys are never taken from the remote side.
func MergeSettings(local, remote []models.Setting, isProtected func(string) bool) []models.Setting {
	byKey := make(map[string]models.Setting, len(local))
	order := make([]string, 0, len(local))
	for _, s := range local {
		if _, ok := byKey[s.Key]; !ok {
			order = append(order, s.Key)
		}
		byKey[s.Key] = s
	}

	for _, rs := range remote {
		if isProtected(rs.Key) {
			continue
		}
		existing, ok := byKey[rs.Key]
		if !ok {
			order = append(order, rs.Key)
			byKey[rs.Key] = rs
			continue
		}
		if rs.Value != existing.Value {
			byKey[rs.Key] = rs
		}
	}

	sort.Strings(order)
	merged := make([]models.Setting, 0, len(order))
	for _, key := range order {
		merged = append(merged, byKey[key])
	}
	return merged
}

// MergeBackups merges two full payloads into a new one stamped at now. The
// result's schema version is the max of both sides. Merging the same pair
// twice yields the same data.
func MergeBackups(local, remote *models.BackupPayload, isProtected func(string) bool, now time.Time) (*models.BackupPayload, []ConflictLog) {
	var conflicts []ConflictLog

	profiles, c := MergeProfiles(local.Data.Profiles, remote.Data.Profiles, now)
	conflicts = append(conflicts, c...)
	users, c := MergeUsers(local.Data.Users, remote.Data.Users, now)
	conflicts = append(conflicts, c...)
	motifs, c := MergeMotifs(local.Data.Motifs, remote.Data.Motifs, now)
	conflicts = append(conflicts, c...)

	schemaVersion := local.SchemaVersion
	if remote.SchemaVersion > schemaVersion {
		schemaVersion = remote.SchemaVersion
	}

	return &models.BackupPayload{
		SchemaVersion: schemaVersion,
		ExportedAt:    now.UTC().Format(time.RFC3339),
		Data: models.BackupData{
			Profiles:     profiles,
			Users:        users,
			Transactions: MergeTransactions(local.Data.Transactions, remote.Data.Transactions),
			Motifs:       motifs,
			Settings:     MergeSettings(local.Data.Settings, remote.Data.Settings, isProtected),
		},
	}, conflicts
}

type identifiable interface {
	models.Profile | models.User | models.Motif
}

func sortedByID[T identifiable](byID map[int64]T) []T {
	ids := make([]int64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}
