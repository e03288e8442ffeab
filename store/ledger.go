package store

import (
	"time"

	"github.com/jmoiron/sqlx"

	"modguard/model"
)

// RecordViolation atomically increments the user's violation count and
// appends the history entry built from the post-increment count, in one
// transaction. The entry builder runs inside the transaction so the ladder
// tier it resolves can never be computed from a stale count.
func RecordViolation(db *sqlx.DB, guildID, userID string, build func(newCount int) model.HistoryEntry) (int, error) {
	tx, err := db.Beginx()
	if err != nil {
		return 0, storageErr("begin violation tx", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRow(`INSERT INTO violation_counts (guild_id, user_id, count) VALUES (?, ?, 1)
        ON CONFLICT(guild_id, user_id) DO UPDATE SET count = count + 1
        RETURNING count`, guildID, userID).Scan(&count)
	if err != nil {
		return 0, storageErr("increment violation count", err)
	}

	entry := build(count)
	entry.GuildID = guildID
	entry.UserID = userID
	if entry.Timestamp == 0 {
		entry.Timestamp = time.Now().UTC().Unix()
	}

	if _, err := tx.NamedExec(`INSERT INTO violation_history
        (guild_id, user_id, case_id, entry_type, rule_id, ladder_stage, action_taken, reason, actor_id, timestamp)
        VALUES (:guild_id, :user_id, :case_id, :entry_type, :rule_id, :ladder_stage, :action_taken, :reason, :actor_id, :timestamp)`,
		entry); err != nil {
		return 0, storageErr("insert history entry", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit violation tx", err)
	}
	return count, nil
}

// GetHistory returns a user's history entries, most recent last.
func GetHistory(db *sqlx.DB, guildID, userID string) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	err := db.Select(&entries, `SELECT * FROM violation_history
        WHERE guild_id = ? AND user_id = ? ORDER BY entry_id ASC`, guildID, userID)
	if err != nil {
		return nil, storageErr("get history", err)
	}
	return entries, nil
}

// GetCount returns a user's current violation count. Users with no record
// have count 0.
func GetCount(db *sqlx.DB, guildID, userID string) (int, error) {
	var count int
	err := db.Get(&count, `SELECT COALESCE(
        (SELECT count FROM violation_counts WHERE guild_id = ? AND user_id = ?), 0)`,
		guildID, userID)
	if err != nil {
		return 0, storageErr("get violation count", err)
	}
	return count, nil
}

// ClearHistory resets the user's count to 0 and appends an explicit audit
// entry naming the actor. The reset and the audit row commit together.
func ClearHistory(db *sqlx.DB, guildID, userID, actorID, caseID string) error {
	tx, err := db.Beginx()
	if err != nil {
		return storageErr("begin clear tx", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO violation_counts (guild_id, user_id, count) VALUES (?, ?, 0)
        ON CONFLICT(guild_id, user_id) DO UPDATE SET count = 0`, guildID, userID); err != nil {
		return storageErr("reset violation count", err)
	}

	entry := model.HistoryEntry{
		GuildID:   guildID,
		UserID:    userID,
		CaseID:    caseID,
		EntryType: model.EntryCleared,
		Reason:    "history cleared by " + actorID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC().Unix(),
	}
	if _, err := tx.NamedExec(`INSERT INTO violation_history
        (guild_id, user_id, case_id, entry_type, rule_id, ladder_stage, action_taken, reason, actor_id, timestamp)
        VALUES (:guild_id, :user_id, :case_id, :entry_type, :rule_id, :ladder_stage, :action_taken, :reason, :actor_id, :timestamp)`,
		entry); err != nil {
		return storageErr("insert clear entry", err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit clear tx", err)
	}
	return nil
}

// CountHistoryEntries returns the total number of history rows, used by the
// operator status command.
func CountHistoryEntries(db *sqlx.DB) (int, error) {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM violation_history`); err != nil {
		return 0, storageErr("count history entries", err)
	}
	return n, nil
}
