package store

import (
	"time"

	"github.com/jmoiron/sqlx"

	"modguard/model"
)

// AddTimedAction persists a pending timed action. Idempotent on ID: inserting
// an already-scheduled action is a no-op.
func AddTimedAction(db *sqlx.DB, action model.TimedAction) error {
	_, err := db.NamedExec(`INSERT OR IGNORE INTO timed_actions
        (id, guild_id, user_id, kind, due_at, payload, attempts)
        VALUES (:id, :guild_id, :user_id, :kind, :due_at, :payload, :attempts)`, action)
	if err != nil {
		return storageErr("insert timed action", err)
	}
	return nil
}

// GetDueActions retrieves all actions with due_at at or before now.
func GetDueActions(db *sqlx.DB, now time.Time) ([]model.TimedAction, error) {
	var actions []model.TimedAction
	err := db.Select(&actions, `SELECT * FROM timed_actions WHERE due_at <= ?`, now.UTC().Unix())
	if err != nil {
		return nil, storageErr("get due actions", err)
	}
	return actions, nil
}

// ClaimAction removes the action from the pending set and reports whether
// this caller won it. A concurrent cancel or sweep that already removed the
// row makes the claim fail, which is what keeps execution at-most-once.
func ClaimAction(db *sqlx.DB, id string) (bool, error) {
	result, err := db.Exec(`DELETE FROM timed_actions WHERE id = ?`, id)
	if err != nil {
		return false, storageErr("claim timed action", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("claim timed action", err)
	}
	return n == 1, nil
}

// CancelAction removes a pending action by ID. Returns true if one existed.
func CancelAction(db *sqlx.DB, id string) (bool, error) {
	return ClaimAction(db, id)
}

// CancelActionsFor removes pending actions of the given kind for a user.
// Returns true if at least one was removed. Used by manual unmute and
// history clears, which must not error when nothing is pending.
func CancelActionsFor(db *sqlx.DB, guildID, userID string, kind model.ActionKind) (bool, error) {
	result, err := db.Exec(`DELETE FROM timed_actions WHERE guild_id = ? AND user_id = ? AND kind = ?`,
		guildID, userID, kind)
	if err != nil {
		return false, storageErr("cancel timed actions", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("cancel timed actions", err)
	}
	return n > 0, nil
}

// CountPendingActions returns the number of pending timed actions.
func CountPendingActions(db *sqlx.DB) (int, error) {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM timed_actions`); err != nil {
		return 0, storageErr("count pending actions", err)
	}
	return n, nil
}

// ParkAction moves an exhausted action to the dead-letter table so a mute
// that can never be lifted stays visible to operators instead of vanishing.
func ParkAction(db *sqlx.DB, action model.TimedAction, lastErr string) error {
	dl := model.DeadLetter{
		ID:       action.ID,
		GuildID:  action.GuildID,
		UserID:   action.UserID,
		Kind:     string(action.Kind),
		DueAt:    action.DueAt,
		Payload:  action.Payload,
		Attempts: action.Attempts,
		LastErr:  lastErr,
		ParkedAt: time.Now().UTC().Unix(),
	}
	_, err := db.NamedExec(`INSERT OR REPLACE INTO dead_letters
        (id, guild_id, user_id, kind, due_at, payload, attempts, last_err, parked_at)
        VALUES (:id, :guild_id, :user_id, :kind, :due_at, :payload, :attempts, :last_err, :parked_at)`, dl)
	if err != nil {
		return storageErr("park timed action", err)
	}
	return nil
}

// GetDeadLetters returns all parked actions.
func GetDeadLetters(db *sqlx.DB) ([]model.DeadLetter, error) {
	var letters []model.DeadLetter
	if err := db.Select(&letters, `SELECT * FROM dead_letters ORDER BY parked_at ASC`); err != nil {
		return nil, storageErr("get dead letters", err)
	}
	return letters, nil
}

// CountDeadLetters returns the number of parked actions.
func CountDeadLetters(db *sqlx.DB) (int, error) {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM dead_letters`); err != nil {
		return 0, storageErr("count dead letters", err)
	}
	return n, nil
}
