package store

import (
	"time"

	"github.com/jmoiron/sqlx"

	"modguard/model"
)

// RecordJoin initializes (or refreshes) a member's activity snapshot on join.
func RecordJoin(db *sqlx.DB, guildID, userID string, at time.Time) error {
	ts := at.UTC().Unix()
	_, err := db.Exec(`INSERT INTO member_activity (guild_id, user_id, joined_at, last_active_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(guild_id, user_id) DO UPDATE SET joined_at = excluded.joined_at, last_active_at = excluded.last_active_at`,
		guildID, userID, ts, ts)
	if err != nil {
		return storageErr("record member join", err)
	}
	return nil
}

// TouchActivity bumps a member's last-active timestamp on qualifying events.
// Members seen active before any recorded join get a snapshot too.
func TouchActivity(db *sqlx.DB, guildID, userID string, at time.Time) error {
	ts := at.UTC().Unix()
	_, err := db.Exec(`INSERT INTO member_activity (guild_id, user_id, joined_at, last_active_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(guild_id, user_id) DO UPDATE SET last_active_at = excluded.last_active_at`,
		guildID, userID, ts, ts)
	if err != nil {
		return storageErr("touch member activity", err)
	}
	return nil
}

// GetInactiveMembers returns snapshots whose last activity is at or before
// the cutoff.
func GetInactiveMembers(db *sqlx.DB, guildID string, cutoff time.Time) ([]model.ActivitySnapshot, error) {
	var snapshots []model.ActivitySnapshot
	err := db.Select(&snapshots, `SELECT * FROM member_activity
        WHERE guild_id = ? AND last_active_at <= ?`, guildID, cutoff.UTC().Unix())
	if err != nil {
		return nil, storageErr("get inactive members", err)
	}
	return snapshots, nil
}

// GetTrackedGuilds returns the guild IDs with at least one activity snapshot.
func GetTrackedGuilds(db *sqlx.DB) ([]string, error) {
	var guilds []string
	if err := db.Select(&guilds, `SELECT DISTINCT guild_id FROM member_activity`); err != nil {
		return nil, storageErr("get tracked guilds", err)
	}
	return guilds, nil
}

// DeleteSnapshot removes a member's activity snapshot, used after an
// inactivity removal.
func DeleteSnapshot(db *sqlx.DB, guildID, userID string) error {
	if _, err := db.Exec(`DELETE FROM member_activity WHERE guild_id = ? AND user_id = ?`,
		guildID, userID); err != nil {
		return storageErr("delete activity snapshot", err)
	}
	return nil
}
