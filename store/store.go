package store

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"modguard/model"
)

// Open connects to the moderation database and ensures all tables exist.
// The busy timeout keeps concurrent writers retrying instead of failing.
func Open(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to moderation database: %w", err)
	}

	schema := `
    CREATE TABLE IF NOT EXISTS violation_counts (
        guild_id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        count INTEGER NOT NULL DEFAULT 0,
        PRIMARY KEY (guild_id, user_id)
    );
    CREATE TABLE IF NOT EXISTS violation_history (
        entry_id INTEGER PRIMARY KEY AUTOINCREMENT,
        guild_id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        case_id TEXT NOT NULL,
        entry_type TEXT NOT NULL,
        rule_id TEXT NOT NULL DEFAULT '',
        ladder_stage INTEGER NOT NULL DEFAULT 0,
        action_taken TEXT NOT NULL DEFAULT '',
        reason TEXT NOT NULL DEFAULT '',
        actor_id TEXT NOT NULL DEFAULT '',
        timestamp INTEGER NOT NULL
    );
    CREATE TABLE IF NOT EXISTS timed_actions (
        id TEXT PRIMARY KEY,
        guild_id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        kind TEXT NOT NULL,
        due_at INTEGER NOT NULL,
        payload TEXT NOT NULL DEFAULT '',
        attempts INTEGER NOT NULL DEFAULT 0
    );
    CREATE TABLE IF NOT EXISTS dead_letters (
        id TEXT PRIMARY KEY,
        guild_id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        kind TEXT NOT NULL,
        due_at INTEGER NOT NULL,
        payload TEXT NOT NULL DEFAULT '',
        attempts INTEGER NOT NULL,
        last_err TEXT NOT NULL DEFAULT '',
        parked_at INTEGER NOT NULL
    );
    CREATE TABLE IF NOT EXISTS member_activity (
        guild_id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        joined_at INTEGER NOT NULL,
        last_active_at INTEGER NOT NULL,
        PRIMARY KEY (guild_id, user_id)
    );`

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create moderation tables: %w", err)
	}

	return db, nil
}

// storageErr tags a store failure with the taxonomy sentinel so callers can
// match it with errors.Is while keeping the driver error in the chain.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(model.ErrStorage, err))
}
