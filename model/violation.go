package model

// EntryType distinguishes audit rows in a user's history.
type EntryType string

const (
	EntryViolation EntryType = "violation"
	EntryCleared   EntryType = "history_cleared"
)

// HistoryEntry represents a single row in the 'violation_history' table.
// Timestamps are unix seconds, UTC.
type HistoryEntry struct {
	EntryID     int64     `db:"entry_id"` // Primary Key, Auto-increment
	GuildID     string    `db:"guild_id"`
	UserID      string    `db:"user_id"`
	CaseID      string    `db:"case_id"`
	EntryType   EntryType `db:"entry_type"`
	RuleID      string    `db:"rule_id"`
	LadderStage int       `db:"ladder_stage"` // 0 for non-ladder entries
	ActionTaken string    `db:"action_taken"`
	Reason      string    `db:"reason"`
	ActorID     string    `db:"actor_id"`
	Timestamp   int64     `db:"timestamp"`
}

// ActivitySnapshot tracks when a member joined and was last active,
// consulted by the periodic inactivity sweep.
type ActivitySnapshot struct {
	GuildID      string `db:"guild_id"`
	UserID       string `db:"user_id"`
	JoinedAt     int64  `db:"joined_at"`
	LastActiveAt int64  `db:"last_active_at"`
}
