package model

import "time"

// ActionKind is the kind of a scheduled future action.
type ActionKind string

const (
	KindUnmute           ActionKind = "unmute"
	KindNicknameDeadline ActionKind = "nickname_deadline"
	KindTempRemoveExpiry ActionKind = "temp_remove_expiry"
	KindActivityCheck    ActionKind = "activity_check"
)

// TimedAction is a pending delayed action owned by the scheduler from
// creation until it fires or is cancelled. DueAt is stored as unix
// seconds UTC; display strings are never parsed for scheduling math.
type TimedAction struct {
	ID       string     `db:"id"`
	GuildID  string     `db:"guild_id"`
	UserID   string     `db:"user_id"`
	Kind     ActionKind `db:"kind"`
	DueAt    int64      `db:"due_at"`
	Payload  string     `db:"payload"` // JSON, kind-specific
	Attempts int        `db:"attempts"`
}

// Due reports whether the action is due at the given time.
func (a TimedAction) Due(now time.Time) bool {
	return a.DueAt <= now.UTC().Unix()
}

// DeadLetter is a timed action parked after exhausting its retry budget.
type DeadLetter struct {
	ID       string `db:"id"`
	GuildID  string `db:"guild_id"`
	UserID   string `db:"user_id"`
	Kind     string `db:"kind"`
	DueAt    int64  `db:"due_at"`
	Payload  string `db:"payload"`
	Attempts int    `db:"attempts"`
	LastErr  string `db:"last_err"`
	ParkedAt int64  `db:"parked_at"`
}
