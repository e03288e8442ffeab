package model

import "time"

// ActionType says how violations of a rule are resolved.
type ActionType string

const (
	// ActionTypeGeneral defers to the shared punishment ladder.
	ActionTypeGeneral ActionType = "general_violation"
	// ActionTypeSpecific carries its own concrete action descriptors.
	ActionTypeSpecific ActionType = "specific_action"
)

// SpecificActionKind is the closed set of non-ladder enforcement steps a rule
// may carry. Unknown kinds are rejected at catalog load, not at use time.
type SpecificActionKind string

const (
	ActionMonitorNickname SpecificActionKind = "monitor_nickname_compliance"
	ActionPermanentRemove SpecificActionKind = "permanent_remove"
	ActionRevokeAdminRole SpecificActionKind = "revoke_admin_role"
)

// ActionDescriptor is one concrete step attached to a specific_action rule.
type ActionDescriptor struct {
	Kind           SpecificActionKind `mapstructure:"type"`
	ReasonTemplate string             `mapstructure:"reason_template"`
	DeadlineDays   int                `mapstructure:"deadline_days"`
	RoleID         string             `mapstructure:"role_id"`
}

// Rule is a single catalog entry. Immutable after load.
type Rule struct {
	ID         string             `mapstructure:"id"`
	Text       string             `mapstructure:"text"`
	ActionType ActionType         `mapstructure:"action_type"`
	Actions    []ActionDescriptor `mapstructure:"actions"`
}

// LadderAction is the punishment applied by a ladder rung.
type LadderAction string

const (
	LadderMute       LadderAction = "mute"
	LadderRemoveTemp LadderAction = "remove_temporary"
	LadderBan        LadderAction = "ban_permanent"
)

// LadderEntry is one rung of the general punishment ladder. Rungs are ordered
// by ascending threshold; counts beyond the last rung repeat its action.
type LadderEntry struct {
	Threshold           int
	Action              LadderAction
	Duration            time.Duration
	CanRejoin           bool
	DescriptionTemplate string
}
