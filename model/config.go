package model

import "time"

// Config holds process-level configuration loaded from the environment.
type Config struct {
	BotToken       string
	AppID          string
	AuditChannelID string
	AdminRoleIDs   []string

	MutedRoleID    string
	VerifiedRoleID string
	NicknameRuleID string

	DBPath      string
	CatalogPath string

	Engine EngineConfig
}

// EngineConfig tunes sweep cadences and the activity policy.
type EngineConfig struct {
	SweepInterval    time.Duration
	MaxAttempts      int
	ActivitySweepHrs []int // hours of day the inactivity sweep runs

	MinMemberCount   int
	InactiveDays     int
	ExcludedRoleIDs  []string
	ExcludedUserIDs  []string
}
