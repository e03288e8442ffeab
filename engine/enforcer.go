package engine

import (
	"context"
	"time"
)

// Enforcer is the abstract platform capability set the engine drives. The
// discordgo binding in the bot package implements it; tests substitute a
// recording fake.
type Enforcer interface {
	Mute(ctx context.Context, guildID, userID string, duration time.Duration, reason string) error
	Unmute(ctx context.Context, guildID, userID string) error
	// RemoveTemporarily kicks the member; they may rejoin via invite.
	RemoveTemporarily(ctx context.Context, guildID, userID, reason string) error
	BanPermanently(ctx context.Context, guildID, userID, reason string) error
	// LiftRemoval reverses a ban once a temporary removal window elapses.
	LiftRemoval(ctx context.Context, guildID, userID string) error
	RevokeRole(ctx context.Context, guildID, userID, roleID string) error
	Notify(ctx context.Context, guildID, userID, message string) error
	NotifyChannel(ctx context.Context, channelID, message string) error

	// MemberNames returns the member's current nickname and platform account
	// name, wrapped ErrNotFound when they are no longer in the guild.
	MemberNames(ctx context.Context, guildID, userID string) (nickname, accountName string, err error)
	MemberRoles(ctx context.Context, guildID, userID string) ([]string, error)
	MemberCount(ctx context.Context, guildID string) (int, error)
}
