package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"modguard/model"
	"modguard/utils"
)

// Enforcer is the discordgo implementation of the engine's enforcement
// primitives. Mutes are role-based: the muted role is added and the verified
// role (when configured) withdrawn, mirroring what moderators do by hand.
type Enforcer struct {
	Session *discordgo.Session
	Config  *model.Config
	Logger  *zap.Logger
}

func NewEnforcer(session *discordgo.Session, cfg *model.Config, logger *zap.Logger) *Enforcer {
	return &Enforcer{Session: session, Config: cfg, Logger: logger.Named("enforcer")}
}

// notFound maps the platform's 404 responses onto the engine's taxonomy.
func notFound(err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == 404 {
		return fmt.Errorf("%w: %v", model.ErrNotFound, err)
	}
	return err
}

func (e *Enforcer) Mute(ctx context.Context, guildID, userID string, duration time.Duration, reason string) error {
	if err := e.Session.GuildMemberRoleAdd(guildID, userID, e.Config.MutedRoleID); err != nil {
		return notFound(err)
	}
	if e.Config.VerifiedRoleID != "" {
		if err := e.Session.GuildMemberRoleRemove(guildID, userID, e.Config.VerifiedRoleID); err != nil {
			e.Logger.Warn("failed to withdraw verified role on mute",
				zap.String("user_id", userID), zap.Error(err))
		}
	}
	e.Logger.Info("muted member",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.String("duration", utils.FormatDuration(duration)),
		zap.String("reason", reason))
	return nil
}

func (e *Enforcer) Unmute(ctx context.Context, guildID, userID string) error {
	if err := e.Session.GuildMemberRoleRemove(guildID, userID, e.Config.MutedRoleID); err != nil {
		return notFound(err)
	}
	if e.Config.VerifiedRoleID != "" {
		if err := e.Session.GuildMemberRoleAdd(guildID, userID, e.Config.VerifiedRoleID); err != nil {
			e.Logger.Warn("failed to restore verified role on unmute",
				zap.String("user_id", userID), zap.Error(err))
		}
	}
	e.Logger.Info("unmuted member",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID))
	return nil
}

func (e *Enforcer) RemoveTemporarily(ctx context.Context, guildID, userID, reason string) error {
	if err := e.Session.GuildMemberDeleteWithReason(guildID, userID, reason); err != nil {
		return notFound(err)
	}
	e.Logger.Info("removed member",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.String("reason", reason))
	return nil
}

func (e *Enforcer) BanPermanently(ctx context.Context, guildID, userID, reason string) error {
	if err := e.Session.GuildBanCreateWithReason(guildID, userID, reason, 0); err != nil {
		return notFound(err)
	}
	e.Logger.Info("banned member",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.String("reason", reason))
	return nil
}

func (e *Enforcer) LiftRemoval(ctx context.Context, guildID, userID string) error {
	if err := e.Session.GuildBanDelete(guildID, userID); err != nil {
		return notFound(err)
	}
	e.Logger.Info("lifted removal",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID))
	return nil
}

func (e *Enforcer) RevokeRole(ctx context.Context, guildID, userID, roleID string) error {
	if err := e.Session.GuildMemberRoleRemove(guildID, userID, roleID); err != nil {
		return notFound(err)
	}
	return nil
}

func (e *Enforcer) Notify(ctx context.Context, guildID, userID, message string) error {
	channel, err := e.Session.UserChannelCreate(userID)
	if err != nil {
		return err
	}
	_, err = e.Session.ChannelMessageSend(channel.ID, message)
	return err
}

func (e *Enforcer) NotifyChannel(ctx context.Context, channelID, message string) error {
	_, err := e.Session.ChannelMessageSend(channelID, message)
	return err
}

func (e *Enforcer) MemberNames(ctx context.Context, guildID, userID string) (string, string, error) {
	member, err := e.Session.GuildMember(guildID, userID)
	if err != nil {
		return "", "", notFound(err)
	}
	return member.Nick, member.User.Username, nil
}

func (e *Enforcer) MemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	member, err := e.Session.GuildMember(guildID, userID)
	if err != nil {
		return nil, notFound(err)
	}
	return member.Roles, nil
}

func (e *Enforcer) MemberCount(ctx context.Context, guildID string) (int, error) {
	guild, err := e.Session.GuildWithCounts(guildID)
	if err != nil {
		return 0, notFound(err)
	}
	return guild.ApproximateMemberCount, nil
}
