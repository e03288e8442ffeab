package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"modguard/model"
	"modguard/store"
)

// nicknameCompliant reports whether the member's guild nickname matches
// their platform account name. An empty nickname means they display under
// the account name and is compliant.
func nicknameCompliant(nickname, accountName string) bool {
	if nickname == "" {
		return true
	}
	return strings.EqualFold(nickname, accountName)
}

// HandleMemberJoin initializes the member's activity snapshot and, when the
// nickname does not match the platform account name, triggers the configured
// nickname rule's specific actions (warning plus compliance deadline).
func (e *Engine) HandleMemberJoin(ctx context.Context, guildID, userID, nickname, accountName string) error {
	if err := store.RecordJoin(e.db, guildID, userID, e.now()); err != nil {
		return err
	}

	if e.cfg.NicknameRuleID == "" || nicknameCompliant(nickname, accountName) {
		return nil
	}

	rule, err := e.catalog.Lookup(e.cfg.NicknameRuleID)
	if err != nil {
		e.logger.Warn("nickname rule not in catalog",
			zap.String("rule_id", e.cfg.NicknameRuleID))
		return nil
	}
	e.logger.Info("member joined with non-compliant nickname",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID))
	return e.applySpecificActions(ctx, guildID, userID, rule)
}

// HandleMemberUpdate records activity and, when the nickname became
// compliant, silently cancels any pending compliance deadline.
func (e *Engine) HandleMemberUpdate(ctx context.Context, guildID, userID, nickname, accountName string) error {
	if err := store.TouchActivity(e.db, guildID, userID, e.now()); err != nil {
		return err
	}
	if nicknameCompliant(nickname, accountName) {
		cancelled, err := e.sched.CancelFor(guildID, userID, model.KindNicknameDeadline)
		if err != nil {
			return err
		}
		if cancelled {
			e.logger.Info("nickname became compliant, deadline cancelled",
				zap.String("user_id", userID))
		}
	}
	return nil
}

// HandleActivity bumps the member's last-active timestamp.
func (e *Engine) HandleActivity(ctx context.Context, guildID, userID string) error {
	return store.TouchActivity(e.db, guildID, userID, e.now())
}

// RunActivitySweep scans every tracked guild for members inactive beyond the
// configured window and schedules their removal. Guilds at or below the
// member-count floor are skipped, as are excluded users and roles.
func (e *Engine) RunActivitySweep(ctx context.Context) error {
	guilds, err := store.GetTrackedGuilds(e.db)
	if err != nil {
		return err
	}
	for _, guildID := range guilds {
		if err := e.sweepGuildActivity(ctx, guildID); err != nil {
			e.logger.Error("activity sweep failed for guild",
				zap.String("guild_id", guildID), zap.Error(err))
		}
	}
	return nil
}

func (e *Engine) sweepGuildActivity(ctx context.Context, guildID string) error {
	memberCount, err := e.enf.MemberCount(ctx, guildID)
	if err != nil {
		return fmt.Errorf("member count for guild %s: %w", guildID, err)
	}
	if memberCount <= e.cfg.Engine.MinMemberCount {
		return nil
	}

	cutoff := e.now().Add(-time.Duration(e.cfg.Engine.InactiveDays) * 24 * time.Hour)
	inactive, err := store.GetInactiveMembers(e.db, guildID, cutoff)
	if err != nil {
		return err
	}

	for _, snapshot := range inactive {
		if slices.Contains(e.cfg.Engine.ExcludedUserIDs, snapshot.UserID) {
			continue
		}
		excluded, err := e.memberExcludedByRole(ctx, guildID, snapshot.UserID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				// Already gone; drop the stale snapshot.
				if err := store.DeleteSnapshot(e.db, guildID, snapshot.UserID); err != nil {
					e.logger.Warn("failed to drop stale snapshot", zap.Error(err))
				}
				continue
			}
			return err
		}
		if excluded {
			continue
		}

		// Route the removal through the scheduler so it inherits the
		// claim/retry/dead-letter machinery.
		if err := e.sched.Schedule(model.TimedAction{
			ID:      uuid.NewString(),
			GuildID: guildID,
			UserID:  snapshot.UserID,
			Kind:    model.KindActivityCheck,
			DueAt:   e.now().UTC().Unix(),
			Payload: fmt.Sprintf("Removed after %d days of inactivity", e.cfg.Engine.InactiveDays),
		}); err != nil {
			return err
		}
		if err := store.DeleteSnapshot(e.db, guildID, snapshot.UserID); err != nil {
			e.logger.Warn("failed to drop snapshot after scheduling removal", zap.Error(err))
		}
	}
	return nil
}

func (e *Engine) memberExcludedByRole(ctx context.Context, guildID, userID string) (bool, error) {
	if len(e.cfg.Engine.ExcludedRoleIDs) == 0 {
		return false, nil
	}
	roleIDs, err := e.enf.MemberRoles(ctx, guildID, userID)
	if err != nil {
		return false, err
	}
	for _, id := range roleIDs {
		if slices.Contains(e.cfg.Engine.ExcludedRoleIDs, id) {
			return true, nil
		}
	}
	return false, nil
}
