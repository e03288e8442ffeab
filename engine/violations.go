package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"modguard/model"
	"modguard/store"
	"modguard/utils"
)

// nicknamePayload is the payload of nickname_deadline actions.
type nicknamePayload struct {
	RuleID         string `json:"rule_id"`
	ReasonTemplate string `json:"reason_template"`
}

// HandleViolation processes a reported rule violation and returns the user's
// new violation count. General violations go through the ledger and the
// punishment ladder; specific-action rules apply their configured steps
// directly. Storage failures abort before any enforcement so a sanction is
// never applied unrecorded; enforcement failures surface after the record is
// already committed.
func (e *Engine) HandleViolation(ctx context.Context, guildID, userID, ruleID, reporterID string) (int, error) {
	rule, err := e.catalog.Lookup(ruleID)
	if err != nil {
		e.logger.Warn("violation reported for unknown rule",
			zap.String("rule_id", ruleID),
			zap.String("user_id", userID))
		return 0, err
	}

	switch rule.ActionType {
	case model.ActionTypeGeneral:
		return e.handleGeneralViolation(ctx, guildID, userID, rule, reporterID)
	case model.ActionTypeSpecific:
		return e.handleSpecificViolation(ctx, guildID, userID, rule, reporterID)
	default:
		// Unreachable: catalog validation rejects unknown action types.
		return 0, fmt.Errorf("rule %s has invalid action type %q", rule.ID, rule.ActionType)
	}
}

func (e *Engine) handleGeneralViolation(ctx context.Context, guildID, userID string, rule model.Rule, reporterID string) (int, error) {
	key := userKey(guildID, userID)
	caseID := utils.GenerateCaseID()
	ladder := e.catalog.Ladder()

	var tier model.LadderEntry
	e.locks.Lock(key)
	newCount, err := store.RecordViolation(e.db, guildID, userID, func(n int) model.HistoryEntry {
		tier = ladder.TierFor(n)
		stage := n
		if stage > ladder.MaxThreshold() {
			stage = ladder.MaxThreshold()
		}
		return model.HistoryEntry{
			CaseID:      caseID,
			EntryType:   model.EntryViolation,
			RuleID:      rule.ID,
			LadderStage: stage,
			ActionTaken: string(tier.Action),
			Reason:      renderReason(tier.DescriptionTemplate, n, rule.Text, tier.Duration, 0),
			ActorID:     reporterID,
		}
	})
	e.locks.Unlock(key)
	if err != nil {
		return 0, fmt.Errorf("record violation for user %s: %w", userID, err)
	}

	reason := renderReason(tier.DescriptionTemplate, newCount, rule.Text, tier.Duration, 0)
	e.logger.Info("general violation recorded",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.String("rule_id", rule.ID),
		zap.String("case_id", caseID),
		zap.Int("count", newCount),
		zap.String("action", string(tier.Action)))

	// Platform calls happen outside the per-user lock.
	if err := e.applyTier(ctx, guildID, userID, tier, reason); err != nil {
		return newCount, err
	}

	e.notifyUser(ctx, guildID, userID, fmt.Sprintf("You received a warning (case %s): %s", caseID, reason))
	e.audit(ctx, fmt.Sprintf("User <@%s> warned (case %s, violation #%d): %s", userID, caseID, newCount, reason))
	return newCount, nil
}

// applyTier applies a ladder rung and registers any follow-up timed action.
func (e *Engine) applyTier(ctx context.Context, guildID, userID string, tier model.LadderEntry, reason string) error {
	switch tier.Action {
	case model.LadderMute:
		if err := e.enf.Mute(ctx, guildID, userID, tier.Duration, reason); err != nil {
			return fmt.Errorf("mute user %s: %w", userID, errors.Join(model.ErrPrimitive, err))
		}
		return e.sched.Schedule(model.TimedAction{
			ID:      uuid.NewString(),
			GuildID: guildID,
			UserID:  userID,
			Kind:    model.KindUnmute,
			DueAt:   e.now().Add(tier.Duration).UTC().Unix(),
		})
	case model.LadderRemoveTemp:
		if tier.Duration > 0 {
			// Timed removal: ban now, lift when the window elapses.
			if err := e.enf.BanPermanently(ctx, guildID, userID, reason); err != nil {
				return fmt.Errorf("remove user %s: %w", userID, errors.Join(model.ErrPrimitive, err))
			}
			return e.sched.Schedule(model.TimedAction{
				ID:      uuid.NewString(),
				GuildID: guildID,
				UserID:  userID,
				Kind:    model.KindTempRemoveExpiry,
				DueAt:   e.now().Add(tier.Duration).UTC().Unix(),
			})
		}
		if err := e.enf.RemoveTemporarily(ctx, guildID, userID, reason); err != nil {
			return fmt.Errorf("remove user %s: %w", userID, errors.Join(model.ErrPrimitive, err))
		}
		return nil
	case model.LadderBan:
		if err := e.enf.BanPermanently(ctx, guildID, userID, reason); err != nil {
			return fmt.Errorf("ban user %s: %w", userID, errors.Join(model.ErrPrimitive, err))
		}
		return nil
	default:
		return fmt.Errorf("unknown ladder action %q", tier.Action)
	}
}

func (e *Engine) handleSpecificViolation(ctx context.Context, guildID, userID string, rule model.Rule, reporterID string) (int, error) {
	key := userKey(guildID, userID)
	caseID := utils.GenerateCaseID()

	e.locks.Lock(key)
	newCount, err := store.RecordViolation(e.db, guildID, userID, func(n int) model.HistoryEntry {
		return model.HistoryEntry{
			CaseID:      caseID,
			EntryType:   model.EntryViolation,
			RuleID:      rule.ID,
			ActionTaken: string(model.ActionTypeSpecific),
			Reason:      rule.Text,
			ActorID:     reporterID,
		}
	})
	e.locks.Unlock(key)
	if err != nil {
		return 0, fmt.Errorf("record violation for user %s: %w", userID, err)
	}

	e.logger.Info("specific-action violation recorded",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.String("rule_id", rule.ID),
		zap.String("case_id", caseID))

	if err := e.applySpecificActions(ctx, guildID, userID, rule); err != nil {
		return newCount, err
	}
	e.audit(ctx, fmt.Sprintf("User <@%s> sanctioned under rule %s (case %s)", userID, rule.ID, caseID))
	return newCount, nil
}

// applySpecificActions applies each configured action descriptor of a
// specific_action rule. No ladder lookup is involved.
func (e *Engine) applySpecificActions(ctx context.Context, guildID, userID string, rule model.Rule) error {
	for _, a := range rule.Actions {
		switch a.Kind {
		case model.ActionMonitorNickname:
			payload, err := json.Marshal(nicknamePayload{RuleID: rule.ID, ReasonTemplate: a.ReasonTemplate})
			if err != nil {
				return fmt.Errorf("encode nickname payload: %w", err)
			}
			deadline := e.now().Add(time.Duration(a.DeadlineDays) * 24 * time.Hour)
			if err := e.sched.Schedule(model.TimedAction{
				ID:      uuid.NewString(),
				GuildID: guildID,
				UserID:  userID,
				Kind:    model.KindNicknameDeadline,
				DueAt:   deadline.UTC().Unix(),
				Payload: string(payload),
			}); err != nil {
				return err
			}
			e.notifyUser(ctx, guildID, userID,
				renderReason(a.ReasonTemplate, 0, rule.Text, 0, a.DeadlineDays))
		case model.ActionPermanentRemove:
			reason := renderReason(a.ReasonTemplate, 0, rule.Text, 0, 0)
			if err := e.enf.BanPermanently(ctx, guildID, userID, reason); err != nil {
				return fmt.Errorf("permanent remove user %s: %w", userID, errors.Join(model.ErrPrimitive, err))
			}
		case model.ActionRevokeAdminRole:
			if err := e.enf.RevokeRole(ctx, guildID, userID, a.RoleID); err != nil {
				return fmt.Errorf("revoke role for user %s: %w", userID, errors.Join(model.ErrPrimitive, err))
			}
		}
	}
	return nil
}

// notifyUser sends a best-effort DM. Failures are logged, never escalated:
// an unreachable DM must not roll back a recorded violation.
func (e *Engine) notifyUser(ctx context.Context, guildID, userID, message string) {
	if err := e.enf.Notify(ctx, guildID, userID, message); err != nil {
		e.logger.Warn("failed to notify user", zap.String("user_id", userID), zap.Error(err))
	}
}

// audit posts to the audit channel when one is configured.
func (e *Engine) audit(ctx context.Context, message string) {
	if e.cfg.AuditChannelID == "" {
		return
	}
	if err := e.enf.NotifyChannel(ctx, e.cfg.AuditChannelID, message); err != nil {
		e.logger.Warn("failed to post audit message", zap.Error(err))
	}
}
