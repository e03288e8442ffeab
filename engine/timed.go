package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"modguard/model"
)

// ExecuteTimedAction executes a due timed action on behalf of the scheduler.
// A returned error means the scheduler keeps the action for another attempt.
func (e *Engine) ExecuteTimedAction(ctx context.Context, action model.TimedAction) error {
	switch action.Kind {
	case model.KindUnmute:
		return e.executeUnmute(ctx, action)
	case model.KindNicknameDeadline:
		return e.executeNicknameDeadline(ctx, action)
	case model.KindTempRemoveExpiry:
		return e.executeTempRemoveExpiry(ctx, action)
	case model.KindActivityCheck:
		return e.executeActivityCheck(ctx, action)
	default:
		e.logger.Error("timed action with unknown kind dropped",
			zap.String("id", action.ID), zap.String("kind", string(action.Kind)))
		return nil
	}
}

func (e *Engine) executeUnmute(ctx context.Context, action model.TimedAction) error {
	err := e.retryReversal(ctx, func() error {
		err := e.enf.Unmute(ctx, action.GuildID, action.UserID)
		if errors.Is(err, model.ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			// Member left; nothing to lift.
			return nil
		}
		return fmt.Errorf("unmute user %s: %w", action.UserID, errors.Join(model.ErrPrimitive, err))
	}
	e.audit(ctx, fmt.Sprintf("Mute for <@%s> expired and was lifted.", action.UserID))
	return nil
}

func (e *Engine) executeNicknameDeadline(ctx context.Context, action model.TimedAction) error {
	var payload nicknamePayload
	if action.Payload != "" {
		if err := json.Unmarshal([]byte(action.Payload), &payload); err != nil {
			e.logger.Error("nickname deadline has malformed payload, dropping",
				zap.String("id", action.ID), zap.Error(err))
			return nil
		}
	}

	nickname, accountName, err := e.enf.MemberNames(ctx, action.GuildID, action.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			// Member already left; deadline is moot.
			return nil
		}
		return fmt.Errorf("check nickname for user %s: %w", action.UserID, err)
	}

	if nicknameCompliant(nickname, accountName) {
		e.logger.Info("nickname deadline passed, member compliant",
			zap.String("user_id", action.UserID))
		return nil
	}

	reason := renderReason(payload.ReasonTemplate, 0, payload.RuleID, 0, 0)
	if err := e.enf.RemoveTemporarily(ctx, action.GuildID, action.UserID, reason); err != nil {
		return fmt.Errorf("remove user %s at nickname deadline: %w", action.UserID, errors.Join(model.ErrPrimitive, err))
	}
	e.audit(ctx, fmt.Sprintf("User <@%s> removed at nickname compliance deadline: %s", action.UserID, reason))
	return nil
}

func (e *Engine) executeTempRemoveExpiry(ctx context.Context, action model.TimedAction) error {
	err := e.retryReversal(ctx, func() error {
		return e.enf.LiftRemoval(ctx, action.GuildID, action.UserID)
	})
	if err != nil {
		return fmt.Errorf("lift removal for user %s: %w", action.UserID, errors.Join(model.ErrPrimitive, err))
	}
	e.audit(ctx, fmt.Sprintf("Temporary removal of <@%s> expired; they may rejoin.", action.UserID))
	return nil
}

func (e *Engine) executeActivityCheck(ctx context.Context, action model.TimedAction) error {
	// One-shot punitive action: reported on failure but not retried here,
	// the member can simply be caught by the next sweep.
	reason := action.Payload
	if reason == "" {
		reason = "Removed for extended inactivity"
	}
	if err := e.enf.RemoveTemporarily(ctx, action.GuildID, action.UserID, reason); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("inactivity removal of user %s: %w", action.UserID, errors.Join(model.ErrPrimitive, err))
	}
	return nil
}

// retryReversal retries a time-bound reversal with short bounded backoff.
// The scheduler adds its own cross-sweep retries on top of this.
func (e *Engine) retryReversal(ctx context.Context, op func() error) error {
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(500*time.Millisecond),
		backoff.WithMaxInterval(5*time.Second),
		backoff.WithMaxElapsedTime(20*time.Second),
	), 3)
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}
