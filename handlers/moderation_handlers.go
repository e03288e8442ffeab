package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"modguard/bot"
	"modguard/model"
	"modguard/utils"
)

func warnHandler(b *bot.Bot) handlerFunc {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		opts := optionsByName(i)
		userOpt, ok := opts["user"]
		ruleOpt, ruleOK := opts["rule"]
		if !ok || !ruleOK {
			utils.SendFollowUp(s, i.Interaction, "Both user and rule are required.")
			return
		}
		target := userOpt.UserValue(s)
		if target == nil || target.Bot {
			utils.SendFollowUp(s, i.Interaction, "Cannot warn a bot user.")
			return
		}
		if target.ID == i.Member.User.ID {
			utils.SendFollowUp(s, i.Interaction, "You cannot warn yourself.")
			return
		}

		count, err := b.Engine.HandleViolation(context.Background(), i.GuildID, target.ID, ruleOpt.StringValue(), i.Member.User.ID)
		if err != nil {
			b.Logger.Error("warn command failed",
				zap.String("user_id", target.ID), zap.Error(err))
			switch {
			case errors.Is(err, model.ErrNotFound):
				utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("Unknown rule %q.", ruleOpt.StringValue()))
			case errors.Is(err, model.ErrStorage):
				utils.SendFollowUp(s, i.Interaction, "Storage is unavailable; the violation was NOT recorded and no action was taken.")
			default:
				utils.SendFollowUp(s, i.Interaction, "The violation was recorded but enforcement failed: "+err.Error())
			}
			return
		}

		utils.SendFollowUp(s, i.Interaction,
			fmt.Sprintf("Warned %s (violation #%d).", target.Mention(), count))
	}
}

func historyHandler(b *bot.Bot) handlerFunc {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		opts := optionsByName(i)
		userOpt, ok := opts["user"]
		if !ok {
			utils.SendFollowUp(s, i.Interaction, "User is required.")
			return
		}
		target := userOpt.UserValue(s)

		entries, err := b.Engine.History(i.GuildID, target.ID)
		if err != nil {
			b.Logger.Error("history command failed", zap.Error(err))
			utils.SendFollowUp(s, i.Interaction, "Failed to load history.")
			return
		}
		if len(entries) == 0 {
			utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("%s has no recorded history.", target.Mention()))
			return
		}

		var sb strings.Builder
		count, err := b.Engine.ViolationCount(i.GuildID, target.ID)
		if err != nil {
			b.Logger.Warn("failed to read violation count",
				zap.String("user_id", target.ID), zap.Error(err))
			fmt.Fprintf(&sb, "History for %s:\n", target.Mention())
		} else {
			fmt.Fprintf(&sb, "History for %s (current count: %d):\n", target.Mention(), count)
		}
		for _, entry := range entries {
			ts := time.Unix(entry.Timestamp, 0).UTC().Format("2006-01-02 15:04")
			if entry.EntryType == model.EntryCleared {
				fmt.Fprintf(&sb, "- [%s] %s **cleared** by <@%s>\n", entry.CaseID, ts, entry.ActorID)
				continue
			}
			fmt.Fprintf(&sb, "- [%s] %s rule %s, stage %d, %s: %s\n",
				entry.CaseID, ts, entry.RuleID, entry.LadderStage, entry.ActionTaken, entry.Reason)
		}
		utils.SendFollowUp(s, i.Interaction, sb.String())
	}
}

func clearHandler(b *bot.Bot) handlerFunc {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		opts := optionsByName(i)
		userOpt, ok := opts["user"]
		if !ok {
			utils.SendFollowUp(s, i.Interaction, "User is required.")
			return
		}
		target := userOpt.UserValue(s)

		err := b.Engine.ClearHistory(context.Background(), i.GuildID, target.ID, i.Member.User.ID)
		if err != nil {
			b.Logger.Error("clear command failed", zap.Error(err))
			utils.SendFollowUp(s, i.Interaction, "Failed to clear history: "+err.Error())
			return
		}
		utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("Cleared history for %s.", target.Mention()))
	}
}

func unmuteHandler(b *bot.Bot) handlerFunc {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		opts := optionsByName(i)
		userOpt, ok := opts["user"]
		if !ok {
			utils.SendFollowUp(s, i.Interaction, "User is required.")
			return
		}
		target := userOpt.UserValue(s)

		err := b.Engine.ManualUnmute(context.Background(), i.GuildID, target.ID)
		if err != nil {
			b.Logger.Error("unmute command failed", zap.Error(err))
			utils.SendFollowUp(s, i.Interaction, "Failed to unmute: "+err.Error())
			return
		}
		utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("Unmuted %s.", target.Mention()))
	}
}
