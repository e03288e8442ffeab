package handlers

import (
	"slices"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"modguard/bot"
	"modguard/utils"
)

type handlerFunc func(s *discordgo.Session, i *discordgo.InteractionCreate)

// Register wires the slash-command handlers into the bot.
func Register(b *bot.Bot) {
	b.CommandHandlers = map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"warn":    adminOnly(b, warnHandler(b)),
		"history": adminOnly(b, historyHandler(b)),
		"clear":   adminOnly(b, clearHandler(b)),
		"unmute":  adminOnly(b, unmuteHandler(b)),
		"status":  adminOnly(b, statusHandler(b)),
	}
}

// adminOnly rejects callers without one of the configured admin roles, then
// acknowledges the interaction before the handler runs. The token expires
// three seconds after the command arrives, well inside the enforcement
// pipeline's REST latency, so the outcome always goes out as a follow-up.
func adminOnly(b *bot.Bot, h handlerFunc) handlerFunc {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Member == nil || !hasAnyRole(i.Member.Roles, b.Config.AdminRoleIDs) {
			utils.SendEphemeralResponse(s, i, "You do not have permission to use this command.")
			return
		}
		if err := utils.DeferEphemeral(s, i); err != nil {
			b.Logger.Error("failed to defer interaction",
				zap.String("command", i.ApplicationCommandData().Name), zap.Error(err))
			return
		}
		h(s, i)
	}
}

func hasAnyRole(memberRoles, allowed []string) bool {
	for _, r := range memberRoles {
		if slices.Contains(allowed, r) {
			return true
		}
	}
	return false
}

// optionsByName indexes an interaction's options for lookup.
func optionsByName(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}
