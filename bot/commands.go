package bot

import (
	"github.com/bwmarrin/discordgo"

	"modguard/rules"
)

// GenerateCommands builds the slash-command set. Rule ids become choices on
// the warn command so moderators pick from the loaded catalog.
func GenerateCommands(catalog *rules.Catalog) []*discordgo.ApplicationCommand {
	ruleIDs := catalog.RuleIDs()
	if len(ruleIDs) > 25 {
		ruleIDs = ruleIDs[:25] // platform limit on option choices
	}
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(ruleIDs))
	for _, id := range ruleIDs {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  id,
			Value: id,
		})
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "warn",
			Description: "Report a rule violation by a member.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The member who violated a rule.",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "rule",
					Description: "The rule id that was violated.",
					Required:    true,
					Choices:     choices,
				},
			},
		},
		{
			Name:        "history",
			Description: "Show a member's violation history.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The member to look up.",
					Required:    true,
				},
			},
		},
		{
			Name:        "clear",
			Description: "Clear a member's violation history.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The member whose history to clear.",
					Required:    true,
				},
			},
		},
		{
			Name:        "unmute",
			Description: "Manually lift a member's mute.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The member to unmute.",
					Required:    true,
				},
			},
		},
		{
			Name:        "status",
			Description: "Show bot and host status.",
		},
	}
}
