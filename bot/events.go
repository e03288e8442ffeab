package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// registerEventHandlers wires gateway events into the engine.
func (b *Bot) registerEventHandlers() {
	b.Session.AddHandler(b.onMessageCreate)
	b.Session.AddHandler(b.onMemberJoin)
	b.Session.AddHandler(b.onMemberUpdate)
	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if h, ok := b.CommandHandlers[i.ApplicationCommandData().Name]; ok {
			h(s, i)
		}
	})
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	if err := b.Engine.HandleActivity(context.Background(), m.GuildID, m.Author.ID); err != nil {
		b.Logger.Warn("failed to record activity",
			zap.String("user_id", m.Author.ID), zap.Error(err))
	}
}

func (b *Bot) onMemberJoin(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.User == nil || m.User.Bot {
		return
	}
	err := b.Engine.HandleMemberJoin(context.Background(), m.GuildID, m.User.ID, m.Nick, m.User.Username)
	if err != nil {
		b.Logger.Error("failed to handle member join",
			zap.String("user_id", m.User.ID), zap.Error(err))
	}
}

func (b *Bot) onMemberUpdate(s *discordgo.Session, m *discordgo.GuildMemberUpdate) {
	if m.User == nil || m.User.Bot {
		return
	}
	err := b.Engine.HandleMemberUpdate(context.Background(), m.GuildID, m.User.ID, m.Nick, m.User.Username)
	if err != nil {
		b.Logger.Error("failed to handle member update",
			zap.String("user_id", m.User.ID), zap.Error(err))
	}
}
