package bot

import (
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"modguard/engine"
	"modguard/model"
	"modguard/rules"
	"modguard/scheduler"
)

// Bot ties the discordgo session to the enforcement engine and scheduler.
type Bot struct {
	Session            *discordgo.Session
	Engine             *engine.Engine
	Scheduler          *scheduler.Scheduler
	DB                 *sqlx.DB
	Config             *model.Config
	Logger             *zap.Logger
	RegisteredCommands []*discordgo.ApplicationCommand
	CommandHandlers    map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates the bot and its session. The engine is constructed here so it
// can hold the session-backed enforcer.
func New(cfg *model.Config, db *sqlx.DB, catalog *rules.Catalog, sched *scheduler.Scheduler, logger *zap.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages
	dg.StateEnabled = false

	enf := NewEnforcer(dg, cfg, logger)
	eng := engine.New(db, catalog, sched, enf, cfg, logger)

	b := &Bot{
		Session:   dg,
		Engine:    eng,
		Scheduler: sched,
		DB:        db,
		Config:    cfg,
		Logger:    logger.Named("bot"),
		done:      make(chan struct{}),
	}
	return b, nil
}

// Close shuts everything down gracefully.
func (b *Bot) Close() {
	b.Logger.Info("gracefully shutting down")
	close(b.done)
	b.wg.Wait()
	b.Scheduler.Stop()
	if err := b.Session.Close(); err != nil {
		b.Logger.Warn("error closing session", zap.Error(err))
	}
}

// RegisterCommands overwrites the application's global slash commands.
func (b *Bot) RegisterCommands() {
	cmds := GenerateCommands(b.Engine.Catalog())
	registered, err := b.Session.ApplicationCommandBulkOverwrite(b.Config.AppID, "", cmds)
	if err != nil {
		b.Logger.Error("cannot register commands", zap.Error(err))
		return
	}
	b.RegisteredCommands = registered
	b.Logger.Info("registered commands", zap.Int("count", len(registered)))
}
