package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"modguard/bot"
	"modguard/config"
	"modguard/handlers"
	"modguard/scheduler"
	"modguard/store"
	"modguard/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.SetupLogging(os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := os.MkdirAll("./data", os.ModePerm); err != nil {
		logger.Fatal("failed to create data directory", zap.Error(err))
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("error initializing database", zap.Error(err))
	}
	defer db.Close()

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		logger.Fatal("error loading rule catalog", zap.Error(err))
	}
	logger.Info("rule catalog loaded",
		zap.Int("rules", catalog.Len()),
		zap.Int("ladder_rungs", catalog.Ladder().MaxThreshold()))

	sched := scheduler.New(db, cfg.Engine.SweepInterval, cfg.Engine.MaxAttempts, logger)

	b, err := bot.New(cfg, db, catalog, sched, logger)
	if err != nil {
		logger.Fatal("error creating bot", zap.Error(err))
	}

	handlers.Register(b)

	if err := b.Run(); err != nil {
		logger.Fatal("error running bot", zap.Error(err))
	}
	b.Close()
}
