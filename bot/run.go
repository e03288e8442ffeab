package bot

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run opens the gateway connection, starts the background loops and blocks
// until SIGINT/SIGTERM.
func (b *Bot) Run() error {
	b.registerEventHandlers()

	if err := b.Session.Open(); err != nil {
		return err
	}

	b.RegisterCommands()
	b.Scheduler.Start(b.Engine)

	b.wg.Add(1)
	go b.runActivitySweeps()

	b.Logger.Info("bot is now running, press CTRL-C to exit")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
	return nil
}

// runActivitySweeps fires the inactivity sweep at the configured hours of
// the day, sleeping until the next slot.
func (b *Bot) runActivitySweeps() {
	defer b.wg.Done()
	runHours := b.Config.Engine.ActivitySweepHrs
	if len(runHours) == 0 {
		return
	}

	for {
		now := time.Now()
		var next time.Time
		for _, h := range runHours {
			t := time.Date(now.Year(), now.Month(), now.Day(), h, 0, 0, 0, now.Location())
			if now.Before(t) {
				next = t
				break
			}
		}
		if next.IsZero() {
			tomorrow := now.Add(24 * time.Hour)
			next = time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), runHours[0], 0, 0, 0, now.Location())
		}

		b.Logger.Info("next activity sweep scheduled", zap.Time("at", next))
		select {
		case <-time.After(next.Sub(now)):
			if err := b.Engine.RunActivitySweep(context.Background()); err != nil {
				b.Logger.Error("activity sweep failed", zap.Error(err))
			}
		case <-b.done:
			return
		}
	}
}
