package bot

import (
	"context"
	"time"

	"github.com/keepmind9/shelfbot/internal/logger"
	"github.com/sirupsen/logrus"
)

// RunPresence cycles the "playing" status through games until ctx ends.
// It returns immediately when games is empty.
func (d *DiscordConnection) RunPresence(ctx context.Context, games []string, interval time.Duration) {
	if len(games) == 0 || interval <= 0 {
		return
	}
	if err := d.WaitForReady(ctx); err != nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	next := 0
	for {
		d.setPresence(games[next])
		next = (next + 1) % len(games)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *DiscordConnection) setPresence(game string) {
	session, err := d.session()
	if err != nil {
		return
	}
	if err := session.UpdateGameStatus(0, game); err != nil {
		logger.WithFields(logrus.Fields{
			"game":  game,
			"error": err,
		}).Debug("failed-to-update-presence")
	}
}
