package ratelimit

import (
	"context"
	"time"

	"github.com/keepmind9/shelfbot/internal/logger"
	"github.com/sirupsen/logrus"
)

// RunSweeper sweeps backend every interval until ctx ends
func RunSweeper(ctx context.Context, backend Backend, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := backend.Sweep(ctx)
			if err != nil {
				logger.WithField("error", err).Warn("rate-limit-sweep-failed")
				continue
			}
			if removed > 0 {
				logger.WithFields(logrus.Fields{
					"removed": removed,
				}).Debug("rate-limit-buckets-swept")
			}
		}
	}
}
