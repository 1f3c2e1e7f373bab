// Package background contains tasks that run independently of the HTTP
// request-response cycle.
package background

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/quizcraft-go/guard"
)

const pruneTimeout = 10 * time.Second

// StartAttemptPruner launches a goroutine that periodically drops signup
// attempts older than the rate-limit window from the attempt store. Memory
// stores need this so abandoned keys do not accumulate; stores with
// server-side expiry treat a prune as a no-op.
//
// It returns a WaitGroup that is done once the pruner has observed the
// stopChan close and exited.
func StartAttemptPruner(store guard.AttemptStore, interval, window time.Duration, stopChan <-chan struct{}, logger *zap.Logger) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		logger.Info("attempt pruner started",
			zap.Duration("interval", interval),
			zap.Duration("window", window))

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
				if err := store.Prune(ctx, time.Now().Add(-window)); err != nil {
					logger.Warn("attempt prune failed", zap.Error(err))
				}
				cancel()
			case <-stopChan:
				logger.Info("attempt pruner stopped")
				return
			}
		}
	}()

	return &wg
}
