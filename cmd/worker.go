package cmd

import (
	"context"
	"errors"
	"time"
)

// startBackgroundWorkers runs the loops that live next to the HTTP server until ctx ends.
func startBackgroundWorkers(ctx context.Context, deps *Dependencies) {
	go runSessionSweeper(ctx, deps)

	if !deps.Operator.IsAuthenticated() {
		deps.Logger.Warn("no operator session; dashboard refreshes only on admin request",
			"hint", "run `salon-portal login` with a staff account")
		return
	}
	go func() {
		deps.Logger.Info("dashboard worker started", "interval", deps.Config.Dashboard.RefreshInterval)
		if err := deps.Dashboard.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			deps.Logger.Error("dashboard worker stopped", "error", err)
		}
	}()
}

// runSessionSweeper closes payment sessions that nobody has touched for sessionMaxIdle.
func runSessionSweeper(ctx context.Context, deps *Dependencies) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := deps.Payments.Sweep(sessionMaxIdle); n > 0 {
				deps.Logger.Debug("payment sessions swept", "count", n, "open", deps.Payments.Len())
			}
		}
	}
}
