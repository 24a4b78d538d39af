package daemon

import (
	"context"
	"log/slog"
	"time"

	"beacon/internal/logging"
)

const day = 24 * time.Hour

// runMaintenance prunes the store and sweeps the rate limiter on a fixed
// interval until the context ends. Each pass is bounded work and safe to run
// alongside request handling.
func (d *Daemon) runMaintenance(ctx context.Context) {
	interval := time.Duration(d.cfg.Retention.SweepIntervalSecs) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}
	logger := logging.WithComponent(d.logger, "maintenance")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.maintain(ctx, logger)
		}
	}
}

func (d *Daemon) maintain(ctx context.Context, logger *slog.Logger) {
	counts, err := d.store.PruneAll(
		ctx,
		time.Duration(d.cfg.Retention.DuplicateWindowDays)*day,
		time.Duration(d.cfg.Retention.ExpiryDays)*day,
		time.Duration(d.cfg.Retention.TokenIdleDays)*day,
	)
	if err != nil {
		logger.Warn("maintenance prune failed", logging.Error(err))
		return
	}

	swept := d.limiter.Sweep(10 * time.Minute)
	if counts.DuplicateRows+counts.ExpiredRows+counts.IdleTokens > 0 || swept > 0 {
		logger.Info("maintenance pass complete",
			logging.Int64("duplicate_rows", counts.DuplicateRows),
			logging.Int64("expired_rows", counts.ExpiredRows),
			logging.Int64("idle_tokens", counts.IdleTokens),
			logging.Int("limiter_clients_swept", swept))
	}
}
