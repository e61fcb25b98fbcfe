package app

import (
	"context"
	"time"

	"github.com/announa/blogpost/internal/adapters"
	authservice "github.com/announa/blogpost/internal/service/auth-service"
	"go.uber.org/zap"
)

const limiterIdleTimeout = 10 * time.Minute

// janitor periodically drops expired refresh tokens and stale in-memory state.
type janitor struct {
	interval time.Duration
	auth     *authservice.AuthService
	denylist *adapters.MemoryDenylist
	limiter  *adapters.RateLimiter
	logger   *zap.Logger
}

func (j *janitor) run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *janitor) sweep(ctx context.Context) {
	purged, err := j.auth.PurgeExpiredTokens(ctx)
	if err != nil {
		j.logger.Error("failed to purge expired refresh tokens", zap.Error(err))
	}
	fields := []zap.Field{zap.Int64("refresh_tokens", purged)}
	if j.denylist != nil {
		fields = append(fields, zap.Int("denylist_entries", j.denylist.CleanupStaleEntries()))
	}
	if j.limiter != nil {
		fields = append(fields, zap.Int("rate_limit_clients", j.limiter.CleanupStaleEntries(limiterIdleTimeout)))
	}
	j.logger.Debug("janitor sweep finished", fields...)
}
