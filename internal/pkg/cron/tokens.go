package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/attendance"
)

// TokenJobs keeps the pending token set small between scans.
type TokenJobs struct {
	tokenRepo attendance.TokenRepository
	interval  time.Duration
	now       func() time.Time
}

func NewTokenJobs(tokenRepo attendance.TokenRepository, interval time.Duration) *TokenJobs {
	if interval <= 0 {
		interval = time.Minute
	}
	return &TokenJobs{tokenRepo: tokenRepo, interval: interval, now: time.Now}
}

func (j *TokenJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("purge_expired_tokens", j.interval, j.PurgeExpiredTokens)
}

// PurgeExpiredTokens drops tokens whose expiry has passed.
func (j *TokenJobs) PurgeExpiredTokens(ctx context.Context) error {
	purged, err := j.tokenRepo.PurgeExpired(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("purge expired tokens: %w", err)
	}
	if purged > 0 {
		slog.InfoContext(ctx, "Cron: purged expired tokens", "count", purged)
	}
	return nil
}
