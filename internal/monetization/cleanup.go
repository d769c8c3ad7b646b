package monetization

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultKeyRetentionDays = 7
	defaultCleanupHour      = 2
)

type CleanupConfig struct {
	RetentionDays int `mapstructure:"idempotency_retention_days"`
	RunHour       int `mapstructure:"cleanup_hour"`
}

// KeyCleanupScheduler periodically forgets idempotency keys older than the
// retention window. Replays older than that are treated as new events.
type KeyCleanupScheduler struct {
	views         AdViewRepository
	retentionDays int
	runHour       int
	now           func() time.Time
}

func NewKeyCleanupScheduler(views AdViewRepository, config CleanupConfig) *KeyCleanupScheduler {
	if config.RetentionDays <= 0 {
		config.RetentionDays = defaultKeyRetentionDays
	}
	if config.RunHour < 0 || config.RunHour > 23 {
		config.RunHour = defaultCleanupHour
	}

	return &KeyCleanupScheduler{
		views:         views,
		retentionDays: config.RetentionDays,
		runHour:       config.RunHour,
		now:           time.Now,
	}
}

// Run blocks until ctx is cancelled, cleaning up once a day at the
// configured hour.
func (cs *KeyCleanupScheduler) Run(ctx context.Context) error {
	nextRun := nextDailyRun(cs.now(), cs.runHour)
	log.Info().
		Str("nextRun", nextRun.Format("2006-01-02 15:04:05")).
		Int("retentionDays", cs.retentionDays).
		Msg("Event key cleanup scheduler started")

	timer := time.NewTimer(time.Until(nextRun))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Stopping event key cleanup scheduler")
			return nil
		case <-timer.C:
			cs.RunNow(ctx)
			timer.Reset(24 * time.Hour)
		}
	}
}

// RunNow executes cleanup immediately.
func (cs *KeyCleanupScheduler) RunNow(ctx context.Context) int64 {
	cutoff := cs.now().Add(-time.Duration(cs.retentionDays) * 24 * time.Hour)
	log.Info().
		Int("retentionDays", cs.retentionDays).
		Msg("Starting event key cleanup")

	forgotten, err := cs.views.ForgetKeysBefore(ctx, cutoff)
	if err != nil {
		log.Error().
			Err(err).
			Msg("Failed to cleanup event keys")
		return 0
	}

	log.Info().
		Int64("forgottenCount", forgotten).
		Msg("Event key cleanup completed successfully")
	return forgotten
}

func nextDailyRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !now.Before(next) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
