package earnings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/videostream/videostream_server/internal/metrics"
)

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = 10 * time.Millisecond
	recentRevenueLimit  = 10
	reportWindow        = 30 * 24 * time.Hour
	reportMonths        = 12
)

type Config struct {
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// Listener is told about every committed credit or payout.
type Listener func(snapshot CreatorEarnings)

type Aggregator struct {
	repo       Repository
	maxRetries int
	backoff    time.Duration
	listeners  []Listener
	now        func() time.Time
}

func NewAggregator(repo Repository, config Config) *Aggregator {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	} else if config.MaxRetries == 0 {
		config.MaxRetries = defaultMaxRetries
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = defaultRetryBackoff
	}
	return &Aggregator{
		repo:       repo,
		maxRetries: config.MaxRetries,
		backoff:    config.RetryBackoff,
		now:        time.Now,
	}
}

func (a *Aggregator) Subscribe(listener Listener) {
	a.listeners = append(a.listeners, listener)
}

// Apply credits entry to the creator. The revenue row and the accumulator
// move together or not at all; conflicting writers are retried a bounded
// number of times.
func (a *Aggregator) Apply(ctx context.Context, entry Entry) (*CreatorEarnings, error) {
	if entry.CreatorID == "" {
		return nil, fmt.Errorf("creator id is required")
	}
	if !entry.Amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}
	if !entry.Type.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRevenueType, entry.Type)
	}

	rev := &Revenue{
		ID:          ulid.Make().String(),
		CreatorID:   entry.CreatorID,
		VideoID:     entry.VideoID,
		Type:        entry.Type,
		Amount:      entry.Amount,
		Description: entry.Description,
		CreatedAt:   a.now().UTC(),
	}

	snapshot, err := a.withRetry(ctx, entry.CreatorID, func() (*CreatorEarnings, error) {
		return a.repo.Credit(ctx, rev)
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("creatorId", entry.CreatorID).
		Str("revenueType", string(entry.Type)).
		Str("amount", entry.Amount.String()).
		Str("totalEarned", snapshot.TotalEarned.String()).
		Msg("Earnings credited")

	metrics.RecordRevenue(string(entry.Type), entry.Amount.InexactFloat64())
	a.notify(*snapshot)
	return snapshot, nil
}

// RecordPayout marks amount as paid out. No money moves here.
func (a *Aggregator) RecordPayout(ctx context.Context, creatorID string, amount decimal.Decimal) (*CreatorEarnings, error) {
	if !amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}

	at := a.now().UTC()
	snapshot, err := a.withRetry(ctx, creatorID, func() (*CreatorEarnings, error) {
		return a.repo.Payout(ctx, creatorID, amount, at)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("creatorId", creatorID).
		Str("amount", amount.String()).
		Str("pending", snapshot.PendingAmount.String()).
		Msg("Payout recorded")

	a.notify(*snapshot)
	return snapshot, nil
}

func (a *Aggregator) Get(ctx context.Context, creatorID string) (*CreatorEarnings, error) {
	return a.repo.Get(ctx, creatorID)
}

type MonthlyTotal struct {
	From  time.Time       `json:"from"`
	To    time.Time       `json:"to"`
	Total decimal.Decimal `json:"total"`
}

type Summary struct {
	Earnings           *CreatorEarnings `json:"earnings"`
	AvailableForPayout decimal.Decimal  `json:"available_for_payout"`
	RecentRevenue      []*Revenue       `json:"recent_revenue"`
	TotalsByType       []TypeTotal      `json:"totals_by_type"`
	Last30Days         decimal.Decimal  `json:"last_30_days"`
	Monthly            []MonthlyTotal   `json:"monthly"`
}

// Summary gathers the creator dashboard: balances, latest revenue rows,
// totals per revenue type and twelve trailing 30-day windows, newest first.
func (a *Aggregator) Summary(ctx context.Context, creatorID string) (*Summary, error) {
	snapshot, err := a.repo.Get(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load earnings: %w", err)
	}

	recent, err := a.repo.RecentRevenue(ctx, creatorID, recentRevenueLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent revenue: %w", err)
	}

	byType, err := a.repo.TotalsByType(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load revenue totals: %w", err)
	}

	now := a.now().UTC()
	monthly := make([]MonthlyTotal, 0, reportMonths)
	for i := 0; i < reportMonths; i++ {
		to := now.Add(-time.Duration(i) * reportWindow)
		from := to.Add(-reportWindow)
		total, err := a.repo.TotalBetween(ctx, creatorID, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to load monthly revenue: %w", err)
		}
		monthly = append(monthly, MonthlyTotal{From: from, To: to, Total: total})
	}

	return &Summary{
		Earnings:           snapshot,
		AvailableForPayout: snapshot.AvailableForPayout(),
		RecentRevenue:      recent,
		TotalsByType:       byType,
		Last30Days:         monthly[0].Total,
		Monthly:            monthly,
	}, nil
}

func (a *Aggregator) withRetry(ctx context.Context, creatorID string, op func() (*CreatorEarnings, error)) (*CreatorEarnings, error) {
	for attempt := 0; ; attempt++ {
		snapshot, err := op()
		if err == nil {
			return snapshot, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}

		metrics.RecordConflict()
		if attempt >= a.maxRetries {
			log.Error().
				Str("creatorId", creatorID).
				Int("attempts", attempt+1).
				Msg("Giving up on earnings update after repeated conflicts")
			return nil, fmt.Errorf("%w: creator %s after %d attempts", ErrRetriesExhausted, creatorID, attempt+1)
		}

		log.Warn().
			Str("creatorId", creatorID).
			Int("attempt", attempt+1).
			Msg("Earnings update conflicted, retrying")

		timer := time.NewTimer(a.backoff * time.Duration(attempt+1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (a *Aggregator) notify(snapshot CreatorEarnings) {
	for _, listener := range a.listeners {
		listener(snapshot)
	}
}
