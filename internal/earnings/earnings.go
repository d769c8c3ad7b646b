package earnings

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/videostream/videostream_server/internal/ledger"
)

var (
	ErrNonPositiveAmount   = errors.New("amount must be positive")
	ErrUnknownRevenueType  = errors.New("unknown revenue type")
	ErrConflict            = errors.New("concurrent earnings update")
	ErrRetriesExhausted    = errors.New("earnings update retries exhausted")
	ErrInsufficientPending = errors.New("payout exceeds pending earnings")
)

// Revenue is an append-only audit row for one credited amount.
type Revenue struct {
	ID          string             `json:"id"`
	CreatorID   string             `json:"creator_id"`
	VideoID     string             `json:"video_id,omitempty"`
	Type        ledger.RevenueType `json:"revenue_type"`
	Amount      decimal.Decimal    `json:"amount"`
	Description string             `json:"description"`
	CreatedAt   time.Time          `json:"created_at"`
}

// CreatorEarnings is the per-creator accumulator. It only changes through
// the Aggregator.
type CreatorEarnings struct {
	CreatorID     string          `json:"creator_id"`
	TotalEarned   decimal.Decimal `json:"total_earned"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
	LastPaymentAt *time.Time      `json:"last_payment_date,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int64           `json:"-"`
}

func (e *CreatorEarnings) AvailableForPayout() decimal.Decimal {
	return e.TotalEarned.Sub(e.TotalPaid)
}

func emptyEarnings(creatorID string) *CreatorEarnings {
	return &CreatorEarnings{
		CreatorID:     creatorID,
		TotalEarned:   decimal.Zero,
		TotalPaid:     decimal.Zero,
		PendingAmount: decimal.Zero,
	}
}

// Entry is a request to credit a creator.
type Entry struct {
	CreatorID   string
	VideoID     string
	Type        ledger.RevenueType
	Amount      decimal.Decimal
	Description string
}

type TypeTotal struct {
	Type  ledger.RevenueType `json:"revenue_type"`
	Total decimal.Decimal    `json:"total"`
}

type Repository interface {
	// Credit appends rev and adds its amount to the creator's total and
	// pending balance in one atomic step, creating the accumulator if needed.
	Credit(ctx context.Context, rev *Revenue) (*CreatorEarnings, error)
	// Payout moves amount from pending to paid.
	Payout(ctx context.Context, creatorID string, amount decimal.Decimal, at time.Time) (*CreatorEarnings, error)
	// Get returns the accumulator, or a zero one when the creator has none yet.
	Get(ctx context.Context, creatorID string) (*CreatorEarnings, error)
	RecentRevenue(ctx context.Context, creatorID string, limit int) ([]*Revenue, error)
	TotalsByType(ctx context.Context, creatorID string) ([]TypeTotal, error)
	// TotalBetween sums revenue created in [from, to).
	TotalBetween(ctx context.Context, creatorID string, from, to time.Time) (decimal.Decimal, error)
}
