package earnings

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/videostream/videostream_server/internal/ledger"
)

// MemoryRepository serialises writers per creator; different creators never
// contend with each other.
type MemoryRepository struct {
	accounts map[string]*memoryAccount
	revenues []*Revenue
	mu       sync.RWMutex
}

type memoryAccount struct {
	earnings CreatorEarnings
	mu       sync.Mutex
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts: make(map[string]*memoryAccount),
	}
}

func (r *MemoryRepository) account(creatorID string) *memoryAccount {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, exists := r.accounts[creatorID]
	if !exists {
		acc = &memoryAccount{earnings: *emptyEarnings(creatorID)}
		r.accounts[creatorID] = acc
	}
	return acc
}

func (r *MemoryRepository) Credit(ctx context.Context, rev *Revenue) (*CreatorEarnings, error) {
	acc := r.account(rev.CreatorID)
	acc.mu.Lock()
	defer acc.mu.Unlock()

	next := acc.earnings
	next.TotalEarned = next.TotalEarned.Add(rev.Amount)
	next.PendingAmount = next.PendingAmount.Add(rev.Amount)
	next.UpdatedAt = rev.CreatedAt
	next.Version++

	stored := *rev
	r.mu.Lock()
	r.revenues = append(r.revenues, &stored)
	r.mu.Unlock()

	acc.earnings = next
	return &next, nil
}

func (r *MemoryRepository) Payout(ctx context.Context, creatorID string, amount decimal.Decimal, at time.Time) (*CreatorEarnings, error) {
	acc := r.account(creatorID)
	acc.mu.Lock()
	defer acc.mu.Unlock()

	if acc.earnings.PendingAmount.LessThan(amount) {
		return nil, ErrInsufficientPending
	}

	next := acc.earnings
	next.TotalPaid = next.TotalPaid.Add(amount)
	next.PendingAmount = next.PendingAmount.Sub(amount)
	paidAt := at
	next.LastPaymentAt = &paidAt
	next.UpdatedAt = at
	next.Version++

	acc.earnings = next
	return &next, nil
}

func (r *MemoryRepository) Get(ctx context.Context, creatorID string) (*CreatorEarnings, error) {
	r.mu.RLock()
	acc, exists := r.accounts[creatorID]
	r.mu.RUnlock()
	if !exists {
		return emptyEarnings(creatorID), nil
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	snapshot := acc.earnings
	return &snapshot, nil
}

func (r *MemoryRepository) RecentRevenue(ctx context.Context, creatorID string, limit int) ([]*Revenue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Revenue, 0, limit)
	for i := len(r.revenues) - 1; i >= 0 && len(result) < limit; i-- {
		if r.revenues[i].CreatorID == creatorID {
			copied := *r.revenues[i]
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *MemoryRepository) TotalsByType(ctx context.Context, creatorID string) ([]TypeTotal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	totals := make(map[ledger.RevenueType]decimal.Decimal)
	for _, rev := range r.revenues {
		if rev.CreatorID != creatorID {
			continue
		}
		totals[rev.Type] = totals[rev.Type].Add(rev.Amount)
	}

	result := make([]TypeTotal, 0, len(totals))
	for t, total := range totals {
		result = append(result, TypeTotal{Type: t, Total: total})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Type < result[j].Type
	})
	return result, nil
}

func (r *MemoryRepository) TotalBetween(ctx context.Context, creatorID string, from, to time.Time) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := decimal.Zero
	for _, rev := range r.revenues {
		if rev.CreatorID != creatorID || rev.CreatedAt.Before(from) || !rev.CreatedAt.Before(to) {
			continue
		}
		total = total.Add(rev.Amount)
	}
	return total, nil
}

// RevenueCount is the number of audit rows for the creator.
func (r *MemoryRepository) RevenueCount(creatorID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, rev := range r.revenues {
		if rev.CreatorID == creatorID {
			count++
		}
	}
	return count
}
