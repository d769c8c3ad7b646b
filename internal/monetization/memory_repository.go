package monetization

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryAdViewRepository struct {
	views []*AdView
	byKey map[string]*AdView
	mu    sync.Mutex
}

func NewMemoryAdViewRepository() *MemoryAdViewRepository {
	return &MemoryAdViewRepository{
		byKey: make(map[string]*AdView),
	}
}

func (r *MemoryAdViewRepository) Insert(ctx context.Context, view *AdView) (*AdView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if view.EventKey != "" {
		if existing, seen := r.byKey[view.EventKey]; seen {
			stored := *existing
			return &stored, ErrDuplicateEvent
		}
	}

	stored := *view
	r.views = append(r.views, &stored)
	if stored.EventKey != "" {
		r.byKey[stored.EventKey] = &stored
	}
	return view, nil
}

func (r *MemoryAdViewRepository) ForgetKeysBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var forgotten int64
	for key, view := range r.byKey {
		if view.ViewedAt.Before(cutoff) {
			delete(r.byKey, key)
			view.EventKey = ""
			forgotten++
		}
	}
	return forgotten, nil
}

// Count returns the number of stored views, including those whose key was
// forgotten.
func (r *MemoryAdViewRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

type MemoryTipRepository struct {
	tips []*Tip
	mu   sync.RWMutex
}

func NewMemoryTipRepository() *MemoryTipRepository {
	return &MemoryTipRepository{}
}

func (r *MemoryTipRepository) Create(ctx context.Context, tip *Tip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *tip
	r.tips = append(r.tips, &stored)
	return nil
}

func (r *MemoryTipRepository) ListByVideo(ctx context.Context, videoID string, limit int) ([]*Tip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tips []*Tip
	for _, tip := range r.tips {
		if tip.VideoID == videoID {
			t := *tip
			tips = append(tips, &t)
		}
	}
	sort.SliceStable(tips, func(i, j int) bool {
		return tips[i].CreatedAt.After(tips[j].CreatedAt)
	})
	if limit > 0 && len(tips) > limit {
		tips = tips[:limit]
	}
	return tips, nil
}
