package video

import (
	"context"
	"fmt"
	"sync"
)

type MemoryRepository struct {
	videos map[string]*Video
	mu     sync.RWMutex
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		videos: make(map[string]*Video),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, v *Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.videos[v.ID]; exists {
		return fmt.Errorf("video %s already exists", v.ID)
	}
	copied := *v
	r.videos[v.ID] = &copied
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, exists := r.videos[id]
	if !exists {
		return nil, ErrNotFound
	}
	result := *v
	return &result, nil
}

func (r *MemoryRepository) IncrementViews(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, exists := r.videos[id]
	if !exists {
		return ErrNotFound
	}
	v.Views++
	return nil
}
