package video

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedRepository keeps recently streamed descriptors in a bounded LRU.
// The cached view count is not refreshed on IncrementViews; it is only
// exact after the entry expires.
type CachedRepository struct {
	next  Repository
	cache *expirable.LRU[string, Video]
}

func NewCachedRepository(next Repository, size int, ttl time.Duration) *CachedRepository {
	if size <= 0 {
		size = 1024
	}
	return &CachedRepository{
		next:  next,
		cache: expirable.NewLRU[string, Video](size, nil, ttl),
	}
}

func (r *CachedRepository) Create(ctx context.Context, v *Video) error {
	if err := r.next.Create(ctx, v); err != nil {
		return err
	}
	r.cache.Remove(v.ID)
	return nil
}

func (r *CachedRepository) GetByID(ctx context.Context, id string) (*Video, error) {
	if v, ok := r.cache.Get(id); ok {
		return &v, nil
	}

	v, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Add(id, *v)
	return v, nil
}

func (r *CachedRepository) IncrementViews(ctx context.Context, id string) error {
	return r.next.IncrementViews(ctx, id)
}

func (r *CachedRepository) Len() int {
	return r.cache.Len()
}
