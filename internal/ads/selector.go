package ads

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Selector picks uniformly among the ads currently eligible to run.
type Selector struct {
	repo Repository
	rnd  *rand.Rand
	mu   sync.Mutex
}

func NewSelector(repo Repository, rnd *rand.Rand) *Selector {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Selector{repo: repo, rnd: rnd}
}

func (s *Selector) PickActive(ctx context.Context, now time.Time) (*Ad, error) {
	candidates, err := s.repo.ListActiveAds(ctx, now)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoActiveAd
	}

	s.mu.Lock()
	i := s.rnd.IntN(len(candidates))
	s.mu.Unlock()

	return candidates[i], nil
}
