package ads

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type MemoryRepository struct {
	campaigns  map[string]*Campaign
	ads        map[string]*Ad
	placements map[string][]*Placement
	mu         sync.RWMutex
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		campaigns:  make(map[string]*Campaign),
		ads:        make(map[string]*Ad),
		placements: make(map[string][]*Placement),
	}
}

func (r *MemoryRepository) CreateCampaign(ctx context.Context, c *Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.campaigns[c.ID]; exists {
		return fmt.Errorf("campaign %s already exists", c.ID)
	}
	copied := *c
	r.campaigns[c.ID] = &copied
	return nil
}

func (r *MemoryRepository) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.campaigns[id]
	if !exists {
		return nil, ErrCampaignNotFound
	}
	result := *c
	return &result, nil
}

func (r *MemoryRepository) GetCampaignByName(ctx context.Context, name string) (*Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.campaigns {
		if c.Name == name {
			result := *c
			return &result, nil
		}
	}
	return nil, ErrCampaignNotFound
}

func (r *MemoryRepository) CreateAd(ctx context.Context, ad *Ad) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.campaigns[ad.CampaignID]; !exists {
		return ErrCampaignNotFound
	}
	if _, exists := r.ads[ad.ID]; exists {
		return fmt.Errorf("ad %s already exists", ad.ID)
	}
	copied := *ad
	r.ads[ad.ID] = &copied
	return nil
}

func (r *MemoryRepository) GetAd(ctx context.Context, id string) (*Ad, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ad, exists := r.ads[id]
	if !exists {
		return nil, ErrAdNotFound
	}
	result := *ad
	return &result, nil
}

func (r *MemoryRepository) ListAdsByCampaign(ctx context.Context, campaignID string) ([]*Ad, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Ad
	for _, ad := range r.ads {
		if ad.CampaignID == campaignID {
			copied := *ad
			result = append(result, &copied)
		}
	}
	sortAds(result)
	return result, nil
}

func (r *MemoryRepository) ListActiveAds(ctx context.Context, now time.Time) ([]*Ad, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Ad
	for _, ad := range r.ads {
		if !ad.IsActive {
			continue
		}
		c, exists := r.campaigns[ad.CampaignID]
		if !exists || !c.ActiveAt(now) {
			continue
		}
		copied := *ad
		result = append(result, &copied)
	}
	sortAds(result)
	return result, nil
}

func (r *MemoryRepository) ReplacePlacements(ctx context.Context, videoID string, placements []*Placement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := make([]*Placement, 0, len(placements))
	for _, p := range placements {
		copied := *p
		stored = append(stored, &copied)
	}
	r.placements[videoID] = stored
	return nil
}

func (r *MemoryRepository) ListPlacements(ctx context.Context, videoID string) ([]*Placement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Placement, 0, len(r.placements[videoID]))
	for _, p := range r.placements[videoID] {
		copied := *p
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Position < result[j].Position
	})
	return result, nil
}

// sortAds gives map-backed listings the same stable order as the SQL store.
func sortAds(ads []*Ad) {
	sort.Slice(ads, func(i, j int) bool {
		if ads[i].CreatedAt.Equal(ads[j].CreatedAt) {
			return ads[i].ID < ads[j].ID
		}
		return ads[i].CreatedAt.Before(ads[j].CreatedAt)
	})
}
