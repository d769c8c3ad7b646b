package ads

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/videostream/videostream_server/internal/video"
)

var (
	ErrNotOwner        = errors.New("only the video owner can change ad settings")
	ErrInvalidPosition = errors.New("ad position must be zero or positive")
)

type PlacementView struct {
	Position int `json:"position"`
	Ad       *Ad `json:"ad"`
}

type Service struct {
	repo     Repository
	videos   video.Repository
	selector *Selector
	now      func() time.Time
}

func NewService(repo Repository, videos video.Repository, selector *Selector) *Service {
	return &Service{
		repo:     repo,
		videos:   videos,
		selector: selector,
		now:      time.Now,
	}
}

// UpdatePlacements replaces every placement on the video with one ad per
// requested position. Positions with no eligible ad are left empty.
func (s *Service) UpdatePlacements(ctx context.Context, ownerID, videoID string, positions []int) ([]*Placement, error) {
	v, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !v.OwnedBy(ownerID) {
		return nil, ErrNotOwner
	}

	unique, err := normalizePositions(positions)
	if err != nil {
		return nil, err
	}

	now := s.now()
	placements := make([]*Placement, 0, len(unique))
	for _, position := range unique {
		ad, err := s.selector.PickActive(ctx, now)
		if errors.Is(err, ErrNoActiveAd) {
			log.Debug().
				Str("videoId", videoID).
				Int("position", position).
				Msg("No active ad for position")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to pick ad: %w", err)
		}

		placements = append(placements, &Placement{
			VideoID:   videoID,
			AdID:      ad.ID,
			Position:  position,
			IsActive:  true,
			CreatedAt: now,
		})
	}

	if err := s.repo.ReplacePlacements(ctx, videoID, placements); err != nil {
		return nil, err
	}

	log.Info().
		Str("videoId", videoID).
		Int("requested", len(unique)).
		Int("placed", len(placements)).
		Msg("Ad placements updated")

	return placements, nil
}

// PlacementsForVideo lists active placements with their ads for a public video.
func (s *Service) PlacementsForVideo(ctx context.Context, videoID string) ([]*PlacementView, error) {
	if _, err := video.GetPublic(ctx, s.videos, videoID); err != nil {
		return nil, err
	}

	placements, err := s.repo.ListPlacements(ctx, videoID)
	if err != nil {
		return nil, err
	}

	views := make([]*PlacementView, 0, len(placements))
	for _, p := range placements {
		if !p.IsActive {
			continue
		}
		ad, err := s.repo.GetAd(ctx, p.AdID)
		if errors.Is(err, ErrAdNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !ad.IsActive {
			continue
		}
		views = append(views, &PlacementView{Position: p.Position, Ad: ad})
	}
	return views, nil
}

func normalizePositions(positions []int) ([]int, error) {
	seen := make(map[int]bool, len(positions))
	unique := make([]int, 0, len(positions))
	for _, p := range positions {
		if p < 0 {
			return nil, ErrInvalidPosition
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		unique = append(unique, p)
	}
	sort.Ints(unique)
	return unique, nil
}
