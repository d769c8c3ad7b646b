package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/videostream/videostream_server/internal/ads"
	"github.com/videostream/videostream_server/internal/storage"
	"github.com/videostream/videostream_server/internal/video"
)

const (
	sampleCampaignName = "Tech Products Campaign"
	sampleCampaignDays = 30
)

type Config struct {
	SampleData bool          `mapstructure:"sample_data"`
	Videos     []VideoConfig `mapstructure:"videos"`
}

// VideoConfig registers media that already sits in storage.
type VideoConfig struct {
	ID          string `mapstructure:"id"`
	Title       string `mapstructure:"title"`
	CreatorID   string `mapstructure:"creator_id"`
	Path        string `mapstructure:"path"`
	ContentType string `mapstructure:"content_type"`
	Public      bool   `mapstructure:"public"`
}

var sampleAds = []ads.Ad{
	{Title: "New Smartphone - Pre-roll", Type: ads.AdTypeVideoPre, ClickURL: "https://example.com/smartphone", Duration: 15},
	{Title: "Laptop Sale - Mid-roll", Type: ads.AdTypeVideoMid, ClickURL: "https://example.com/laptop", Duration: 20},
	{Title: "Tech Newsletter - Banner", Type: ads.AdTypeBanner, ClickURL: "https://example.com/newsletter", Duration: 0},
}

// SampleData creates a demo campaign and its ads. Running it again only
// fills in what is missing.
func SampleData(ctx context.Context, repo ads.Repository, now time.Time) error {
	campaign, err := repo.GetCampaignByName(ctx, sampleCampaignName)
	switch {
	case err == nil:
		log.Debug().Str("campaignId", campaign.ID).Msg("Sample campaign already present")
	case errors.Is(err, ads.ErrCampaignNotFound):
		campaign = &ads.Campaign{
			ID:           uuid.New().String(),
			Name:         sampleCampaignName,
			Advertiser:   "TechCorp Inc.",
			Budget:       decimal.RequireFromString("10000.00"),
			CostPerView:  decimal.RequireFromString("0.01"),
			CostPerClick: decimal.RequireFromString("0.05"),
			IsActive:     true,
			StartDate:    now,
			EndDate:      now.AddDate(0, 0, sampleCampaignDays),
			CreatedAt:    now,
		}
		if err := repo.CreateCampaign(ctx, campaign); err != nil {
			return fmt.Errorf("failed to create sample campaign: %w", err)
		}
		log.Info().Str("campaignId", campaign.ID).Str("name", campaign.Name).Msg("Sample campaign created")
	default:
		return fmt.Errorf("failed to look up sample campaign: %w", err)
	}

	existing, err := repo.ListAdsByCampaign(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("failed to list sample ads: %w", err)
	}
	titles := make(map[string]bool, len(existing))
	for _, ad := range existing {
		titles[ad.Title] = true
	}

	for _, sample := range sampleAds {
		if titles[sample.Title] {
			continue
		}
		ad := sample
		ad.ID = uuid.New().String()
		ad.CampaignID = campaign.ID
		ad.IsActive = true
		ad.CreatedAt = now
		if err := repo.CreateAd(ctx, &ad); err != nil {
			return fmt.Errorf("failed to create sample ad %q: %w", ad.Title, err)
		}
		log.Info().Str("adId", ad.ID).Str("title", ad.Title).Msg("Sample ad created")
	}

	return nil
}

// Videos registers configured media with the catalog. Entries whose object
// is missing from storage are skipped with a warning; known ids are left
// untouched.
func Videos(ctx context.Context, repo video.Repository, backend storage.StorageBackend, configs []VideoConfig, now time.Time) (int, error) {
	created := 0
	for _, vc := range configs {
		if vc.ID == "" || vc.Path == "" || vc.CreatorID == "" {
			return created, fmt.Errorf("seed video %q: id, path and creator_id are required", vc.Title)
		}

		_, err := repo.GetByID(ctx, vc.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, video.ErrNotFound) {
			return created, fmt.Errorf("failed to look up video %s: %w", vc.ID, err)
		}

		present, err := backend.Exists(ctx, vc.Path)
		if err != nil {
			return created, fmt.Errorf("failed to check media for video %s: %w", vc.ID, err)
		}
		if !present {
			log.Warn().Str("videoId", vc.ID).Str("path", vc.Path).Msg("Seed video has no media in storage, skipping")
			continue
		}

		v := &video.Video{
			ID:          vc.ID,
			Title:       vc.Title,
			CreatorID:   vc.CreatorID,
			StoragePath: vc.Path,
			ContentType: vc.ContentType,
			IsPublic:    vc.Public,
			CreatedAt:   now,
		}
		if err := repo.Create(ctx, v); err != nil {
			return created, fmt.Errorf("failed to create video %s: %w", vc.ID, err)
		}
		created++
		log.Info().Str("videoId", v.ID).Str("title", v.Title).Msg("Seed video registered")
	}
	return created, nil
}
