package ads

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrAdNotFound       = errors.New("ad not found")
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrNoActiveAd       = errors.New("no active ad available")
)

type AdType string

const (
	AdTypeBanner    AdType = "banner"
	AdTypeVideoPre  AdType = "video_pre"
	AdTypeVideoMid  AdType = "video_mid"
	AdTypeVideoPost AdType = "video_post"
	AdTypeOverlay   AdType = "overlay"
)

// DefaultDuration is used for ads created without an explicit length.
const DefaultDuration = 30

func (t AdType) Valid() bool {
	switch t {
	case AdTypeBanner, AdTypeVideoPre, AdTypeVideoMid, AdTypeVideoPost, AdTypeOverlay:
		return true
	}
	return false
}

type Campaign struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Advertiser   string          `json:"advertiser"`
	Budget       decimal.Decimal `json:"budget"`
	CostPerView  decimal.Decimal `json:"cost_per_view"`
	CostPerClick decimal.Decimal `json:"cost_per_click"`
	IsActive     bool            `json:"is_active"`
	StartDate    time.Time       `json:"start_date"`
	EndDate      time.Time       `json:"end_date"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ActiveAt reports whether the campaign is switched on and t falls inside its
// window, both ends inclusive.
func (c *Campaign) ActiveAt(t time.Time) bool {
	return c.IsActive && !t.Before(c.StartDate) && !t.After(c.EndDate)
}

type Ad struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	Title      string    `json:"title"`
	Type       AdType    `json:"ad_type"`
	ImageURL   string    `json:"image_url,omitempty"`
	VideoURL   string    `json:"video_url,omitempty"`
	ClickURL   string    `json:"click_url"`
	Duration   int       `json:"duration"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

type Placement struct {
	VideoID   string    `json:"video_id"`
	AdID      string    `json:"ad_id"`
	Position  int       `json:"position"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository interface {
	CreateCampaign(ctx context.Context, c *Campaign) error
	GetCampaign(ctx context.Context, id string) (*Campaign, error)
	GetCampaignByName(ctx context.Context, name string) (*Campaign, error)
	CreateAd(ctx context.Context, ad *Ad) error
	GetAd(ctx context.Context, id string) (*Ad, error)
	ListAdsByCampaign(ctx context.Context, campaignID string) ([]*Ad, error)
	// ListActiveAds returns active ads whose campaign is active at now.
	ListActiveAds(ctx context.Context, now time.Time) ([]*Ad, error)
	ReplacePlacements(ctx context.Context, videoID string, placements []*Placement) error
	ListPlacements(ctx context.Context, videoID string) ([]*Placement, error)
}
