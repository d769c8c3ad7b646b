// Package ledger decides how much a single monetizable event is worth.
// It performs no I/O and holds no state.
package ledger

import (
	"github.com/shopspring/decimal"
	"github.com/videostream/videostream_server/internal/ads"
)

type RevenueType string

const (
	RevenueAdViews       RevenueType = "ad_views"
	RevenueAdClicks      RevenueType = "ad_clicks"
	RevenueSubscriptions RevenueType = "subscriptions"
	RevenueTips          RevenueType = "tips"
	RevenueSponsorships  RevenueType = "sponsorships"
)

func (t RevenueType) Valid() bool {
	switch t {
	case RevenueAdViews, RevenueAdClicks, RevenueSubscriptions, RevenueTips, RevenueSponsorships:
		return true
	}
	return false
}

// EngagementEvent is one report of a viewer seeing or clicking an ad.
type EngagementEvent struct {
	AdID            string
	VideoID         string
	ViewerID        string
	ViewerIP        string
	DurationWatched int
	WasClicked      bool
	EventKey        string
}

type Decision struct {
	Amount decimal.Decimal
	Type   RevenueType
}

// Payable reports whether the decision should reach the creator's earnings.
// Self-views and zero-value events are audited but never credited.
func (d Decision) Payable(viewerIsOwner bool) bool {
	return !viewerIsOwner && d.Amount.IsPositive()
}

// Evaluate prices an engagement event. A click pays the campaign's cost per
// click regardless of watch time. Otherwise the viewer must have watched at
// least half of the ad, rounded up, to earn the cost per view.
func Evaluate(ev EngagementEvent, campaign *ads.Campaign, ad *ads.Ad) Decision {
	if ev.WasClicked {
		return Decision{Amount: campaign.CostPerClick, Type: RevenueAdClicks}
	}
	if watchedEnough(ev.DurationWatched, ad.Duration) {
		return Decision{Amount: campaign.CostPerView, Type: RevenueAdViews}
	}
	return Decision{Amount: decimal.Zero, Type: RevenueAdViews}
}

// watchedEnough is watched >= duration/2 kept in integers.
func watchedEnough(watched, duration int) bool {
	return 2*watched >= duration
}
