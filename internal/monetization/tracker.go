package monetization

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/videostream/videostream_server/internal/ads"
	"github.com/videostream/videostream_server/internal/earnings"
	"github.com/videostream/videostream_server/internal/ledger"
	"github.com/videostream/videostream_server/internal/metrics"
	"github.com/videostream/videostream_server/internal/video"
)

type TrackRequest struct {
	AdID            string
	VideoID         string
	ViewerID        string
	ViewerIP        string
	DurationWatched int
	WasClicked      bool
	ClientKey       string
}

type TrackResult struct {
	View     *AdView
	Revenue  decimal.Decimal
	Type     ledger.RevenueType
	Credited bool
	Replayed bool
	Earnings *earnings.CreatorEarnings
}

// Tracker records ad engagement and credits the video's creator.
type Tracker struct {
	ads        ads.Repository
	videos     video.Repository
	views      AdViewRepository
	aggregator *earnings.Aggregator
	now        func() time.Time
}

func NewTracker(adsRepo ads.Repository, videos video.Repository, views AdViewRepository, aggregator *earnings.Aggregator) *Tracker {
	return &Tracker{
		ads:        adsRepo,
		videos:     videos,
		views:      views,
		aggregator: aggregator,
		now:        time.Now,
	}
}

// Track validates and prices one engagement report. All lookups happen before
// anything is written. A report carrying an event key that was already seen
// returns the stored outcome and credits nothing.
func (t *Tracker) Track(ctx context.Context, req TrackRequest) (*TrackResult, error) {
	if req.AdID == "" || req.VideoID == "" {
		return nil, t.reject(trackError(ReasonMalformedRequest, errors.New("ad and video are required")))
	}
	if req.DurationWatched < 0 {
		return nil, t.reject(trackError(ReasonMalformedRequest, errors.New("duration_watched must not be negative")))
	}

	ad, err := t.ads.GetAd(ctx, req.AdID)
	if err != nil {
		return nil, t.reject(lookupError(err, ads.ErrAdNotFound, ReasonUnknownAd))
	}
	campaign, err := t.ads.GetCampaign(ctx, ad.CampaignID)
	if err != nil {
		return nil, t.reject(lookupError(err, ads.ErrCampaignNotFound, ReasonUnknownAd))
	}
	v, err := t.videos.GetByID(ctx, req.VideoID)
	if err != nil {
		return nil, t.reject(lookupError(err, video.ErrNotFound, ReasonUnknownVideo))
	}

	ev := ledger.EngagementEvent{
		AdID:            ad.ID,
		VideoID:         v.ID,
		ViewerID:        req.ViewerID,
		ViewerIP:        req.ViewerIP,
		DurationWatched: req.DurationWatched,
		WasClicked:      req.WasClicked,
	}
	now := t.now().UTC()
	key := EventKey(ad.ID, req.ClientKey)
	ev.EventKey = key
	decision := ledger.Evaluate(ev, campaign, ad)

	view := &AdView{
		ID:              ulid.Make().String(),
		AdID:            ad.ID,
		VideoID:         v.ID,
		ViewerID:        req.ViewerID,
		ViewerIP:        req.ViewerIP,
		DurationWatched: req.DurationWatched,
		WasClicked:      req.WasClicked,
		RevenueEarned:   decision.Amount,
		EventKey:        key,
		ViewedAt:        now,
	}

	stored, err := t.views.Insert(ctx, view)
	if errors.Is(err, ErrDuplicateEvent) {
		log.Debug().
			Str("adId", ad.ID).
			Str("videoId", v.ID).
			Msg("Duplicate ad event, returning stored outcome")
		metrics.RecordAdEvent("replayed")
		return &TrackResult{View: stored, Revenue: stored.RevenueEarned, Type: decision.Type, Replayed: true}, nil
	}
	if err != nil {
		return nil, t.reject(trackError(ReasonInternal, fmt.Errorf("failed to record ad view: %w", err)))
	}

	result := &TrackResult{View: view, Revenue: decision.Amount, Type: decision.Type}
	if !decision.Payable(v.OwnedBy(req.ViewerID)) {
		metrics.RecordAdEvent("unpaid")
		return result, nil
	}

	snapshot, err := t.aggregator.Apply(ctx, earnings.Entry{
		CreatorID:   v.CreatorID,
		VideoID:     v.ID,
		Type:        decision.Type,
		Amount:      decision.Amount,
		Description: describe(decision.Type, ad),
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("adViewId", view.ID).
			Str("creatorId", v.CreatorID).
			Msg("Ad view recorded but earnings were not credited")
		return nil, t.reject(trackError(ReasonInternal, err))
	}

	metrics.RecordAdEvent("credited")
	result.Credited = true
	result.Earnings = snapshot
	return result, nil
}

func (t *Tracker) reject(err *TrackError) *TrackError {
	metrics.RecordAdEvent(string(err.Reason))
	return err
}

func lookupError(err, notFound error, reason Reason) *TrackError {
	if errors.Is(err, notFound) {
		return trackError(reason, err)
	}
	return trackError(ReasonInternal, err)
}

func describe(revenueType ledger.RevenueType, ad *ads.Ad) string {
	if revenueType == ledger.RevenueAdClicks {
		return fmt.Sprintf("Ad click: %s", ad.Title)
	}
	return fmt.Sprintf("Ad view: %s", ad.Title)
}
