package monetization

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/videostream/videostream_server/internal/earnings"
	"github.com/videostream/videostream_server/internal/ledger"
	"github.com/videostream/videostream_server/internal/video"
)

// maxTipScale is the number of decimal places money columns keep.
const maxTipScale = 4

type TipRequest struct {
	VideoID      string
	FromUserID   string
	FromUsername string
	Amount       decimal.Decimal
	Message      string
	IsAnonymous  bool
}

type TipService struct {
	videos     video.Repository
	tips       TipRepository
	aggregator *earnings.Aggregator
	now        func() time.Time
}

func NewTipService(videos video.Repository, tips TipRepository, aggregator *earnings.Aggregator) *TipService {
	return &TipService{
		videos:     videos,
		tips:       tips,
		aggregator: aggregator,
		now:        time.Now,
	}
}

// Send records the tip and credits the video's creator. Nothing is written
// when the amount is invalid or the video is unknown.
func (s *TipService) Send(ctx context.Context, req TipRequest) (*Tip, *earnings.CreatorEarnings, error) {
	if !req.Amount.IsPositive() {
		return nil, nil, ErrInvalidTipAmount
	}
	if req.Amount.Exponent() < -maxTipScale && !req.Amount.Equal(req.Amount.Truncate(maxTipScale)) {
		return nil, nil, fmt.Errorf("%w: at most %d decimal places", ErrInvalidTipAmount, maxTipScale)
	}

	v, err := s.videos.GetByID(ctx, req.VideoID)
	if err != nil {
		return nil, nil, err
	}

	tip := &Tip{
		ID:          uuid.New().String(),
		VideoID:     v.ID,
		FromUserID:  req.FromUserID,
		ToUserID:    v.CreatorID,
		Amount:      req.Amount,
		Message:     req.Message,
		IsAnonymous: req.IsAnonymous,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.tips.Create(ctx, tip); err != nil {
		return nil, nil, fmt.Errorf("failed to store tip: %w", err)
	}

	from := req.FromUsername
	if req.IsAnonymous || from == "" {
		from = "Anonymous"
	}

	snapshot, err := s.aggregator.Apply(ctx, earnings.Entry{
		CreatorID:   v.CreatorID,
		VideoID:     v.ID,
		Type:        ledger.RevenueTips,
		Amount:      req.Amount,
		Description: fmt.Sprintf("Tip from %s", from),
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("tipId", tip.ID).
			Str("creatorId", v.CreatorID).
			Msg("Tip stored but earnings were not credited")
		return tip, nil, err
	}

	log.Info().
		Str("tipId", tip.ID).
		Str("videoId", v.ID).
		Str("amount", req.Amount.String()).
		Msg("Tip sent")

	return tip, snapshot, nil
}

func (s *TipService) ListForVideo(ctx context.Context, videoID string, limit int) ([]*Tip, error) {
	return s.tips.ListByVideo(ctx, videoID, limit)
}
