package monetization

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateEvent   = errors.New("event already recorded")
	ErrInvalidTipAmount = errors.New("tip amount must be greater than zero")
)

type Reason string

const (
	ReasonMalformedRequest Reason = "malformed_request"
	ReasonUnknownAd        Reason = "unknown_ad"
	ReasonUnknownVideo     Reason = "unknown_video"
	ReasonInternal         Reason = "internal_error"
)

// TrackError explains why an engagement event was not recorded.
type TrackError struct {
	Reason Reason
	Err    error
}

func (e *TrackError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *TrackError) Unwrap() error {
	return e.Err
}

func trackError(reason Reason, err error) *TrackError {
	return &TrackError{Reason: reason, Err: err}
}

// AdView is the append-only audit row written for every accepted event.
type AdView struct {
	ID              string          `json:"id"`
	AdID            string          `json:"ad_id"`
	VideoID         string          `json:"video_id"`
	ViewerID        string          `json:"viewer_id,omitempty"`
	ViewerIP        string          `json:"viewer_ip"`
	DurationWatched int             `json:"duration_watched"`
	WasClicked      bool            `json:"was_clicked"`
	RevenueEarned   decimal.Decimal `json:"revenue_earned"`
	EventKey        string          `json:"-"`
	ViewedAt        time.Time       `json:"viewed_at"`
}

type Tip struct {
	ID          string          `json:"id"`
	VideoID     string          `json:"video_id"`
	FromUserID  string          `json:"from_user_id,omitempty"`
	ToUserID    string          `json:"to_user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Message     string          `json:"message,omitempty"`
	IsAnonymous bool            `json:"is_anonymous"`
	CreatedAt   time.Time       `json:"created_at"`
}

type AdViewRepository interface {
	// Insert stores view unless its event key was seen before, in which case
	// it returns the stored row and ErrDuplicateEvent.
	Insert(ctx context.Context, view *AdView) (*AdView, error)
	// ForgetKeysBefore drops event keys of views older than cutoff so the
	// key index stays bounded. The views themselves are kept.
	ForgetKeysBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type TipRepository interface {
	Create(ctx context.Context, tip *Tip) error
	ListByVideo(ctx context.Context, videoID string, limit int) ([]*Tip, error)
}
