package monetization

import (
	"errors"
	"math"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
	"github.com/videostream/videostream_server/internal/earnings"
	"github.com/videostream/videostream_server/internal/metrics"
	"github.com/videostream/videostream_server/internal/user"
	"github.com/videostream/videostream_server/internal/video"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	tipListLimit         = 50
)

type Endpoints struct {
	tracker *Tracker
	tips    *TipService
}

func NewEndpoints(tracker *Tracker, tips *TipService) *Endpoints {
	return &Endpoints{
		tracker: tracker,
		tips:    tips,
	}
}

type TrackAdRequest struct {
	VideoID         string  `json:"video_id"`
	DurationWatched float64 `json:"duration_watched"`
	WasClicked      bool    `json:"was_clicked"`
	EventID         string  `json:"event_id"`
}

type TrackAdResponse struct {
	Success  bool        `json:"success"`
	Revenue  json.Number `json:"revenue,omitempty"`
	Replayed bool        `json:"replayed,omitempty"`
	Error    string      `json:"error,omitempty"`
	Reason   Reason      `json:"reason,omitempty"`
}

type TipResponse struct {
	Success  bool                      `json:"success"`
	Tip      *Tip                      `json:"tip,omitempty"`
	Earnings *earnings.CreatorEarnings `json:"earnings,omitempty"`
	Error    string                    `json:"error,omitempty"`
}

type TipListResponse struct {
	VideoID string `json:"video_id"`
	Tips    []*Tip `json:"tips"`
}

// TrackAd always answers 200; failures are reported in the body so players
// never retry on transport status alone.
func (e *Endpoints) TrackAd(ctx *fasthttp.RequestCtx) {
	adID, _ := ctx.UserValue("adID").(string)

	var body TrackAdRequest
	if err := json.Unmarshal(ctx.PostBody(), &body); err != nil {
		log.Debug().Err(err).Str("adId", adID).Msg("Invalid track-ad body")
		writeTrackError(ctx, trackError(ReasonMalformedRequest, errors.New("invalid request body")))
		metrics.RecordAdEvent(string(ReasonMalformedRequest))
		return
	}
	if body.DurationWatched < 0 || math.IsNaN(body.DurationWatched) || body.DurationWatched > math.MaxInt32 {
		writeTrackError(ctx, trackError(ReasonMalformedRequest, errors.New("invalid duration_watched")))
		metrics.RecordAdEvent(string(ReasonMalformedRequest))
		return
	}

	req := TrackRequest{
		AdID:            adID,
		VideoID:         body.VideoID,
		ViewerIP:        ctx.RemoteIP().String(),
		DurationWatched: int(math.Floor(body.DurationWatched)),
		WasClicked:      body.WasClicked,
		ClientKey:       clientKey(ctx, body.EventID),
	}
	if viewer, ok := user.FromRequest(ctx); ok {
		req.ViewerID = viewer.ID
	}

	result, err := e.tracker.Track(ctx, req)
	if err != nil {
		var trackErr *TrackError
		if !errors.As(err, &trackErr) {
			trackErr = trackError(ReasonInternal, err)
		}
		if trackErr.Reason == ReasonInternal {
			log.Error().Err(err).Str("adId", adID).Msg("Failed to track ad event")
		}
		writeTrackError(ctx, trackErr)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, TrackAdResponse{
		Success:  true,
		Revenue:  json.Number(result.Revenue.String()),
		Replayed: result.Replayed,
	})
}

func (e *Endpoints) SendTip(ctx *fasthttp.RequestCtx) {
	sender, ok := user.FromRequest(ctx)
	if !ok {
		ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
		return
	}

	videoID, ok := ctx.UserValue("videoID").(string)
	if !ok || videoID == "" {
		ctx.Error("Missing video ID", fasthttp.StatusBadRequest)
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(string(ctx.FormValue("amount"))))
	if err != nil {
		metrics.RecordTip("invalid")
		writeJSON(ctx, fasthttp.StatusBadRequest, TipResponse{Error: "Invalid tip amount"})
		return
	}

	tip, snapshot, err := e.tips.Send(ctx, TipRequest{
		VideoID:      videoID,
		FromUserID:   sender.ID,
		FromUsername: sender.Username,
		Amount:       amount,
		Message:      string(ctx.FormValue("message")),
		IsAnonymous:  isChecked(ctx.FormValue("is_anonymous")),
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidTipAmount):
		metrics.RecordTip("invalid")
		writeJSON(ctx, fasthttp.StatusBadRequest, TipResponse{Error: err.Error()})
		return
	case errors.Is(err, video.ErrNotFound):
		metrics.RecordTip("invalid")
		writeJSON(ctx, fasthttp.StatusNotFound, TipResponse{Error: "Video not found"})
		return
	case tip != nil:
		// Stored but not credited. The tip itself went through.
		metrics.RecordTip("uncredited")
		writeJSON(ctx, fasthttp.StatusOK, TipResponse{Success: true, Tip: tip})
		return
	default:
		metrics.RecordTip("failed")
		log.Error().Err(err).Str("videoId", videoID).Msg("Failed to send tip")
		writeJSON(ctx, fasthttp.StatusInternalServerError, TipResponse{Error: "Internal Server Error"})
		return
	}

	metrics.RecordTip("sent")
	writeJSON(ctx, fasthttp.StatusOK, TipResponse{Success: true, Tip: tip, Earnings: snapshot})
}

func (e *Endpoints) ListTips(ctx *fasthttp.RequestCtx) {
	videoID, ok := ctx.UserValue("videoID").(string)
	if !ok || videoID == "" {
		ctx.Error("Missing video ID", fasthttp.StatusBadRequest)
		return
	}

	tips, err := e.tips.ListForVideo(ctx, videoID, tipListLimit)
	if err != nil {
		log.Error().Err(err).Str("videoId", videoID).Msg("Failed to list tips")
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}
	listed := make([]*Tip, 0, len(tips))
	for _, tip := range tips {
		if tip.IsAnonymous {
			hidden := *tip
			hidden.FromUserID = ""
			tip = &hidden
		}
		listed = append(listed, tip)
	}

	writeJSON(ctx, fasthttp.StatusOK, TipListResponse{VideoID: videoID, Tips: listed})
}

// clientKey prefers the Idempotency-Key header over the body's event_id.
func clientKey(ctx *fasthttp.RequestCtx, eventID string) string {
	if key := strings.TrimSpace(string(ctx.Request.Header.Peek(headerIdempotencyKey))); key != "" {
		return key
	}
	return eventID
}

func isChecked(value []byte) bool {
	switch strings.ToLower(string(value)) {
	case "on", "true", "1":
		return true
	}
	return false
}

func writeTrackError(ctx *fasthttp.RequestCtx, err *TrackError) {
	message := string(err.Reason)
	if err.Err != nil && err.Reason != ReasonInternal {
		message = err.Err.Error()
	}
	writeJSON(ctx, fasthttp.StatusOK, TrackAdResponse{Error: message, Reason: err.Reason})
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(responseJSON)
}
