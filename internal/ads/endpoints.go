package ads

import (
	"errors"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"github.com/videostream/videostream_server/internal/user"
	"github.com/videostream/videostream_server/internal/video"
)

type Endpoints struct {
	service *Service
}

func NewEndpoints(service *Service) *Endpoints {
	return &Endpoints{service: service}
}

type AdSettingsRequest struct {
	VideoID   string `json:"video_id"`
	Positions []int  `json:"positions"`
}

type AdSettingsResponse struct {
	Success    bool         `json:"success"`
	Placements []*Placement `json:"placements"`
}

type VideoAdsResponse struct {
	VideoID    string           `json:"video_id"`
	Placements []*PlacementView `json:"placements"`
}

func (e *Endpoints) UpdateAdSettings(ctx *fasthttp.RequestCtx) {
	authenticatedUser, ok := user.FromRequest(ctx)
	if !ok {
		ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
		return
	}

	var req AdSettingsRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		log.Debug().Err(err).Msg("Invalid ad settings body")
		ctx.Error("Invalid request body", fasthttp.StatusBadRequest)
		return
	}
	if req.VideoID == "" {
		ctx.Error("video_id is required", fasthttp.StatusBadRequest)
		return
	}

	placements, err := e.service.UpdatePlacements(ctx, authenticatedUser.ID, req.VideoID, req.Positions)
	switch {
	case err == nil:
	case errors.Is(err, video.ErrNotFound):
		ctx.Error("Video not found", fasthttp.StatusNotFound)
		return
	case errors.Is(err, ErrNotOwner):
		ctx.Error("Forbidden", fasthttp.StatusForbidden)
		return
	case errors.Is(err, ErrInvalidPosition):
		ctx.Error(err.Error(), fasthttp.StatusBadRequest)
		return
	default:
		log.Error().Err(err).Str("videoId", req.VideoID).Msg("Failed to update ad settings")
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, AdSettingsResponse{Success: true, Placements: placements})
}

func (e *Endpoints) ListVideoAds(ctx *fasthttp.RequestCtx) {
	videoID, ok := ctx.UserValue("videoID").(string)
	if !ok || videoID == "" {
		ctx.Error("Missing video ID", fasthttp.StatusBadRequest)
		return
	}

	placements, err := e.service.PlacementsForVideo(ctx, videoID)
	if errors.Is(err, video.ErrNotFound) {
		ctx.Error("Video not found", fasthttp.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("videoId", videoID).Msg("Failed to list video ads")
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, VideoAdsResponse{VideoID: videoID, Placements: placements})
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
