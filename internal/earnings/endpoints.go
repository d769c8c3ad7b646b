package earnings

import (
	"errors"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
	"github.com/videostream/videostream_server/internal/user"
)

type Endpoints struct {
	aggregator *Aggregator
}

func NewEndpoints(aggregator *Aggregator) *Endpoints {
	return &Endpoints{aggregator: aggregator}
}

type PayoutRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (e *Endpoints) GetSummary(ctx *fasthttp.RequestCtx) {
	authenticatedUser, ok := user.FromRequest(ctx)
	if !ok {
		ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
		return
	}

	summary, err := e.aggregator.Summary(ctx, authenticatedUser.ID)
	if err != nil {
		log.Error().Err(err).Str("creatorId", authenticatedUser.ID).Msg("Failed to build earnings summary")
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, summary)
}

func (e *Endpoints) RecordPayout(ctx *fasthttp.RequestCtx) {
	creatorID, ok := ctx.UserValue("creatorID").(string)
	if !ok || creatorID == "" {
		ctx.Error("Missing creator ID", fasthttp.StatusBadRequest)
		return
	}

	var req PayoutRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.Error("Invalid request body", fasthttp.StatusBadRequest)
		return
	}

	snapshot, err := e.aggregator.RecordPayout(ctx, creatorID, req.Amount)
	switch {
	case err == nil:
	case errors.Is(err, ErrNonPositiveAmount), errors.Is(err, ErrInsufficientPending):
		ctx.Error(err.Error(), fasthttp.StatusBadRequest)
		return
	default:
		log.Error().Err(err).Str("creatorId", creatorID).Msg("Failed to record payout")
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, snapshot)
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
