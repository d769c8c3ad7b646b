package stream

import (
	"errors"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"github.com/videostream/videostream_server/internal/metrics"
	"github.com/videostream/videostream_server/internal/video"
)

type Endpoints struct {
	videos  video.Repository
	builder *Builder
}

func NewEndpoints(videos video.Repository, builder *Builder) *Endpoints {
	return &Endpoints{
		videos:  videos,
		builder: builder,
	}
}

func (e *Endpoints) Stream(ctx *fasthttp.RequestCtx) {
	videoID, ok := ctx.UserValue("videoID").(string)
	if !ok || videoID == "" {
		ctx.Error("Missing video ID", fasthttp.StatusBadRequest)
		return
	}

	v, err := video.GetPublic(ctx, e.videos, videoID)
	if err != nil {
		e.fail(ctx, videoID, err)
		return
	}

	rangeHeader := string(ctx.Request.Header.Peek(fasthttp.HeaderRange))
	resp, err := e.builder.Build(ctx, v, rangeHeader)
	if err != nil {
		e.fail(ctx, videoID, err)
		return
	}

	ctx.SetStatusCode(resp.StatusCode)
	ctx.SetContentType(resp.ContentType)
	ctx.Response.Header.Set(fasthttp.HeaderAcceptRanges, "bytes")
	if resp.ContentRange != "" {
		ctx.Response.Header.Set(fasthttp.HeaderContentRange, resp.ContentRange)
	}
	// fasthttp closes the body stream once the response is written or dropped.
	ctx.SetBodyStream(resp.Body, int(resp.ContentLength))

	metrics.RecordStreamRequest(strconv.Itoa(resp.StatusCode))
}

func (e *Endpoints) fail(ctx *fasthttp.RequestCtx, videoID string, err error) {
	switch {
	case errors.Is(err, video.ErrNotFound), errors.Is(err, ErrContentMissing):
		log.Debug().Err(err).Str("videoId", videoID).Msg("Stream target not found")
		ctx.Error("Not Found", fasthttp.StatusNotFound)
		metrics.RecordStreamRequest("404")
	default:
		log.Error().Err(err).Str("videoId", videoID).Msg("Failed to prepare stream")
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		metrics.RecordStreamRequest("500")
	}
}
