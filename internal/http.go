package internal

import (
	"strings"

	"github.com/valyala/fasthttp"
	"github.com/videostream/videostream_server/internal/ads"
	"github.com/videostream/videostream_server/internal/earnings"
	"github.com/videostream/videostream_server/internal/health"
	"github.com/videostream/videostream_server/internal/middleware"
	"github.com/videostream/videostream_server/internal/monetization"
	"github.com/videostream/videostream_server/internal/status"
	"github.com/videostream/videostream_server/internal/stream"
	"github.com/videostream/videostream_server/internal/user"
	"github.com/videostream/videostream_server/internal/websocket"
)

type Endpoints struct {
	Stream       *stream.Endpoints
	Ads          *ads.Endpoints
	Monetization *monetization.Endpoints
	Earnings     *earnings.Endpoints
	Health       *health.HealthEndpoints
	Status       *status.StatusEndpoints
	Websocket    *websocket.Handler
	Metrics      fasthttp.RequestHandler
}

func NewRequestHandler(config *Config, userService *user.UserService, endpoints *Endpoints) fasthttp.RequestHandler {
	authMiddleware := middleware.NewAuthMiddleware(userService)
	corsMiddleware := middleware.NewCORSMiddleware(config.Server.AllowedOrigins)

	handler := func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		method := string(ctx.Method())
		parts := strings.Split(strings.Trim(path, "/"), "/")

		switch {
		case path == "/health":
			endpoints.Health.Health(ctx)
		case path == "/status":
			authMiddleware.RequireAuth(endpoints.Status.Status)(ctx)
		case path == "/metrics":
			endpoints.Metrics(ctx)
		case path == "/ws":
			endpoints.Websocket.HandleFastHTTP(ctx)

		case strings.HasPrefix(path, "/stream/"):
			if len(parts) != 2 || parts[1] == "" {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
				return
			}
			if method != fasthttp.MethodGet {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
				return
			}
			ctx.SetUserValue("videoID", parts[1])
			endpoints.Stream.Stream(ctx)

		case strings.HasPrefix(path, "/track-ad/"):
			if len(parts) != 2 || parts[1] == "" {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
				return
			}
			if method != fasthttp.MethodPost {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
				return
			}
			ctx.SetUserValue("adID", parts[1])
			authMiddleware.OptionalAuth(endpoints.Monetization.TrackAd)(ctx)

		case strings.HasPrefix(path, "/video/") && len(parts) == 3 && parts[2] == "tip":
			ctx.SetUserValue("videoID", parts[1])
			if method == fasthttp.MethodPost {
				authMiddleware.RequireAuth(endpoints.Monetization.SendTip)(ctx)
			} else {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}
		case strings.HasPrefix(path, "/video/") && len(parts) == 3 && parts[2] == "tips":
			ctx.SetUserValue("videoID", parts[1])
			if method == fasthttp.MethodGet {
				endpoints.Monetization.ListTips(ctx)
			} else {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}

		case path == "/ad-settings":
			if method == fasthttp.MethodPost {
				authMiddleware.RequireAuth(endpoints.Ads.UpdateAdSettings)(ctx)
			} else {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}
		case strings.HasPrefix(path, "/videos/") && len(parts) == 3 && parts[2] == "ads":
			ctx.SetUserValue("videoID", parts[1])
			if method == fasthttp.MethodGet {
				endpoints.Ads.ListVideoAds(ctx)
			} else {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}

		case path == "/earnings":
			if method == fasthttp.MethodGet {
				authMiddleware.RequireAuth(endpoints.Earnings.GetSummary)(ctx)
			} else {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}
		case strings.HasPrefix(path, "/earnings/") && len(parts) == 3 && parts[2] == "payouts":
			ctx.SetUserValue("creatorID", parts[1])
			if method == fasthttp.MethodPost {
				authMiddleware.RequireRole(user.RoleAdmin, endpoints.Earnings.RecordPayout)(ctx)
			} else {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}

		default:
			ctx.Error("Not Found", fasthttp.StatusNotFound)
		}
	}

	return corsMiddleware.Handle(handler)
}
