package status

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
)

// ConnectionStats is implemented by the websocket hub.
type ConnectionStats interface {
	GetStats() (totalClients, totalUsers int)
}

type StatusEndpoints struct {
	version     string
	startedAt   time.Time
	connections ConnectionStats
	cacheSize   func() int
	now         func() time.Time
}

// NewEndpoints builds the status endpoint. cacheSize may be nil when the
// video cache is disabled.
func NewEndpoints(version string, connections ConnectionStats, cacheSize func() int) *StatusEndpoints {
	return &StatusEndpoints{
		version:     version,
		startedAt:   time.Now(),
		connections: connections,
		cacheSize:   cacheSize,
		now:         time.Now,
	}
}

type StatusResponse struct {
	Health            string `json:"health"`
	Version           string `json:"version"`
	UptimeSeconds     int64  `json:"uptime_seconds"`
	WebsocketClients  int    `json:"websocket_clients"`
	WebsocketCreators int    `json:"websocket_creators"`
	CachedVideos      int    `json:"cached_videos"`
}

func (se *StatusEndpoints) Status(ctx *fasthttp.RequestCtx) {
	response := StatusResponse{
		Health:        "OK",
		Version:       se.version,
		UptimeSeconds: int64(se.now().Sub(se.startedAt).Seconds()),
	}
	if se.connections != nil {
		response.WebsocketClients, response.WebsocketCreators = se.connections.GetStats()
	}
	if se.cacheSize != nil {
		response.CachedVideos = se.cacheSize()
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)

	responseJSON, err := json.Marshal(response)
	if err != nil {
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetBody(responseJSON)
}
