package health

import (
	"context"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const checkTimeout = 2 * time.Second

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

type HealthEndpoints struct {
	version string
	checks  map[string]Check
}

func NewEndpoints(version string) *HealthEndpoints {
	return &HealthEndpoints{
		version: version,
		checks:  make(map[string]Check),
	}
}

// AddCheck registers a named dependency check. Not safe to call while serving.
func (h *HealthEndpoints) AddCheck(name string, check Check) {
	h.checks[name] = check
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

func (h *HealthEndpoints) Health(ctx *fasthttp.RequestCtx) {
	response := HealthResponse{
		Status:  "ok",
		Version: h.version,
	}
	status := fasthttp.StatusOK

	if len(h.checks) > 0 {
		response.Checks = make(map[string]string, len(h.checks))
		checkCtx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()

		names := make([]string, 0, len(h.checks))
		for name := range h.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if err := h.checks[name](checkCtx); err != nil {
				log.Warn().Err(err).Str("check", name).Msg("Health check failed")
				response.Checks[name] = err.Error()
				response.Status = "degraded"
				status = fasthttp.StatusServiceUnavailable
				continue
			}
			response.Checks[name] = "ok"
		}
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(responseJSON)
}
