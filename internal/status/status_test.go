package status

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type fakeStats struct{ clients, users int }

func (f fakeStats) GetStats() (int, int) { return f.clients, f.users }

func TestStatus(t *testing.T) {
	// given
	endpoints := NewEndpoints("1.0.0", fakeStats{clients: 3, users: 2}, func() int { return 7 })
	endpoints.now = func() time.Time { return endpoints.startedAt.Add(90 * time.Second) }
	ctx := &fasthttp.RequestCtx{}

	// when
	endpoints.Status(ctx)

	// then
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	var response StatusResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
	assert.Equal(t, "OK", response.Health)
	assert.Equal(t, "1.0.0", response.Version)
	assert.Equal(t, int64(90), response.UptimeSeconds)
	assert.Equal(t, 3, response.WebsocketClients)
	assert.Equal(t, 2, response.WebsocketCreators)
	assert.Equal(t, 7, response.CachedVideos)
}

func TestStatus_WithoutOptionalSources(t *testing.T) {
	// given
	endpoints := NewEndpoints("1.0.0", nil, nil)
	ctx := &fasthttp.RequestCtx{}

	// when
	endpoints.Status(ctx)

	// then
	var response StatusResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
	assert.Zero(t, response.WebsocketClients)
	assert.Zero(t, response.CachedVideos)
}
