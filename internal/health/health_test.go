package health

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func TestHealth_AllChecksPass(t *testing.T) {
	// given
	endpoints := NewEndpoints("1.2.3")
	endpoints.AddCheck("storage", func(ctx context.Context) error { return nil })
	ctx := &fasthttp.RequestCtx{}

	// when
	endpoints.Health(ctx)

	// then
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	var response HealthResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "1.2.3", response.Version)
	assert.Equal(t, "ok", response.Checks["storage"])
}

func TestHealth_FailingCheckDegrades(t *testing.T) {
	// given
	endpoints := NewEndpoints("1.2.3")
	endpoints.AddCheck("database", func(ctx context.Context) error { return errors.New("connection refused") })
	endpoints.AddCheck("storage", func(ctx context.Context) error { return nil })
	ctx := &fasthttp.RequestCtx{}

	// when
	endpoints.Health(ctx)

	// then
	assert.Equal(t, fasthttp.StatusServiceUnavailable, ctx.Response.StatusCode())
	var response HealthResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
	assert.Equal(t, "degraded", response.Status)
	assert.Equal(t, "connection refused", response.Checks["database"])
	assert.Equal(t, "ok", response.Checks["storage"])
}
