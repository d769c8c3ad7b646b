package earnings

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/videostream/videostream_server/internal/user"
)

func TestEndpoints_GetSummary(t *testing.T) {
	// given
	aggregator := NewAggregator(NewMemoryRepository(), Config{})
	_, err := aggregator.Apply(context.Background(), entry("c1", "0.05"))
	require.NoError(t, err)
	endpoints := NewEndpoints(aggregator)

	ctx := &fasthttp.RequestCtx{}
	user.SetOnRequest(ctx, &user.User{ID: "c1"})

	// when
	endpoints.GetSummary(ctx)

	// then
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	var body map[string]any
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	assert.Equal(t, "0.05", body["available_for_payout"])
	assert.Len(t, body["recent_revenue"], 1)
}

func TestEndpoints_GetSummary_ShouldRequireUser(t *testing.T) {
	// given
	endpoints := NewEndpoints(NewAggregator(NewMemoryRepository(), Config{}))
	ctx := &fasthttp.RequestCtx{}

	// when
	endpoints.GetSummary(ctx)

	// then
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
}

func TestEndpoints_RecordPayout(t *testing.T) {
	// given
	aggregator := NewAggregator(NewMemoryRepository(), Config{})
	_, err := aggregator.Apply(context.Background(), entry("c1", "3.00"))
	require.NoError(t, err)
	endpoints := NewEndpoints(aggregator)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "valid payout", body: `{"amount":"1.25"}`, status: fasthttp.StatusOK},
		{name: "overdraw", body: `{"amount":"100"}`, status: fasthttp.StatusBadRequest},
		{name: "zero", body: `{"amount":"0"}`, status: fasthttp.StatusBadRequest},
		{name: "garbage", body: `{"amount":"lots"}`, status: fasthttp.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := &fasthttp.RequestCtx{}
			ctx.SetUserValue("creatorID", "c1")
			ctx.Request.SetBodyString(tt.body)

			// when
			endpoints.RecordPayout(ctx)

			// then
			assert.Equal(t, tt.status, ctx.Response.StatusCode())
		})
	}

	snapshot, err := aggregator.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "1.75", snapshot.PendingAmount.String())
}
