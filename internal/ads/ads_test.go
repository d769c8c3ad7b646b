package ads

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/videostream/videostream_server/internal/user"
	"github.com/videostream/videostream_server/internal/video"
)

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newCampaign(id string, active bool, start, end time.Time) *Campaign {
	return &Campaign{
		ID:           id,
		Name:         "Campaign " + id,
		Advertiser:   "Acme",
		Budget:       decimal.RequireFromString("10000"),
		CostPerView:  decimal.RequireFromString("0.01"),
		CostPerClick: decimal.RequireFromString("0.05"),
		IsActive:     active,
		StartDate:    start,
		EndDate:      end,
	}
}

func newAd(id, campaignID string, active bool) *Ad {
	return &Ad{ID: id, CampaignID: campaignID, Title: "Ad " + id, Type: AdTypeVideoPre, Duration: 30, IsActive: active, CreatedAt: fixedNow}
}

func seedAds(t *testing.T) *MemoryRepository {
	t.Helper()
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.CreateCampaign(ctx, newCampaign("running", true, fixedNow.AddDate(0, 0, -1), fixedNow.AddDate(0, 0, 30))))
	require.NoError(t, repo.CreateCampaign(ctx, newCampaign("paused", false, fixedNow.AddDate(0, 0, -1), fixedNow.AddDate(0, 0, 30))))
	require.NoError(t, repo.CreateCampaign(ctx, newCampaign("ended", true, fixedNow.AddDate(0, 0, -30), fixedNow.AddDate(0, 0, -1))))

	require.NoError(t, repo.CreateAd(ctx, newAd("a1", "running", true)))
	require.NoError(t, repo.CreateAd(ctx, newAd("a2", "running", true)))
	require.NoError(t, repo.CreateAd(ctx, newAd("a3", "running", false)))
	require.NoError(t, repo.CreateAd(ctx, newAd("a4", "paused", true)))
	require.NoError(t, repo.CreateAd(ctx, newAd("a5", "ended", true)))
	return repo
}

func TestCampaign_ActiveAt(t *testing.T) {
	c := newCampaign("c", true, fixedNow, fixedNow.Add(time.Hour))

	assert.True(t, c.ActiveAt(fixedNow))
	assert.True(t, c.ActiveAt(fixedNow.Add(time.Hour)))
	assert.False(t, c.ActiveAt(fixedNow.Add(-time.Second)))
	assert.False(t, c.ActiveAt(fixedNow.Add(time.Hour+time.Second)))

	c.IsActive = false
	assert.False(t, c.ActiveAt(fixedNow))
}

func TestAdType_Valid(t *testing.T) {
	assert.True(t, AdTypeOverlay.Valid())
	assert.False(t, AdType("popup").Valid())
}

func TestMemoryRepository_ListActiveAds_ShouldFilterByAdAndCampaignState(t *testing.T) {
	// given
	repo := seedAds(t)

	// when
	active, err := repo.ListActiveAds(context.Background(), fixedNow)

	// then
	require.NoError(t, err)
	ids := make([]string, 0, len(active))
	for _, ad := range active {
		ids = append(ids, ad.ID)
	}
	assert.Equal(t, []string{"a1", "a2"}, ids)
}

func TestMemoryRepository_CreateAd_ShouldRequireCampaign(t *testing.T) {
	// given
	repo := NewMemoryRepository()

	// when
	err := repo.CreateAd(context.Background(), newAd("x", "nope", true))

	// then
	assert.True(t, errors.Is(err, ErrCampaignNotFound))
}

func TestSelector_PickActive_ShouldOnlyReturnEligibleAds(t *testing.T) {
	// given
	repo := seedAds(t)
	selector := NewSelector(repo, rand.New(rand.NewPCG(1, 2)))

	// when
	seen := map[string]int{}
	for i := 0; i < 200; i++ {
		ad, err := selector.PickActive(context.Background(), fixedNow)
		require.NoError(t, err)
		seen[ad.ID]++
	}

	// then
	assert.Len(t, seen, 2)
	assert.Greater(t, seen["a1"], 0)
	assert.Greater(t, seen["a2"], 0)
}

func TestSelector_PickActive_ShouldFailWhenNothingEligible(t *testing.T) {
	// given
	selector := NewSelector(NewMemoryRepository(), nil)

	// when
	_, err := selector.PickActive(context.Background(), fixedNow)

	// then
	assert.True(t, errors.Is(err, ErrNoActiveAd))
}

func newServiceFixture(t *testing.T, repo *MemoryRepository) (*Service, *video.MemoryRepository) {
	t.Helper()
	videos := video.NewMemoryRepository()
	require.NoError(t, videos.Create(context.Background(), &video.Video{ID: "v1", CreatorID: "owner", IsPublic: true}))
	require.NoError(t, videos.Create(context.Background(), &video.Video{ID: "hidden", CreatorID: "owner", IsPublic: false}))
	service := NewService(repo, videos, NewSelector(repo, rand.New(rand.NewPCG(7, 7))))
	service.now = func() time.Time { return fixedNow }
	return service, videos
}

func TestService_UpdatePlacements_ShouldReplaceExistingPlacements(t *testing.T) {
	// given
	repo := seedAds(t)
	service, _ := newServiceFixture(t, repo)
	_, err := service.UpdatePlacements(context.Background(), "owner", "v1", []int{0, 60, 120})
	require.NoError(t, err)

	// when
	placements, err := service.UpdatePlacements(context.Background(), "owner", "v1", []int{30, 30, 10})

	// then
	require.NoError(t, err)
	stored, _ := repo.ListPlacements(context.Background(), "v1")
	assert.Len(t, placements, 2)
	require.Len(t, stored, 2)
	assert.Equal(t, 10, stored[0].Position)
	assert.Equal(t, 30, stored[1].Position)
	for _, p := range stored {
		assert.Contains(t, []string{"a1", "a2"}, p.AdID)
	}
}

func TestService_UpdatePlacements_ShouldRejectNonOwner(t *testing.T) {
	// given
	service, _ := newServiceFixture(t, seedAds(t))

	// when
	_, err := service.UpdatePlacements(context.Background(), "intruder", "v1", []int{0})

	// then
	assert.True(t, errors.Is(err, ErrNotOwner))
}

func TestService_UpdatePlacements_ShouldRejectNegativePosition(t *testing.T) {
	// given
	service, _ := newServiceFixture(t, seedAds(t))

	// when
	_, err := service.UpdatePlacements(context.Background(), "owner", "v1", []int{-5})

	// then
	assert.True(t, errors.Is(err, ErrInvalidPosition))
}

func TestService_UpdatePlacements_ShouldSkipPositionsWithoutEligibleAds(t *testing.T) {
	// given
	service, _ := newServiceFixture(t, NewMemoryRepository())

	// when
	placements, err := service.UpdatePlacements(context.Background(), "owner", "v1", []int{0, 15})

	// then
	require.NoError(t, err)
	assert.Empty(t, placements)
}

func TestService_PlacementsForVideo_ShouldHidePrivateVideos(t *testing.T) {
	// given
	service, _ := newServiceFixture(t, seedAds(t))

	// when
	_, err := service.PlacementsForVideo(context.Background(), "hidden")

	// then
	assert.True(t, errors.Is(err, video.ErrNotFound))
}

func TestEndpoints_UpdateAdSettings(t *testing.T) {
	// given
	repo := seedAds(t)
	service, _ := newServiceFixture(t, repo)
	endpoints := NewEndpoints(service)

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.SetBodyString(`{"video_id":"v1","positions":[0,45]}`)
	user.SetOnRequest(ctx, &user.User{ID: "owner"})

	// when
	endpoints.UpdateAdSettings(ctx)

	// then
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	var resp AdSettingsResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Placements, 2)

	// and the placements are visible to viewers
	listCtx := &fasthttp.RequestCtx{}
	listCtx.SetUserValue("videoID", "v1")
	endpoints.ListVideoAds(listCtx)
	assert.Equal(t, fasthttp.StatusOK, listCtx.Response.StatusCode())
	var list VideoAdsResponse
	require.NoError(t, json.Unmarshal(listCtx.Response.Body(), &list))
	assert.Len(t, list.Placements, 2)
	assert.Equal(t, 0, list.Placements[0].Position)
	assert.Equal(t, 45, list.Placements[1].Position)
}

func TestEndpoints_UpdateAdSettings_ShouldForbidNonOwner(t *testing.T) {
	// given
	service, _ := newServiceFixture(t, seedAds(t))
	endpoints := NewEndpoints(service)

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.SetBodyString(`{"video_id":"v1","positions":[0]}`)
	user.SetOnRequest(ctx, &user.User{ID: "someone"})

	// when
	endpoints.UpdateAdSettings(ctx)

	// then
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())
}
