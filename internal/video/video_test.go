package video

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepository struct {
	Repository
	gets int
}

func (r *countingRepository) GetByID(ctx context.Context, id string) (*Video, error) {
	r.gets++
	return r.Repository.GetByID(ctx, id)
}

func sampleVideo(id string, public bool) *Video {
	return &Video{
		ID:          id,
		Title:       "Sample",
		CreatorID:   "creator-1",
		StoragePath: id + ".mp4",
		ContentType: "video/mp4",
		IsPublic:    public,
		CreatedAt:   time.Now(),
	}
}

func TestGetPublic_ShouldHidePrivateVideos(t *testing.T) {
	// given
	repo := NewMemoryRepository()
	require.NoError(t, repo.Create(context.Background(), sampleVideo("public", true)))
	require.NoError(t, repo.Create(context.Background(), sampleVideo("private", false)))

	// when
	pub, errPublic := GetPublic(context.Background(), repo, "public")
	_, errPrivate := GetPublic(context.Background(), repo, "private")
	_, errMissing := GetPublic(context.Background(), repo, "missing")

	// then
	assert.NoError(t, errPublic)
	assert.Equal(t, "public", pub.ID)
	assert.True(t, errors.Is(errPrivate, ErrNotFound))
	assert.True(t, errors.Is(errMissing, ErrNotFound))
}

func TestMemoryRepository_IncrementViews_ShouldNotLoseConcurrentUpdates(t *testing.T) {
	// given
	repo := NewMemoryRepository()
	require.NoError(t, repo.Create(context.Background(), sampleVideo("v1", true)))

	// when
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.IncrementViews(context.Background(), "v1"))
		}()
	}
	wg.Wait()

	// then
	v, err := repo.GetByID(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), v.Views)
}

func TestMemoryRepository_IncrementViews_ShouldFailForUnknownVideo(t *testing.T) {
	// given
	repo := NewMemoryRepository()

	// when
	err := repo.IncrementViews(context.Background(), "nope")

	// then
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestVideo_OwnedBy(t *testing.T) {
	v := sampleVideo("v1", true)

	assert.True(t, v.OwnedBy("creator-1"))
	assert.False(t, v.OwnedBy("someone-else"))
	assert.False(t, v.OwnedBy(""))
}

func TestCachedRepository_ShouldServeRepeatLookupsFromCache(t *testing.T) {
	// given
	inner := &countingRepository{Repository: NewMemoryRepository()}
	require.NoError(t, inner.Create(context.Background(), sampleVideo("v1", true)))
	cached := NewCachedRepository(inner, 8, time.Minute)

	// when
	first, err1 := cached.GetByID(context.Background(), "v1")
	second, err2 := cached.GetByID(context.Background(), "v1")

	// then
	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, inner.gets)
	assert.Equal(t, 1, cached.Len())
}

func TestCachedRepository_ShouldNotCacheMisses(t *testing.T) {
	// given
	inner := &countingRepository{Repository: NewMemoryRepository()}
	cached := NewCachedRepository(inner, 8, time.Minute)

	// when
	_, err1 := cached.GetByID(context.Background(), "v1")
	_, err2 := cached.GetByID(context.Background(), "v1")

	// then
	assert.True(t, errors.Is(err1, ErrNotFound))
	assert.True(t, errors.Is(err2, ErrNotFound))
	assert.Equal(t, 2, inner.gets)
}

func TestCachedRepository_ShouldPassIncrementsThrough(t *testing.T) {
	// given
	inner := NewMemoryRepository()
	require.NoError(t, inner.Create(context.Background(), sampleVideo("v1", true)))
	cached := NewCachedRepository(inner, 8, time.Minute)

	// when
	err := cached.IncrementViews(context.Background(), "v1")

	// then
	require.NoError(t, err)
	v, _ := inner.GetByID(context.Background(), "v1")
	assert.Equal(t, int64(1), v.Views)
}
