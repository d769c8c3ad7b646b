package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/videostream/videostream_server/internal/storage"
	"github.com/videostream/videostream_server/internal/video"
)

type fakeBackend struct {
	objects map[string][]byte
	opened  []*fakeObject
	openErr error
	seekErr error
}

func (b *fakeBackend) Open(ctx context.Context, path string) (storage.Object, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	data, ok := b.objects[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrObjectNotFound, path)
	}
	obj := newFakeObject(data)
	obj.seekErr = b.seekErr
	b.opened = append(b.opened, obj)
	return obj, nil
}

func (b *fakeBackend) Exists(ctx context.Context, path string) (bool, error) {
	_, ok := b.objects[path]
	return ok, nil
}

func (b *fakeBackend) Health(ctx context.Context) error { return nil }

type fakeViewCounter struct {
	calls int
	err   error
}

func (c *fakeViewCounter) IncrementViews(ctx context.Context, id string) error {
	c.calls++
	return c.err
}

func newTestVideo() *video.Video {
	return &video.Video{ID: "v1", CreatorID: "c1", StoragePath: "v1.mp4", ContentType: "video/mp4", IsPublic: true}
}

func TestBuilder_FullResponseWhenNoRange(t *testing.T) {
	// given
	data := payload(20000)
	backend := &fakeBackend{objects: map[string][]byte{"v1.mp4": data}}
	views := &fakeViewCounter{}
	builder := NewBuilder(backend, views, Config{}, nil)

	// when
	resp, err := builder.Build(context.Background(), newTestVideo(), "")

	// then
	require.NoError(t, err)
	assert.Equal(t, fasthttp.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(20000), resp.ContentLength)
	assert.Empty(t, resp.ContentRange)
	assert.Equal(t, "video/mp4", resp.ContentType)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, data, body)
	assert.Equal(t, 1, views.calls)
	assert.Equal(t, 1, backend.opened[0].closed)
}

func TestBuilder_PartialResponseForValidRange(t *testing.T) {
	// given
	data := payload(1000)
	backend := &fakeBackend{objects: map[string][]byte{"v1.mp4": data}}
	views := &fakeViewCounter{}
	builder := NewBuilder(backend, views, Config{}, nil)

	// when
	resp, err := builder.Build(context.Background(), newTestVideo(), "bytes=100-199")

	// then
	require.NoError(t, err)
	assert.Equal(t, fasthttp.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, int64(100), resp.ContentLength)
	assert.Equal(t, "bytes 100-199/1000", resp.ContentRange)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, data[100:200], body)
	assert.Equal(t, 1, views.calls)
}

func TestBuilder_OpenEndedRangeRunsToEnd(t *testing.T) {
	// given
	data := payload(1000)
	backend := &fakeBackend{objects: map[string][]byte{"v1.mp4": data}}
	builder := NewBuilder(backend, &fakeViewCounter{}, Config{}, nil)

	// when
	resp, err := builder.Build(context.Background(), newTestVideo(), "bytes=500-")

	// then
	require.NoError(t, err)
	assert.Equal(t, "bytes 500-999/1000", resp.ContentRange)
	assert.Equal(t, int64(500), resp.ContentLength)
}

func TestBuilder_MalformedRangeFallsBackToFull(t *testing.T) {
	// given
	data := payload(1000)
	backend := &fakeBackend{objects: map[string][]byte{"v1.mp4": data}}
	builder := NewBuilder(backend, &fakeViewCounter{}, Config{}, nil)

	for _, header := range []string{"bytes=-500", "bytes=abc-", "bytes=900-100", "pages=1-2"} {
		// when
		resp, err := builder.Build(context.Background(), newTestVideo(), header)

		// then
		require.NoError(t, err, header)
		assert.Equal(t, fasthttp.StatusOK, resp.StatusCode, header)
		assert.Equal(t, int64(1000), resp.ContentLength, header)
		resp.Body.Close()
	}
}

func TestBuilder_MissingObjectIsContentMissing(t *testing.T) {
	// given
	backend := &fakeBackend{objects: map[string][]byte{}}
	views := &fakeViewCounter{}
	builder := NewBuilder(backend, views, Config{}, nil)

	// when
	_, err := builder.Build(context.Background(), newTestVideo(), "")

	// then
	assert.True(t, errors.Is(err, ErrContentMissing))
	assert.Equal(t, 0, views.calls)
}

func TestBuilder_BackendFailureIsContentMissing(t *testing.T) {
	tests := []struct {
		name    string
		openErr error
	}{
		{name: "network", openErr: errors.New("dial tcp: connection refused")},
		{name: "access denied", openErr: errors.New("AccessDenied: signature mismatch")},
		{name: "permission", openErr: fmt.Errorf("open v1.mp4: %w", fs.ErrPermission)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			backend := &fakeBackend{openErr: tt.openErr}
			views := &fakeViewCounter{}
			builder := NewBuilder(backend, views, Config{}, nil)

			// when
			_, err := builder.Build(context.Background(), newTestVideo(), "")

			// then
			assert.True(t, errors.Is(err, ErrContentMissing))
			assert.Equal(t, 0, views.calls)
		})
	}
}

func TestBuilder_ViewIncrementFailureIsNotFatal(t *testing.T) {
	// given
	backend := &fakeBackend{objects: map[string][]byte{"v1.mp4": payload(10)}}
	views := &fakeViewCounter{err: errors.New("db down")}
	builder := NewBuilder(backend, views, Config{}, nil)

	// when
	resp, err := builder.Build(context.Background(), newTestVideo(), "")

	// then
	require.NoError(t, err)
	assert.Equal(t, fasthttp.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestBuilder_SeekFailureReleasesHandle(t *testing.T) {
	// given
	backend := &fakeBackend{objects: map[string][]byte{"v1.mp4": payload(100)}, seekErr: errors.New("seek broken")}
	builder := NewBuilder(backend, &fakeViewCounter{}, Config{}, nil)

	// when
	_, err := builder.Build(context.Background(), newTestVideo(), "bytes=10-20")

	// then
	assert.True(t, errors.Is(err, ErrContentMissing))
	assert.Equal(t, 1, backend.opened[0].closed)
}

func TestBuilder_SniffsContentTypeWhenDescriptorHasNone(t *testing.T) {
	// given
	png := append([]byte("\x89PNG\r\n\x1a\n"), payload(64)...)
	backend := &fakeBackend{objects: map[string][]byte{"v1.mp4": png}}
	v := newTestVideo()
	v.ContentType = ""
	builder := NewBuilder(backend, &fakeViewCounter{}, Config{}, nil)

	// when
	resp, err := builder.Build(context.Background(), v, "")

	// then
	require.NoError(t, err)
	assert.Equal(t, "image/png", resp.ContentType)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, png, body)
}

func TestBuilder_UnknownContentFallsBackToMP4(t *testing.T) {
	// given
	backend := &fakeBackend{objects: map[string][]byte{"v1.mp4": {0x00, 0x01, 0x02, 0x03}}}
	v := newTestVideo()
	v.ContentType = ""
	builder := NewBuilder(backend, &fakeViewCounter{}, Config{}, nil)

	// when
	resp, err := builder.Build(context.Background(), v, "")

	// then
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", resp.ContentType)
	resp.Body.Close()
}

func TestBuilder_ReportsSentBytesOnClose(t *testing.T) {
	// given
	backend := &fakeBackend{objects: map[string][]byte{"v1.mp4": payload(300)}}
	var sent int64
	builder := NewBuilder(backend, &fakeViewCounter{}, Config{ChunkSize: 64}, func(n int64) { sent += n })

	// when
	resp, err := builder.Build(context.Background(), newTestVideo(), "bytes=0-99")
	require.NoError(t, err)
	_, _ = io.ReadAll(resp.Body)

	// then
	assert.Equal(t, int64(100), sent)
}
