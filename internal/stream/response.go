package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"github.com/videostream/videostream_server/internal/storage"
	"github.com/videostream/videostream_server/internal/video"
)

const (
	defaultContentType = "video/mp4"
	sniffLength        = 3072
)

// ErrContentMissing covers every way the backing bytes can be out of reach:
// no such object, or a backend that cannot open or seek it.
var ErrContentMissing = errors.New("content missing")

type ViewCounter interface {
	IncrementViews(ctx context.Context, id string) error
}

type Config struct {
	ChunkSize   int           `mapstructure:"chunk_size"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	CacheSize   int           `mapstructure:"descriptor_cache_size"`
	CacheTTL    time.Duration `mapstructure:"descriptor_cache_ttl"`
}

// Response is a ready-to-send streaming reply. Body must be closed by whoever
// ends up owning it.
type Response struct {
	StatusCode    int
	ContentType   string
	ContentLength int64
	ContentRange  string
	Body          *Chunks
}

type Builder struct {
	backend storage.StorageBackend
	views   ViewCounter
	config  Config
	onSent  func(sent int64)
}

func NewBuilder(backend storage.StorageBackend, views ViewCounter, config Config, onSent func(sent int64)) *Builder {
	return &Builder{
		backend: backend,
		views:   views,
		config:  config,
		onSent:  onSent,
	}
}

// Build opens the backing object for v and prepares a full or partial reply.
// The view counter is bumped once per successful open, before any body byte
// is produced.
func (b *Builder) Build(ctx context.Context, v *video.Video, rangeHeader string) (*Response, error) {
	obj, err := b.backend.Open(ctx, v.StoragePath)
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			log.Error().
				Err(err).
				Str("videoId", v.ID).
				Str("path", v.StoragePath).
				Msg("Storage backend failed to open object")
		}
		return nil, fmt.Errorf("%w: %v", ErrContentMissing, err)
	}

	if err := b.views.IncrementViews(ctx, v.ID); err != nil {
		log.Warn().
			Err(err).
			Str("videoId", v.ID).
			Msg("Failed to increment view counter")
	}

	total := obj.Size()
	contentType := b.contentType(v, obj)

	if outcome := ParseRange(rangeHeader, total); outcome.Partial {
		resp, err := b.partial(obj, outcome.Range, total, contentType)
		if err == nil {
			return resp, nil
		}
		log.Warn().
			Err(err).
			Str("videoId", v.ID).
			Str("range", rangeHeader).
			Msg("Range request failed, serving full content")
	}

	body, err := NewChunks(obj, 0, total, b.options())
	if err != nil {
		obj.Close()
		log.Error().
			Err(err).
			Str("videoId", v.ID).
			Msg("Failed to position object for streaming")
		return nil, fmt.Errorf("%w: %v", ErrContentMissing, err)
	}

	return &Response{
		StatusCode:    fasthttp.StatusOK,
		ContentType:   contentType,
		ContentLength: total,
		Body:          body,
	}, nil
}

func (b *Builder) partial(obj storage.Object, r ByteRange, total int64, contentType string) (*Response, error) {
	body, err := NewChunks(obj, r.Start, r.Length(), b.options())
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode:    fasthttp.StatusPartialContent,
		ContentType:   contentType,
		ContentLength: r.Length(),
		ContentRange:  r.ContentRange(total),
		Body:          body,
	}, nil
}

func (b *Builder) options() Options {
	return Options{
		ChunkSize:   b.config.ChunkSize,
		ReadTimeout: b.config.ReadTimeout,
		OnClose:     b.onSent,
	}
}

// contentType prefers the stored descriptor type and sniffs the object head
// otherwise. The object is rewound by NewChunks, so sniffing may move it.
func (b *Builder) contentType(v *video.Video, obj storage.Object) string {
	if v.ContentType != "" {
		return v.ContentType
	}

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(obj, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return defaultContentType
	}

	mtype := mimetype.Detect(head[:n])
	if mtype.Is("application/octet-stream") || mtype.Is("text/plain") {
		return defaultContentType
	}
	return mtype.String()
}
