package stream

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"
	"time"
)

const DefaultChunkSize = 8192

var ErrReadStalled = errors.New("stream: backing read stalled")

type Options struct {
	ChunkSize int
	// ReadTimeout bounds a single backing read. Zero disables it.
	ReadTimeout time.Duration
	// OnClose receives the number of bytes handed out once the handle is released.
	OnClose func(sent int64)
}

// Chunks is a single-pass, lazily read sequence of byte chunks over a
// seekable source. It owns the source once NewChunks succeeds and releases it
// on exhaustion, on error, or on Close, whichever comes first.
type Chunks struct {
	src         io.ReadSeekCloser
	remaining   int64
	chunkSize   int
	readTimeout time.Duration
	onClose     func(int64)

	pending []byte
	sent    int64
	err     error

	closeOnce sync.Once
	closeErr  error
}

// NewChunks positions src at offset and bounds the sequence to length bytes.
// A negative length reads until the source is exhausted. On error the source
// is left open and still belongs to the caller.
func NewChunks(src io.ReadSeekCloser, offset, length int64, opts Options) (*Chunks, error) {
	if offset < 0 {
		return nil, fmt.Errorf("stream: negative offset %d", offset)
	}
	if _, err := src.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("stream: seek to %d: %w", offset, err)
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &Chunks{
		src:         src,
		remaining:   length,
		chunkSize:   chunkSize,
		readTimeout: opts.ReadTimeout,
		onClose:     opts.OnClose,
	}, nil
}

// Next returns the next chunk. It returns io.EOF once the budget is spent or
// the source runs dry, and the failure that ended the sequence otherwise.
func (c *Chunks) Next() ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}

	want := c.chunkSize
	if c.remaining >= 0 {
		if c.remaining == 0 {
			c.finish(io.EOF)
			return nil, io.EOF
		}
		if int64(want) > c.remaining {
			want = int(c.remaining)
		}
	}

	buf := make([]byte, want)
	n, err := c.read(buf)
	if n > 0 {
		c.sent += int64(n)
		if c.remaining >= 0 {
			c.remaining -= int64(n)
		}
		switch {
		case err == nil:
		case isEndOfData(err):
			c.finish(io.EOF)
		default:
			c.finish(err)
		}
		return buf[:n], nil
	}

	if err == nil || isEndOfData(err) {
		err = io.EOF
	}
	c.finish(err)
	return nil, err
}

// All yields the remaining chunks. The handle is released when the loop ends,
// including when the consumer breaks out early.
func (c *Chunks) All() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		defer c.Close()
		for {
			chunk, err := c.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(chunk, err) || err != nil {
				return
			}
		}
	}
}

// Read lets Chunks act as a response body stream.
func (c *Chunks) Read(p []byte) (int, error) {
	for len(c.pending) == 0 {
		chunk, err := c.Next()
		if err != nil {
			return 0, err
		}
		c.pending = chunk
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *Chunks) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.src.Close()
		if c.onClose != nil {
			c.onClose(c.sent)
		}
	})
	return c.closeErr
}

// Sent is the number of bytes handed out so far.
func (c *Chunks) Sent() int64 {
	return c.sent
}

func (c *Chunks) finish(err error) {
	c.err = err
	c.Close()
}

func (c *Chunks) read(buf []byte) (int, error) {
	if c.readTimeout <= 0 {
		return io.ReadFull(c.src, buf)
	}

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := io.ReadFull(c.src, buf)
		done <- result{n: n, err: err}
	}()

	timer := time.NewTimer(c.readTimeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.n, r.err
	case <-timer.C:
		return 0, ErrReadStalled
	}
}

func isEndOfData(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
