package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocalStorage(t *testing.T) (*LocalStorage, string) {
	dir := t.TempDir()
	s, err := NewLocalStorage(&BackendConfig{Type: StorageTypeLocal, LocalPath: dir})
	require.NoError(t, err)
	return s, dir
}

func TestLocalStorage_Open_ShouldReturnSeekableObjectWithSize(t *testing.T) {
	// given
	s, dir := newTestLocalStorage(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clip.mp4"), []byte("0123456789"), 0644))

	// when
	obj, err := s.Open(context.Background(), "clip.mp4")

	// then
	require.NoError(t, err)
	defer obj.Close()
	assert.Equal(t, int64(10), obj.Size())

	_, err = obj.Seek(4, io.SeekStart)
	require.NoError(t, err)
	buf := make([]byte, 3)
	_, err = io.ReadFull(obj, buf)
	require.NoError(t, err)
	assert.Equal(t, "456", string(buf))
}

func TestLocalStorage_Open_ShouldReturnNotFoundForMissingObject(t *testing.T) {
	// given
	s, _ := newTestLocalStorage(t)

	// when
	_, err := s.Open(context.Background(), "missing.mp4")

	// then
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}

func TestLocalStorage_Open_ShouldNotEscapeBasePath(t *testing.T) {
	// given
	parent := t.TempDir()
	base := filepath.Join(parent, "media")
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("x"), 0644))
	s, err := NewLocalStorage(&BackendConfig{LocalPath: base})
	require.NoError(t, err)

	// when
	_, err = s.Open(context.Background(), "../secret.txt")

	// then
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}

func TestLocalStorage_Open_ShouldRejectDirectories(t *testing.T) {
	// given
	s, dir := newTestLocalStorage(t)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "videos"), 0755))

	// when
	_, err := s.Open(context.Background(), "videos")

	// then
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}

func TestLocalStorage_ExistsAndHealth(t *testing.T) {
	// given
	s, dir := newTestLocalStorage(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp4"), []byte("a"), 0644))

	// when
	present, err1 := s.Exists(context.Background(), "a.mp4")
	absent, err2 := s.Exists(context.Background(), "b.mp4")

	// then
	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.True(t, present)
	assert.False(t, absent)
	assert.NoError(t, s.Health(context.Background()))
}
