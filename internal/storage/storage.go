package storage

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object not found")

// Object is an open, seekable handle on stored media. Size is known at open
// time so callers can compute ranges without reading.
type Object interface {
	io.ReadSeekCloser
	Size() int64
}

type StorageBackend interface {
	Open(ctx context.Context, path string) (Object, error)
	Exists(ctx context.Context, path string) (bool, error)
	Health(ctx context.Context) error
}

type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

type BackendConfig struct {
	Type        StorageType `mapstructure:"type"`
	LocalPath   string      `mapstructure:"local_path"`
	S3Endpoint  string      `mapstructure:"s3_endpoint"`
	S3Bucket    string      `mapstructure:"s3_bucket"`
	S3AccessKey string      `mapstructure:"s3_access_key"`
	S3SecretKey string      `mapstructure:"s3_secret_key"`
	S3Region    string      `mapstructure:"s3_region"`
	S3UseSSL    bool        `mapstructure:"s3_use_ssl"`
}

func NewBackend(config *BackendConfig) (StorageBackend, error) {
	switch config.Type {
	case StorageTypeS3:
		return NewS3Storage(config)
	default:
		return NewLocalStorage(config)
	}
}
