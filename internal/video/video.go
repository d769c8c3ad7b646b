package video

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("video not found")

type Video struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	CreatorID   string    `json:"creator_id"`
	StoragePath string    `json:"-"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Views       int64     `json:"views"`
	IsPublic    bool      `json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
}

// OwnedBy reports whether userID is the creator. Anonymous viewers never own.
func (v *Video) OwnedBy(userID string) bool {
	return userID != "" && v.CreatorID == userID
}

type Repository interface {
	Create(ctx context.Context, v *Video) error
	GetByID(ctx context.Context, id string) (*Video, error)
	IncrementViews(ctx context.Context, id string) error
}

// GetPublic returns the video only when it exists and is public. Private and
// unknown videos are indistinguishable to the caller.
func GetPublic(ctx context.Context, repo Repository, id string) (*Video, error) {
	v, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !v.IsPublic {
		return nil, ErrNotFound
	}
	return v, nil
}
