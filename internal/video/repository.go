package video

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, v *Video) error {
	query := `INSERT INTO videos (id, title, creator_id, storage_path, content_type, size_bytes, views, is_public, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.Title, v.CreatorID, v.StoragePath, v.ContentType, v.SizeBytes, v.Views, v.IsPublic, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Video, error) {
	query := `SELECT id, title, creator_id, storage_path, content_type, size_bytes, views, is_public, created_at
			  FROM videos WHERE id = $1`

	v := &Video{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.Title, &v.CreatorID, &v.StoragePath, &v.ContentType, &v.SizeBytes, &v.Views, &v.IsPublic, &v.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video %s: %w", id, err)
	}
	return v, nil
}

func (r *PostgresRepository) IncrementViews(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
