package monetization

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const adViewColumns = `id, ad_id, video_id, viewer_id, viewer_ip, duration_watched, was_clicked, revenue_earned, event_key, viewed_at`

type PostgresAdViewRepository struct {
	db *sql.DB
}

func NewPostgresAdViewRepository(db *sql.DB) *PostgresAdViewRepository {
	return &PostgresAdViewRepository{db: db}
}

// Insert relies on the unique index over event_key; a conflicting insert is
// a replay and the first row is returned. Views without a key are stored as
// NULL and never conflict.
func (r *PostgresAdViewRepository) Insert(ctx context.Context, view *AdView) (*AdView, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO ad_views (`+adViewColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (event_key) DO NOTHING
		 RETURNING id`,
		view.ID, view.AdID, view.VideoID, nullString(view.ViewerID), view.ViewerIP,
		view.DurationWatched, view.WasClicked, view.RevenueEarned, nullString(view.EventKey), view.ViewedAt,
	).Scan(&id)
	if err == nil {
		return view, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to insert ad view: %w", err)
	}

	stored, err := r.getByKey(ctx, view.EventKey)
	if err != nil {
		return nil, err
	}
	return stored, ErrDuplicateEvent
}

func (r *PostgresAdViewRepository) getByKey(ctx context.Context, key string) (*AdView, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+adViewColumns+` FROM ad_views WHERE event_key = $1`, key)

	v := &AdView{}
	var viewerID, eventKey sql.NullString
	err := row.Scan(&v.ID, &v.AdID, &v.VideoID, &viewerID, &v.ViewerIP,
		&v.DurationWatched, &v.WasClicked, &v.RevenueEarned, &eventKey, &v.ViewedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load ad view by key: %w", err)
	}
	v.ViewerID = viewerID.String
	v.EventKey = eventKey.String
	return v, nil
}

func (r *PostgresAdViewRepository) ForgetKeysBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE ad_views SET event_key = NULL WHERE event_key IS NOT NULL AND viewed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to forget event keys: %w", err)
	}
	return result.RowsAffected()
}

type PostgresTipRepository struct {
	db *sql.DB
}

func NewPostgresTipRepository(db *sql.DB) *PostgresTipRepository {
	return &PostgresTipRepository{db: db}
}

func (r *PostgresTipRepository) Create(ctx context.Context, tip *Tip) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tips (id, video_id, from_user_id, to_user_id, amount, message, is_anonymous, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tip.ID, tip.VideoID, nullString(tip.FromUserID), tip.ToUserID, tip.Amount, tip.Message, tip.IsAnonymous, tip.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert tip: %w", err)
	}
	return nil
}

func (r *PostgresTipRepository) ListByVideo(ctx context.Context, videoID string, limit int) ([]*Tip, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, video_id, from_user_id, to_user_id, amount, message, is_anonymous, created_at
		 FROM tips WHERE video_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, videoID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tips: %w", err)
	}
	defer rows.Close()

	var tips []*Tip
	for rows.Next() {
		t := &Tip{}
		var fromUserID sql.NullString
		if err := rows.Scan(&t.ID, &t.VideoID, &fromUserID, &t.ToUserID, &t.Amount, &t.Message, &t.IsAnonymous, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tip: %w", err)
		}
		t.FromUserID = fromUserID.String
		tips = append(tips, t)
	}
	return tips, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
