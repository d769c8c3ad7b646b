package ads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const campaignColumns = `id, name, advertiser, budget, cost_per_view, cost_per_click, is_active, start_date, end_date, created_at`

const adColumns = `id, campaign_id, title, ad_type, image_url, video_url, click_url, duration, is_active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*Campaign, error) {
	c := &Campaign{}
	err := row.Scan(&c.ID, &c.Name, &c.Advertiser, &c.Budget, &c.CostPerView, &c.CostPerClick,
		&c.IsActive, &c.StartDate, &c.EndDate, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func scanAd(row rowScanner) (*Ad, error) {
	ad := &Ad{}
	var adType string
	err := row.Scan(&ad.ID, &ad.CampaignID, &ad.Title, &adType, &ad.ImageURL, &ad.VideoURL,
		&ad.ClickURL, &ad.Duration, &ad.IsActive, &ad.CreatedAt)
	if err != nil {
		return nil, err
	}
	ad.Type = AdType(adType)
	return ad, nil
}

func (r *PostgresRepository) CreateCampaign(ctx context.Context, c *Campaign) error {
	query := `INSERT INTO ad_campaigns (` + campaignColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.Advertiser, c.Budget, c.CostPerView, c.CostPerClick,
		c.IsActive, c.StartDate, c.EndDate, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert campaign: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM ad_campaigns WHERE id = $1`, id)
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign %s: %w", id, err)
	}
	return c, nil
}

func (r *PostgresRepository) GetCampaignByName(ctx context.Context, name string) (*Campaign, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM ad_campaigns WHERE name = $1 ORDER BY created_at LIMIT 1`, name)
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign by name: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) CreateAd(ctx context.Context, ad *Ad) error {
	query := `INSERT INTO ads (` + adColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query, ad.ID, ad.CampaignID, ad.Title, string(ad.Type), ad.ImageURL, ad.VideoURL,
		ad.ClickURL, ad.Duration, ad.IsActive, ad.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ad: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetAd(ctx context.Context, id string) (*Ad, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+adColumns+` FROM ads WHERE id = $1`, id)
	ad, err := scanAd(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAdNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ad %s: %w", id, err)
	}
	return ad, nil
}

func (r *PostgresRepository) ListAdsByCampaign(ctx context.Context, campaignID string) ([]*Ad, error) {
	return r.queryAds(ctx, `SELECT `+adColumns+` FROM ads WHERE campaign_id = $1 ORDER BY created_at, id`, campaignID)
}

func (r *PostgresRepository) ListActiveAds(ctx context.Context, now time.Time) ([]*Ad, error) {
	query := `SELECT a.id, a.campaign_id, a.title, a.ad_type, a.image_url, a.video_url, a.click_url, a.duration, a.is_active, a.created_at
			  FROM ads a
			  JOIN ad_campaigns c ON c.id = a.campaign_id
			  WHERE a.is_active AND c.is_active AND c.start_date <= $1 AND c.end_date >= $1
			  ORDER BY a.created_at, a.id`
	return r.queryAds(ctx, query, now)
}

func (r *PostgresRepository) queryAds(ctx context.Context, query string, args ...any) ([]*Ad, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ads: %w", err)
	}
	defer rows.Close()

	var result []*Ad
	for rows.Next() {
		ad, err := scanAd(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ad)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) ReplacePlacements(ctx context.Context, videoID string, placements []*Placement) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM video_ads WHERE video_id = $1`, videoID); err != nil {
		return fmt.Errorf("failed to clear placements: %w", err)
	}

	for _, p := range placements {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO video_ads (video_id, ad_id, position, is_active, created_at) VALUES ($1, $2, $3, $4, $5)`,
			p.VideoID, p.AdID, p.Position, p.IsActive, p.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert placement at %d: %w", p.Position, err)
		}
	}

	return tx.Commit()
}

func (r *PostgresRepository) ListPlacements(ctx context.Context, videoID string) ([]*Placement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT video_id, ad_id, position, is_active, created_at FROM video_ads WHERE video_id = $1 ORDER BY position`,
		videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query placements: %w", err)
	}
	defer rows.Close()

	result := make([]*Placement, 0)
	for rows.Next() {
		p := &Placement{}
		if err := rows.Scan(&p.VideoID, &p.AdID, &p.Position, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
