package earnings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/videostream/videostream_server/internal/ledger"
)

const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

const earningsColumns = `creator_id, total_earned, total_paid, pending_amount, last_payment_date, updated_at, version`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEarnings(row rowScanner) (*CreatorEarnings, error) {
	e := &CreatorEarnings{}
	var lastPayment sql.NullTime
	err := row.Scan(&e.CreatorID, &e.TotalEarned, &e.TotalPaid, &e.PendingAmount, &lastPayment, &e.UpdatedAt, &e.Version)
	if err != nil {
		return nil, err
	}
	if lastPayment.Valid {
		t := lastPayment.Time
		e.LastPaymentAt = &t
	}
	return e, nil
}

// classify turns Postgres concurrency failures into ErrConflict so the
// aggregator can retry them.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqSerializationFailure, pqDeadlockDetected:
			return fmt.Errorf("%w: %s", ErrConflict, pqErr.Message)
		}
	}
	return err
}

func (r *PostgresRepository) ensureAccount(ctx context.Context, tx *sql.Tx, creatorID string, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO creator_earnings (creator_id, total_earned, total_paid, pending_amount, updated_at, version)
		 VALUES ($1, 0, 0, 0, $2, 0)
		 ON CONFLICT (creator_id) DO NOTHING`,
		creatorID, at)
	return err
}

func (r *PostgresRepository) Credit(ctx context.Context, rev *Revenue) (*CreatorEarnings, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.ensureAccount(ctx, tx, rev.CreatorID, rev.CreatedAt); err != nil {
		return nil, classify(fmt.Errorf("failed to create earnings row: %w", err))
	}

	videoID := sql.NullString{String: rev.VideoID, Valid: rev.VideoID != ""}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO revenues (id, creator_id, video_id, revenue_type, amount, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rev.ID, rev.CreatorID, videoID, string(rev.Type), rev.Amount, rev.Description, rev.CreatedAt)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to insert revenue: %w", err))
	}

	// The UPDATE holds the row lock until commit, so concurrent credits for
	// the same creator apply one after another.
	row := tx.QueryRowContext(ctx,
		`UPDATE creator_earnings
		 SET total_earned = total_earned + $2, pending_amount = pending_amount + $2, updated_at = $3, version = version + 1
		 WHERE creator_id = $1
		 RETURNING `+earningsColumns,
		rev.CreatorID, rev.Amount, rev.CreatedAt)
	snapshot, err := scanEarnings(row)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to update earnings: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, classify(fmt.Errorf("failed to commit credit: %w", err))
	}
	return snapshot, nil
}

func (r *PostgresRepository) Payout(ctx context.Context, creatorID string, amount decimal.Decimal, at time.Time) (*CreatorEarnings, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := scanEarnings(tx.QueryRowContext(ctx,
		`SELECT `+earningsColumns+` FROM creator_earnings WHERE creator_id = $1 FOR UPDATE`, creatorID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInsufficientPending
	}
	if err != nil {
		return nil, classify(fmt.Errorf("failed to lock earnings: %w", err))
	}
	if current.PendingAmount.LessThan(amount) {
		return nil, ErrInsufficientPending
	}

	snapshot, err := scanEarnings(tx.QueryRowContext(ctx,
		`UPDATE creator_earnings
		 SET total_paid = total_paid + $2, pending_amount = pending_amount - $2, last_payment_date = $3, updated_at = $3, version = version + 1
		 WHERE creator_id = $1
		 RETURNING `+earningsColumns,
		creatorID, amount, at))
	if err != nil {
		return nil, classify(fmt.Errorf("failed to record payout: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, classify(fmt.Errorf("failed to commit payout: %w", err))
	}
	return snapshot, nil
}

func (r *PostgresRepository) Get(ctx context.Context, creatorID string) (*CreatorEarnings, error) {
	e, err := scanEarnings(r.db.QueryRowContext(ctx,
		`SELECT `+earningsColumns+` FROM creator_earnings WHERE creator_id = $1`, creatorID))
	if errors.Is(err, sql.ErrNoRows) {
		return emptyEarnings(creatorID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get earnings: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) RecentRevenue(ctx context.Context, creatorID string, limit int) ([]*Revenue, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, creator_id, video_id, revenue_type, amount, description, created_at
		 FROM revenues WHERE creator_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2`,
		creatorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query revenue: %w", err)
	}
	defer rows.Close()

	result := make([]*Revenue, 0, limit)
	for rows.Next() {
		rev := &Revenue{}
		var videoID sql.NullString
		var revenueType string
		if err := rows.Scan(&rev.ID, &rev.CreatorID, &videoID, &revenueType, &rev.Amount, &rev.Description, &rev.CreatedAt); err != nil {
			return nil, err
		}
		rev.VideoID = videoID.String
		rev.Type = ledger.RevenueType(revenueType)
		result = append(result, rev)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) TotalsByType(ctx context.Context, creatorID string) ([]TypeTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT revenue_type, SUM(amount) FROM revenues WHERE creator_id = $1
		 GROUP BY revenue_type ORDER BY revenue_type`,
		creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query revenue totals: %w", err)
	}
	defer rows.Close()

	result := make([]TypeTotal, 0)
	for rows.Next() {
		var revenueType string
		var total decimal.Decimal
		if err := rows.Scan(&revenueType, &total); err != nil {
			return nil, err
		}
		result = append(result, TypeTotal{Type: ledger.RevenueType(revenueType), Total: total})
	}
	return result, rows.Err()
}

func (r *PostgresRepository) TotalBetween(ctx context.Context, creatorID string, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM revenues
		 WHERE creator_id = $1 AND created_at >= $2 AND created_at < $3`,
		creatorID, from, to).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return total, nil
}
