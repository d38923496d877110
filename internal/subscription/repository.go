// AngelaMos | 2026
// repository.go

package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/carterperez-dev/templates/roomcraft/internal/core"
)

type Repository interface {
	GetOrCreate(ctx context.Context, userID string) (*Subscription, error)
	ExpireIfActive(ctx context.Context, userID string, now time.Time) (bool, error)
	Save(ctx context.Context, s *Subscription) error
	CountActive(ctx context.Context) (int, error)
}

const subscriptionColumns = `user_id, product_id, active, expires_at,
	platform, updated_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) GetOrCreate(
	ctx context.Context,
	userID string,
) (*Subscription, error) {
	insert := `
		INSERT INTO user_subscriptions (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, insert, userID); err != nil {
		return nil, fmt.Errorf("ensure subscription: %w", err)
	}

	query := `SELECT ` + subscriptionColumns + `
		FROM user_subscriptions
		WHERE user_id = $1`

	var sub Subscription
	if err := r.db.GetContext(ctx, &sub, query, userID); err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	return &sub, nil
}

// ExpireIfActive flips only the active column, and only while it is still
// true, so repeated reads of a lapsed subscription write at most once.
func (r *repository) ExpireIfActive(
	ctx context.Context,
	userID string,
	now time.Time,
) (bool, error) {
	query := `
		UPDATE user_subscriptions
		SET active = false
		WHERE user_id = $1
		  AND active = true
		  AND expires_at IS NOT NULL
		  AND expires_at < $2`

	result, err := r.db.ExecContext(ctx, query, userID, now)
	if err != nil {
		return false, fmt.Errorf("expire subscription: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("expire subscription: %w", err)
	}

	return rows > 0, nil
}

func (r *repository) Save(ctx context.Context, s *Subscription) error {
	query := `
		UPDATE user_subscriptions
		SET product_id = $2, active = $3, expires_at = $4, platform = $5,
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &s.UpdatedAt, query,
		s.UserID,
		s.ProductID,
		s.Active,
		s.ExpiresAt,
		s.Platform,
	)
	if err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}

	return nil
}

func (r *repository) CountActive(ctx context.Context) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM user_subscriptions WHERE active = true`
	if err := r.db.GetContext(ctx, &n, query); err != nil {
		return 0, fmt.Errorf("count active subscriptions: %w", err)
	}
	return n, nil
}
