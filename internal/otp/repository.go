// AngelaMos | 2026
// repository.go

package otp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/templates/roomcraft/internal/core"
)

type Repository interface {
	Create(ctx context.Context, otp *OTP) error
	Latest(ctx context.Context, userID string, purpose Purpose) (*OTP, error)
	MarkUsed(ctx context.Context, id string) (bool, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, otp *OTP) error {
	query := `
		INSERT INTO otps (id, user_id, code, purpose, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		otp.ID,
		otp.UserID,
		otp.Code,
		otp.Purpose,
		otp.CreatedAt,
		otp.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("create otp: %w", err)
	}

	return nil
}

// Latest returns the newest code for the user and purpose, used or not.
func (r *repository) Latest(
	ctx context.Context,
	userID string,
	purpose Purpose,
) (*OTP, error) {
	query := `
		SELECT id, user_id, code, purpose, created_at, expires_at, is_used
		FROM otps
		WHERE user_id = $1 AND purpose = $2
		ORDER BY created_at DESC
		LIMIT 1`

	var otp OTP
	err := r.db.GetContext(ctx, &otp, query, userID, purpose)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest otp: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest otp: %w", err)
	}

	return &otp, nil
}

func (r *repository) MarkUsed(ctx context.Context, id string) (bool, error) {
	query := `UPDATE otps SET is_used = TRUE WHERE id = $1 AND is_used = FALSE`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("mark otp used: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark otp used: %w", err)
	}

	return rows > 0, nil
}
