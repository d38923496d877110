// AngelaMos | 2026
// repository.go

package redesign

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/templates/roomcraft/internal/core"
)

// ErrInvalidTransition is returned when a guarded status update finds the
// job outside the state it expects.
var ErrInvalidTransition = errors.New("invalid redesign status transition")

type Repository interface {
	CreateProcessing(ctx context.Context, r *Redesign) error
	Complete(ctx context.Context, id, resultImage, resultBase64 string) error
	Fail(ctx context.Context, id string) error
	FailStale(ctx context.Context, userID string, before time.Time) (int64, error)
	History(ctx context.Context, userID string) ([]Redesign, error)
	List(ctx context.Context, params ListParams) ([]Redesign, int, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

const redesignColumns = `id, user_id, original_image, style_choice, prompt,
	result_image, result_base64, status, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// CreateProcessing records the job as pending and moves it to processing
// in the same transaction.
func (r *repository) CreateProcessing(ctx context.Context, job *Redesign) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		insert := `
			INSERT INTO room_redesigns (
				id, user_id, original_image, style_choice, prompt, status
			) VALUES ($1, $2, $3, $4, $5, 'pending')
			RETURNING created_at`

		if err := tx.GetContext(ctx, &job.CreatedAt, insert,
			job.ID,
			job.UserID,
			job.OriginalImage,
			job.StyleChoice,
			job.Prompt,
		); err != nil {
			return fmt.Errorf("insert redesign: %w", err)
		}

		transition := `
			UPDATE room_redesigns
			SET status = 'processing', updated_at = NOW()
			WHERE id = $1 AND status = 'pending'
			RETURNING updated_at`

		if err := tx.GetContext(ctx, &job.UpdatedAt, transition, job.ID); err != nil {
			return fmt.Errorf("start redesign: %w", err)
		}

		job.Status = StatusProcessing
		return nil
	})
}

func (r *repository) Complete(
	ctx context.Context,
	id, resultImage, resultBase64 string,
) error {
	query := `
		UPDATE room_redesigns
		SET result_image = $2, result_base64 = $3, status = 'completed',
		    updated_at = NOW()
		WHERE id = $1 AND status = 'processing'`

	return r.transition(ctx, "complete redesign", query, id, resultImage, resultBase64)
}

func (r *repository) Fail(ctx context.Context, id string) error {
	query := `
		UPDATE room_redesigns
		SET status = 'failed', updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'processing')`

	return r.transition(ctx, "fail redesign", query, id)
}

func (r *repository) FailStale(
	ctx context.Context,
	userID string,
	before time.Time,
) (int64, error) {
	query := `
		UPDATE room_redesigns
		SET status = 'failed', updated_at = NOW()
		WHERE user_id = $1
		  AND status IN ('pending', 'processing')
		  AND updated_at < $2`

	result, err := r.db.ExecContext(ctx, query, userID, before)
	if err != nil {
		return 0, fmt.Errorf("fail stale redesigns: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("fail stale redesigns: %w", err)
	}

	return rows, nil
}

func (r *repository) History(ctx context.Context, userID string) ([]Redesign, error) {
	query := `SELECT ` + redesignColumns + `
		FROM room_redesigns
		WHERE user_id = $1
		ORDER BY created_at DESC`

	var items []Redesign
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("redesign history: %w", err)
	}

	return items, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Redesign, int, error) {
	params.Normalize()

	var (
		conditions []string
		args       []any
	)

	if params.Status != "" {
		args = append(args, params.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.Style != "" {
		args = append(args, params.Style)
		conditions = append(conditions, fmt.Sprintf("style_choice = $%d", len(args)))
	}

	whereClause := "TRUE"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM room_redesigns WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count redesigns: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM room_redesigns
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		redesignColumns, whereClause, len(args)+1, len(args)+2)

	args = append(args, params.PageSize, params.Offset())

	var items []Redesign
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list redesigns: %w", err)
	}

	return items, total, nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT status, COUNT(*) FROM room_redesigns GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count redesigns by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int, 4)
	for rows.Next() {
		var (
			status Status
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan redesign count: %w", err)
		}
		counts[status] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count redesigns by status: %w", err)
	}

	return counts, nil
}

func (r *repository) transition(
	ctx context.Context,
	op, query string,
	args ...any,
) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, ErrInvalidTransition)
	}

	return nil
}
