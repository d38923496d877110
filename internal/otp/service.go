// AngelaMos | 2026
// service.go

package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/roomcraft/internal/core"
	"github.com/carterperez-dev/templates/roomcraft/internal/notify"
)

var ErrInvalidCode = errors.New("invalid or expired code")

type Notifier interface {
	Dispatch(msg notify.Message)
}

type Service struct {
	repo     Repository
	notifier Notifier
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(
	repo Repository,
	notifier Notifier,
	ttl time.Duration,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:     repo,
		notifier: notifier,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// Issue persists a fresh code for the recipient and hands it to the
// notifier. Delivery happens asynchronously and never fails issuance.
func (s *Service) Issue(
	ctx context.Context,
	to Recipient,
	purpose Purpose,
) (*OTP, error) {
	code, err := generateCode()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	otp := &OTP{
		ID:        uuid.New().String(),
		UserID:    to.UserID,
		Code:      code,
		Purpose:   purpose,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.repo.Create(ctx, otp); err != nil {
		return nil, fmt.Errorf("issue otp: %w", err)
	}

	s.notifier.Dispatch(notify.Message{
		To:      to.Email,
		Subject: subjectFor(purpose),
		Body: fmt.Sprintf(
			"Your OTP code is: %s. It expires in %d minutes.",
			code,
			int(s.ttl.Minutes()),
		),
	})

	s.logger.Debug("otp issued",
		"user_id", to.UserID,
		"purpose", string(purpose),
	)

	return otp, nil
}

// Validate checks code against the most recent code issued to the user for
// purpose. Older codes never validate once a newer one exists, even after
// the newer one is used. It does not mutate state.
func (s *Service) Validate(
	ctx context.Context,
	userID, code string,
	purpose Purpose,
) (*OTP, error) {
	otp, err := s.repo.Latest(ctx, userID, purpose)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("validate otp: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(otp.Code), []byte(code)) != 1 {
		return nil, ErrInvalidCode
	}

	if !otp.IsValid(s.now()) {
		return nil, ErrInvalidCode
	}

	return otp, nil
}

// Consume marks the code used. Only one caller can consume a given code;
// later attempts get ErrInvalidCode.
func (s *Service) Consume(ctx context.Context, otp *OTP) error {
	marked, err := s.repo.MarkUsed(ctx, otp.ID)
	if err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	if !marked {
		return ErrInvalidCode
	}
	otp.IsUsed = true
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func subjectFor(purpose Purpose) string {
	switch purpose {
	case PurposeReset:
		return "Password reset code"
	default:
		return "Verify your email"
	}
}
