// AngelaMos | 2026
// service.go

package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var ErrInvalidPlatform = errors.New("invalid platform")

type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the caller's subscription, creating an empty one on first
// access. A lapsed active subscription is switched off in place.
func (s *Service) Get(ctx context.Context, userID string) (*Response, error) {
	sub, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if sub.Lapsed(now) {
		expired, err := s.repo.ExpireIfActive(ctx, userID, now)
		if err != nil {
			return nil, err
		}
		if expired {
			s.logger.Info("subscription lapsed", "user_id", userID)
		}
		sub.Active = false
	}

	resp := ToResponse(sub)
	return &resp, nil
}

// Sync stores what the client reports. Omitted product_id and platform keep
// their stored values; expires_at is replaced when present, null clears it.
func (s *Service) Sync(
	ctx context.Context,
	userID string,
	req SyncRequest,
) (*Response, error) {
	if req.Platform.Value != nil && !validPlatform(*req.Platform.Value) {
		return nil, ErrInvalidPlatform
	}

	sub, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	sub.Active = *req.Active

	if req.ProductID.Set && req.ProductID.Value != nil {
		sub.ProductID = *req.ProductID.Value
	}

	if req.Platform.Set {
		sub.Platform = ""
		if req.Platform.Value != nil {
			sub.Platform = *req.Platform.Value
		}
	}

	if req.ExpiresAt.Set {
		sub.ExpiresAt = req.ExpiresAt.Value
	}

	if err := s.repo.Save(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("subscription synced",
		"user_id", userID,
		"active", sub.Active,
		"platform", sub.Platform,
	)

	resp := ToResponse(sub)
	return &resp, nil
}

func (s *Service) CountActive(ctx context.Context) (int, error) {
	return s.repo.CountActive(ctx)
}

func validPlatform(p string) bool {
	return p == PlatformAndroid || p == PlatformIOS
}
