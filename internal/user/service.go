// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/carterperez-dev/templates/roomcraft/internal/auth"
	"github.com/carterperez-dev/templates/roomcraft/internal/core"
	"github.com/carterperez-dev/templates/roomcraft/internal/middleware"
	"github.com/carterperez-dev/templates/roomcraft/internal/storage"
)

// Service owns the users table. It satisfies auth.UserProvider and
// middleware.AccountLookup.
type Service struct {
	repo      Repository
	store     storage.Store
	sanitizer *bluemonday.Policy
	logger    *slog.Logger
}

func NewService(repo Repository, store storage.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:      repo,
		store:     store,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.toUserInfo(ctx, user), nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}

	return s.toUserInfo(ctx, user), nil
}

func (s *Service) Create(ctx context.Context, nu auth.NewUser) (*auth.UserInfo, error) {
	user := &User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(strings.TrimSpace(nu.Email)),
		PasswordHash: nu.PasswordHash,
		FirstName:    s.sanitize(nu.FirstName),
		LastName:     s.sanitize(nu.LastName),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.toUserInfo(ctx, user), nil
}

func (s *Service) IncrementTokenVersion(ctx context.Context, userID string) error {
	return s.repo.IncrementTokenVersion(ctx, userID)
}

func (s *Service) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) MarkEmailVerified(ctx context.Context, userID string) error {
	return s.repo.MarkEmailVerified(ctx, userID)
}

func (s *Service) LookupAccount(ctx context.Context, id string) (*middleware.Account, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &middleware.Account{
		ID:           user.ID,
		Email:        user.Email,
		IsActive:     user.IsActive,
		IsStaff:      user.IsStaff,
		TokenVersion: user.TokenVersion,
	}, nil
}

// UpdateProfile applies a partial update. A replaced or cleared profile
// image is removed from storage once the row no longer points at it.
func (s *Service) UpdateProfile(
	ctx context.Context,
	userID string,
	update ProfileUpdate,
) (*auth.UserResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.FirstName != nil {
		user.FirstName = s.sanitize(*update.FirstName)
	}
	if update.LastName != nil {
		user.LastName = s.sanitize(*update.LastName)
	}

	var previousImage string
	if update.ProfileImage != nil {
		key := storage.ProfileKey(update.ProfileImage.Ext)
		if _, err := s.store.Put(
			ctx,
			key,
			update.ProfileImage.Reader(),
			update.ProfileImage.MimeType,
		); err != nil {
			return nil, fmt.Errorf("store profile image: %w", err)
		}

		if user.ProfileImage != nil {
			previousImage = *user.ProfileImage
		}
		user.ProfileImage = &key
	} else if update.ClearProfileImage && user.ProfileImage != nil {
		previousImage = *user.ProfileImage
		user.ProfileImage = nil
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	if previousImage != "" {
		if err := s.store.Delete(ctx, previousImage); err != nil &&
			!errors.Is(err, core.ErrNotFound) {
			s.logger.Warn("delete previous profile image failed",
				"user_id", userID,
				"key", previousImage,
				"error", err,
			)
		}
	}

	resp := auth.ToUserResponse(s.toUserInfo(ctx, user))
	return &resp, nil
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]AdminUserResponse, int, error) {
	users, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}

	return ToAdminUserResponseList(users), total, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// sanitize strips markup from free-text profile fields. Entities produced
// by the policy are decoded so names round-trip as typed.
func (s *Service) sanitize(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(v)))
}

func (s *Service) toUserInfo(ctx context.Context, u *User) *auth.UserInfo {
	info := &auth.UserInfo{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		PasswordHash:  u.PasswordHash,
		IsActive:      u.IsActive,
		IsStaff:       u.IsStaff,
		EmailVerified: u.EmailVerified,
		TokenVersion:  u.TokenVersion,
		DateJoined:    u.DateJoined,
	}

	if u.ProfileImage != nil && *u.ProfileImage != "" {
		url, err := s.store.URL(ctx, *u.ProfileImage)
		if err != nil {
			s.logger.Warn("resolve profile image url failed",
				"user_id", u.ID,
				"error", err,
			)
		} else {
			info.ProfileImageURL = &url
		}
	}

	return info
}
