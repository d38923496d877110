// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/templates/roomcraft/internal/core"
	"github.com/carterperez-dev/templates/roomcraft/internal/middleware"
	"github.com/carterperez-dev/templates/roomcraft/internal/otp"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrWrongPassword      = errors.New("old password is incorrect")
	ErrInvalidResetCode   = errors.New("invalid email or code")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrEmailExists        = errors.New("email already exists")
)

const blacklistPrefix = "blacklist:"

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(ctx context.Context, u NewUser) (*UserInfo, error)
	IncrementTokenVersion(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	MarkEmailVerified(ctx context.Context, userID string) error
}

type OTPLedger interface {
	Issue(ctx context.Context, to otp.Recipient, purpose otp.Purpose) (*otp.OTP, error)
	Validate(ctx context.Context, userID, code string, purpose otp.Purpose) (*otp.OTP, error)
	Consume(ctx context.Context, o *otp.OTP) error
}

type TokenIssuer interface {
	CreateAccessToken(claims AccessTokenClaims) (*IssuedAccessToken, error)
	CreateRefreshToken(familyID string) (*RefreshTokenData, error)
}

type Service struct {
	repo   Repository
	tokens TokenIssuer
	users  UserProvider
	otps   OTPLedger
	redis  *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

func NewService(
	repo Repository,
	tokens TokenIssuer,
	users UserProvider,
	otps OTPLedger,
	redisClient *redis.Client,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:   repo,
		tokens: tokens,
		users:  users,
		otps:   otps,
		redis:  redisClient,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) error {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, NewUser{
		Email:        normalizeEmail(req.Email),
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return ErrEmailExists
		}
		return fmt.Errorf("create user: %w", err)
	}

	if _, err := s.otps.Issue(ctx, recipient(user), otp.PurposeVerify); err != nil {
		return fmt.Errorf("issue verify code: %w", err)
	}

	return nil
}

func (s *Service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return fmt.Errorf("verify otp: %w", err)
	}

	code, err := s.otps.Validate(ctx, user.ID, req.Code, otp.PurposeVerify)
	if err != nil {
		return fmt.Errorf("verify otp: %w", err)
	}

	if err := s.otps.Consume(ctx, code); err != nil {
		return fmt.Errorf("verify otp: %w", err)
	}

	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		return fmt.Errorf("verify otp: %w", err)
	}

	return nil
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	userAgent, ipAddress string,
) (*LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // always burn a verification to keep timing flat
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&user.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrInactiveAccount
	}

	if newHash != "" {
		if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
			s.logger.Warn("password rehash failed", "user_id", user.ID, "error", err)
		}
	}

	pair, err := s.issueTokens(ctx, user, userAgent, ipAddress, "", uuid.New().String())
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		Access:  pair.Access,
		Refresh: pair.Refresh,
		User:    ToUserResponse(user),
	}, nil
}

// Refresh rotates a refresh token. Presenting an already rotated token
// revokes its whole family.
func (s *Service) Refresh(
	ctx context.Context,
	refreshToken, userAgent, ipAddress string,
) (*TokenPair, error) {
	stored, err := s.repo.FindByHash(ctx, core.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("find token: %w", err)
	}

	if stored.IsUsed {
		return nil, s.revokeFamily(ctx, stored.FamilyID)
	}

	if !stored.Redeemable(s.now()) {
		if stored.IsRevoked() {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
		}
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !user.IsActive {
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
	}

	// Claim the old token first so concurrent redemptions cannot both win.
	newTokenID := uuid.New().String()
	if err := s.repo.MarkAsUsed(ctx, stored.ID, newTokenID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, s.revokeFamily(ctx, stored.FamilyID)
		}
		return nil, fmt.Errorf("mark token used: %w", err)
	}

	return s.issueTokens(ctx, user, userAgent, ipAddress, stored.FamilyID, newTokenID)
}

// Logout revokes the presented refresh token, if any, and blacklists the
// access token used for the call until it would have expired anyway.
func (s *Service) Logout(
	ctx context.Context,
	principal *middleware.Principal,
	refreshToken string,
) error {
	if refreshToken != "" {
		stored, err := s.repo.FindByHash(ctx, core.HashToken(refreshToken))
		switch {
		case errors.Is(err, core.ErrNotFound):
		case err != nil:
			return fmt.Errorf("find token: %w", err)
		case stored.UserID != principal.UserID:
			return fmt.Errorf("logout: %w", core.ErrForbidden)
		default:
			if err := s.repo.RevokeByID(ctx, stored.ID); err != nil &&
				!errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("revoke token: %w", err)
			}
		}
	}

	return s.RevokeAccessToken(ctx, principal.TokenID, principal.TokenExpiresAt)
}

// ForgotPassword issues a reset code when the account exists. Callers get
// no signal either way.
func (s *Service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			s.logger.Error("forgot password lookup failed", "error", err)
		}
		return
	}

	if _, err := s.otps.Issue(ctx, recipient(user), otp.PurposeReset); err != nil {
		s.logger.Error("issue reset code failed", "user_id", user.ID, "error", err)
	}
}

func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrInvalidResetCode
		}
		return fmt.Errorf("get user: %w", err)
	}

	code, err := s.otps.Validate(ctx, user.ID, req.Code, otp.PurposeReset)
	if err != nil {
		if errors.Is(err, otp.ErrInvalidCode) {
			return ErrInvalidResetCode
		}
		return fmt.Errorf("validate reset code: %w", err)
	}

	newHash, err := core.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.otps.Consume(ctx, code); err != nil {
		if errors.Is(err, otp.ErrInvalidCode) {
			return ErrInvalidResetCode
		}
		return fmt.Errorf("consume reset code: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return s.LogoutAll(ctx, user.ID)
}

func (s *Service) ChangePassword(
	ctx context.Context,
	userID string,
	req ChangePasswordRequest,
) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	valid, err := core.VerifyPassword(req.OldPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return ErrWrongPassword
	}

	newHash, err := core.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return s.LogoutAll(ctx, userID)
}

func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := s.repo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke all tokens: %w", err)
	}

	if err := s.users.IncrementTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}

	return nil
}

func (s *Service) RevokeAccessToken(
	ctx context.Context,
	jti string,
	expiresAt time.Time,
) error {
	ttl := expiresAt.Sub(s.now())
	if jti == "" || ttl <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, blacklistPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}

	return nil
}

func (s *Service) IsAccessTokenBlacklisted(
	ctx context.Context,
	jti string,
) (bool, error) {
	exists, err := s.redis.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}

	return exists > 0, nil
}

// PruneRefreshTokens drops refresh tokens that expired more than a day ago.
func (s *Service) PruneRefreshTokens(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now().Add(-24*time.Hour))
}

func (s *Service) issueTokens(
	ctx context.Context,
	user *UserInfo,
	userAgent, ipAddress, familyID, tokenID string,
) (*TokenPair, error) {
	access, err := s.tokens.CreateAccessToken(AccessTokenClaims{
		UserID:       user.ID,
		IsStaff:      user.IsStaff,
		TokenVersion: user.TokenVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refreshData, err := s.tokens.CreateRefreshToken(familyID)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	if err := s.repo.Create(ctx, &RefreshToken{
		ID:        tokenID,
		UserID:    user.ID,
		TokenHash: refreshData.Hash,
		FamilyID:  refreshData.FamilyID,
		ExpiresAt: refreshData.ExpiresAt,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{
		Access:  access.Token,
		Refresh: refreshData.Token,
	}, nil
}

func (s *Service) revokeFamily(ctx context.Context, familyID string) error {
	if err := s.repo.RevokeByFamilyID(ctx, familyID); err != nil {
		s.logger.Error("revoke token family failed",
			"family_id", familyID,
			"error", err,
		)
	}
	return ErrTokenReuse
}

func recipient(u *UserInfo) otp.Recipient {
	return otp.Recipient{UserID: u.ID, Email: u.Email}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
