// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/roomcraft/internal/core"
	"github.com/carterperez-dev/templates/roomcraft/internal/middleware"
	"github.com/carterperez-dev/templates/roomcraft/internal/otp"
)

func TestRegisterNormalizesEmailAndIssuesVerifyCode(t *testing.T) {
	env := newTestEnv(t)

	u := env.register(t, "  Ada@Example.COM ", "correct-horse")

	assert.Equal(t, "ada@example.com", u.Email)
	assert.NotEqual(t, "correct-horse", u.PasswordHash)

	code := env.otps.latest(otp.PurposeVerify)
	require.NotNil(t, code)
	assert.Equal(t, u.ID, code.UserID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ada@example.com", "correct-horse")

	err := env.service.Register(context.Background(), RegisterRequest{
		Email:    "ADA@example.com",
		Password: "another-pass",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestVerifyOTP(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.register(t, "ada@example.com", "correct-horse")
	code := env.otps.latest(otp.PurposeVerify).Code

	err := env.service.VerifyOTP(ctx, VerifyOTPRequest{Email: u.Email, Code: "000000"})
	require.ErrorIs(t, err, otp.ErrInvalidCode)

	require.NoError(t, env.service.VerifyOTP(ctx, VerifyOTPRequest{Email: u.Email, Code: code}))

	got, err := env.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailVerified)

	err = env.service.VerifyOTP(ctx, VerifyOTPRequest{Email: u.Email, Code: code})
	assert.ErrorIs(t, err, otp.ErrInvalidCode)

	err = env.service.VerifyOTP(ctx, VerifyOTPRequest{Email: "nobody@example.com", Code: code})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.register(t, "ada@example.com", "correct-horse")

	resp, err := env.service.Login(ctx, LoginRequest{
		Email:    "ADA@example.com",
		Password: "correct-horse",
	}, "test-agent", "127.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Access)
	assert.NotEmpty(t, resp.Refresh)
	assert.Equal(t, u.ID, resp.User.ID)
	assert.Equal(t, "Ada", resp.User.FirstName)

	claims, err := env.jwt.VerifyAccessToken(ctx, resp.Access)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.NotEmpty(t, claims.TokenID)

	_, err = env.service.Login(ctx, LoginRequest{
		Email:    u.Email,
		Password: "wrong-password",
	}, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.service.Login(ctx, LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct-horse",
	}, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	env.users.mutate(u.ID, func(u *UserInfo) { u.IsActive = false })
	_, err = env.service.Login(ctx, LoginRequest{
		Email:    u.Email,
		Password: "correct-horse",
	}, "", "")
	assert.ErrorIs(t, err, ErrInactiveAccount)
}

func TestRefreshRotatesAndDetectsReuse(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.register(t, "ada@example.com", "correct-horse")

	login, err := env.service.Login(ctx, LoginRequest{
		Email:    u.Email,
		Password: "correct-horse",
	}, "", "")
	require.NoError(t, err)

	rotated, err := env.service.Refresh(ctx, login.Refresh, "", "")
	require.NoError(t, err)
	assert.NotEqual(t, login.Refresh, rotated.Refresh)

	original, err := env.tokens.FindByHash(ctx, core.HashToken(login.Refresh))
	require.NoError(t, err)
	assert.True(t, original.IsUsed)

	_, err = env.service.Refresh(ctx, login.Refresh, "", "")
	require.ErrorIs(t, err, ErrTokenReuse)
	assert.Equal(t, 2, env.tokens.revokedCount(original.FamilyID))

	_, err = env.service.Refresh(ctx, rotated.Refresh, "", "")
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestRefreshUnknownAndExpired(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.register(t, "ada@example.com", "correct-horse")

	_, err := env.service.Refresh(ctx, "not-a-token", "", "")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)

	login, err := env.service.Login(ctx, LoginRequest{
		Email:    u.Email,
		Password: "correct-horse",
	}, "", "")
	require.NoError(t, err)

	env.service.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	_, err = env.service.Refresh(ctx, login.Refresh, "", "")
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestLogoutRevokesRefreshAndBlacklistsAccess(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.register(t, "ada@example.com", "correct-horse")

	login, err := env.service.Login(ctx, LoginRequest{
		Email:    u.Email,
		Password: "correct-horse",
	}, "", "")
	require.NoError(t, err)

	claims, err := env.jwt.VerifyAccessToken(ctx, login.Access)
	require.NoError(t, err)

	principal := &middleware.Principal{
		UserID:         u.ID,
		TokenID:        claims.TokenID,
		TokenExpiresAt: claims.ExpiresAt,
	}
	require.NoError(t, env.service.Logout(ctx, principal, login.Refresh))

	blacklisted, err := env.service.IsAccessTokenBlacklisted(ctx, claims.TokenID)
	require.NoError(t, err)
	assert.True(t, blacklisted)
	assert.Greater(t, env.redis.TTL(blacklistPrefix+claims.TokenID), time.Duration(0))

	_, err = env.service.Refresh(ctx, login.Refresh, "", "")
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestLogoutRejectsForeignRefreshToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.register(t, "ada@example.com", "correct-horse")
	env.register(t, "bob@example.com", "correct-horse")

	login, err := env.service.Login(ctx, LoginRequest{
		Email:    owner.Email,
		Password: "correct-horse",
	}, "", "")
	require.NoError(t, err)

	other, err := env.users.GetByEmail(ctx, "bob@example.com")
	require.NoError(t, err)

	err = env.service.Logout(ctx, &middleware.Principal{UserID: other.ID}, login.Refresh)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestForgotAndResetPassword(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.register(t, "ada@example.com", "correct-horse")

	env.service.ForgotPassword(ctx, ForgotPasswordRequest{Email: "nobody@example.com"})
	assert.Nil(t, env.otps.latest(otp.PurposeReset))

	env.service.ForgotPassword(ctx, ForgotPasswordRequest{Email: u.Email})
	reset := env.otps.latest(otp.PurposeReset)
	require.NotNil(t, reset)

	err := env.service.ResetPassword(ctx, ResetPasswordRequest{
		Email:       u.Email,
		Code:        "999999",
		NewPassword: "battery-staple",
	})
	require.ErrorIs(t, err, ErrInvalidResetCode)

	err = env.service.ResetPassword(ctx, ResetPasswordRequest{
		Email:       "nobody@example.com",
		Code:        reset.Code,
		NewPassword: "battery-staple",
	})
	require.ErrorIs(t, err, ErrInvalidResetCode)

	require.NoError(t, env.service.ResetPassword(ctx, ResetPasswordRequest{
		Email:       u.Email,
		Code:        reset.Code,
		NewPassword: "battery-staple",
	}))

	got, err := env.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.TokenVersion+1, got.TokenVersion)

	_, err = env.service.Login(ctx, LoginRequest{Email: u.Email, Password: "battery-staple"}, "", "")
	assert.NoError(t, err)
}

func TestResetCodesAreSingleUseAndSuperseded(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.register(t, "ada@example.com", "correct-horse")

	env.service.ForgotPassword(ctx, ForgotPasswordRequest{Email: u.Email})
	older := env.otps.latest(otp.PurposeReset)
	require.NotNil(t, older)

	env.service.ForgotPassword(ctx, ForgotPasswordRequest{Email: u.Email})
	newer := env.otps.latest(otp.PurposeReset)
	require.NotNil(t, newer)
	require.NotEqual(t, older.Code, newer.Code)

	require.NoError(t, env.service.ResetPassword(ctx, ResetPasswordRequest{
		Email:       u.Email,
		Code:        newer.Code,
		NewPassword: "battery-staple",
	}))

	for _, code := range []string{newer.Code, older.Code} {
		err := env.service.ResetPassword(ctx, ResetPasswordRequest{
			Email:       u.Email,
			Code:        code,
			NewPassword: "another-secret",
		})
		assert.ErrorIs(t, err, ErrInvalidResetCode)
	}

	_, err := env.service.Login(ctx, LoginRequest{Email: u.Email, Password: "battery-staple"}, "", "")
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.register(t, "ada@example.com", "correct-horse")

	err := env.service.ChangePassword(ctx, u.ID, ChangePasswordRequest{
		OldPassword: "nope-nope",
		NewPassword: "battery-staple",
	})
	require.ErrorIs(t, err, ErrWrongPassword)

	require.NoError(t, env.service.ChangePassword(ctx, u.ID, ChangePasswordRequest{
		OldPassword: "correct-horse",
		NewPassword: "battery-staple",
	}))

	_, err = env.service.Login(ctx, LoginRequest{Email: u.Email, Password: "correct-horse"}, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPruneRefreshTokens(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.tokens.Create(ctx, &RefreshToken{
		ID:        "old",
		ExpiresAt: time.Now().Add(-72 * time.Hour),
	}))
	require.NoError(t, env.tokens.Create(ctx, &RefreshToken{
		ID:        "fresh",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	n, err := env.service.PruneRefreshTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
