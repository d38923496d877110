// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/carterperez-dev/templates/roomcraft/internal/core"
)

type TokenVerifier interface {
	VerifyAccessToken(
		ctx context.Context,
		token string,
	) (*AccessTokenClaims, error)
}

type AccessTokenClaims struct {
	UserID       string
	IsStaff      bool
	TokenVersion int
	TokenID      string
	ExpiresAt    time.Time
}

type RevocationChecker interface {
	IsAccessTokenBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Account is the slice of user state a capability check needs.
type Account struct {
	ID           string
	Email        string
	IsActive     bool
	IsStaff      bool
	TokenVersion int
}

type AccountLookup interface {
	LookupAccount(ctx context.Context, id string) (*Account, error)
}

// Principal is the authenticated caller handed to a handler once its
// capability check passes.
type Principal struct {
	UserID         string
	Email          string
	IsStaff        bool
	TokenID        string
	TokenExpiresAt time.Time
}

// Guard performs explicit capability checks. Handlers call it first thing
// instead of relying on router-level authentication.
type Guard struct {
	verifier    TokenVerifier
	revocations RevocationChecker
	accounts    AccountLookup
}

func NewGuard(
	verifier TokenVerifier,
	revocations RevocationChecker,
	accounts AccountLookup,
) *Guard {
	return &Guard{
		verifier:    verifier,
		revocations: revocations,
		accounts:    accounts,
	}
}

func (g *Guard) RequireUser(r *http.Request) (*Principal, error) {
	ctx := r.Context()

	token := ExtractToken(r)
	if token == "" {
		return nil, core.UnauthorizedError("missing authorization token")
	}

	claims, err := g.verifier.VerifyAccessToken(ctx, token)
	if err != nil {
		return nil, tokenError(err)
	}

	if g.revocations != nil && claims.TokenID != "" {
		revoked, revErr := g.revocations.IsAccessTokenBlacklisted(ctx, claims.TokenID)
		if revErr != nil {
			return nil, fmt.Errorf("check token revocation: %w", revErr)
		}
		if revoked {
			return nil, core.TokenRevokedError()
		}
	}

	account, err := g.accounts.LookupAccount(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.UnauthorizedError("account no longer exists")
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if claims.TokenVersion < account.TokenVersion {
		return nil, core.TokenRevokedError()
	}

	if !account.IsActive {
		return nil, core.ForbiddenError("account is inactive")
	}

	return &Principal{
		UserID:         account.ID,
		Email:          account.Email,
		IsStaff:        account.IsStaff,
		TokenID:        claims.TokenID,
		TokenExpiresAt: claims.ExpiresAt,
	}, nil
}

func (g *Guard) RequireStaff(r *http.Request) (*Principal, error) {
	principal, err := g.RequireUser(r)
	if err != nil {
		return nil, err
	}

	if !principal.IsStaff {
		return nil, core.ForbiddenError("staff access required")
	}

	return principal, nil
}

func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// WriteAuthError renders the result of a failed capability check.
func WriteAuthError(w http.ResponseWriter, err error) {
	core.JSONError(w, err)
}

func tokenError(err error) error {
	if core.IsAppError(err) {
		return err
	}

	switch {
	case errors.Is(err, core.ErrTokenExpired):
		return core.TokenExpiredError()
	case errors.Is(err, core.ErrTokenRevoked):
		return core.TokenRevokedError()
	default:
		return core.TokenInvalidError()
	}
}
