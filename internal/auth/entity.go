// AngelaMos | 2026
// entity.go

package auth

import (
	"time"
)

type RefreshToken struct {
	ID           string     `db:"id"`
	UserID       string     `db:"user_id"`
	TokenHash    string     `db:"token_hash"`
	FamilyID     string     `db:"family_id"`
	ExpiresAt    time.Time  `db:"expires_at"`
	CreatedAt    time.Time  `db:"created_at"`
	IsUsed       bool       `db:"is_used"`
	UsedAt       *time.Time `db:"used_at"`
	RevokedAt    *time.Time `db:"revoked_at"`
	ReplacedByID *string    `db:"replaced_by_id"`
	UserAgent    string     `db:"user_agent"`
	IPAddress    string     `db:"ip_address"`
}

func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// Redeemable reports whether the token may be exchanged for a new pair.
func (t *RefreshToken) Redeemable(now time.Time) bool {
	return !t.IsUsed && !t.IsRevoked() && now.Before(t.ExpiresAt)
}

// UserInfo is the account view the auth flows need, supplied by the user
// package.
type UserInfo struct {
	ID              string
	Email           string
	FirstName       string
	LastName        string
	PasswordHash    string
	ProfileImageURL *string
	IsActive        bool
	IsStaff         bool
	EmailVerified   bool
	TokenVersion    int
	DateJoined      time.Time
}

type NewUser struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
}
