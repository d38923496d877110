// AngelaMos | 2026
// entity.go

package otp

import (
	"time"
)

type Purpose string

const (
	PurposeVerify Purpose = "verify"
	PurposeReset  Purpose = "reset"
)

type OTP struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Code      string    `db:"code"`
	Purpose   Purpose   `db:"purpose"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
	IsUsed    bool      `db:"is_used"`
}

// IsValid reports whether the code can still be redeemed at now. The
// expiry instant itself is inclusive.
func (o *OTP) IsValid(now time.Time) bool {
	return !o.IsUsed && !now.After(o.ExpiresAt)
}

// Recipient identifies who a code is issued to.
type Recipient struct {
	UserID string
	Email  string
}
