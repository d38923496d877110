// AngelaMos | 2026
// entity.go

package subscription

import (
	"time"
)

const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)

type Subscription struct {
	UserID    string     `db:"user_id"`
	ProductID string     `db:"product_id"`
	Active    bool       `db:"active"`
	ExpiresAt *time.Time `db:"expires_at"`
	Platform  string     `db:"platform"`
	UpdatedAt time.Time  `db:"updated_at"`
}

// Lapsed reports whether an active subscription has passed its expiry.
func (s *Subscription) Lapsed(now time.Time) bool {
	return s.Active && s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}
