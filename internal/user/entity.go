// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

type User struct {
	ID            string    `db:"id"`
	Email         string    `db:"email"`
	PasswordHash  string    `db:"password_hash"`
	FirstName     string    `db:"first_name"`
	LastName      string    `db:"last_name"`
	ProfileImage  *string   `db:"profile_image"`
	IsActive      bool      `db:"is_active"`
	IsStaff       bool      `db:"is_staff"`
	EmailVerified bool      `db:"email_verified"`
	TokenVersion  int       `db:"token_version"`
	DateJoined    time.Time `db:"date_joined"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
