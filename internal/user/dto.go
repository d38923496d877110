// AngelaMos | 2026
// dto.go

package user

import (
	"bytes"
	"errors"
	"time"

	"github.com/carterperez-dev/templates/roomcraft/internal/storage"
)

// ProfileUpdate is a partial update; nil fields are left untouched.
// ClearProfileImage removes the current image when no new one is given.
type ProfileUpdate struct {
	FirstName         *string
	LastName          *string
	ProfileImage      *storage.Image
	ClearProfileImage bool
}

type UpdateProfileJSON struct {
	FirstName    *string      `json:"first_name"    validate:"omitempty,max=150"`
	LastName     *string      `json:"last_name"     validate:"omitempty,max=150"`
	ProfileImage ImageRemoval `json:"profile_image"`
}

var errImageInJSON = errors.New("profile_image only accepts null in JSON, upload files as multipart")

// ImageRemoval is set when a JSON body carries profile_image as null or "".
type ImageRemoval struct {
	Requested bool
}

func (i *ImageRemoval) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "null", `""`:
		i.Requested = true
		return nil
	default:
		return errImageInJSON
	}
}

type AdminUserResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	IsActive      bool      `json:"is_active"`
	IsStaff       bool      `json:"is_staff"`
	EmailVerified bool      `json:"email_verified"`
	DateJoined    time.Time `json:"date_joined"`
}

type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToAdminUserResponse(u *User) AdminUserResponse {
	return AdminUserResponse{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		IsActive:      u.IsActive,
		IsStaff:       u.IsStaff,
		EmailVerified: u.EmailVerified,
		DateJoined:    u.DateJoined,
	}
}

func ToAdminUserResponseList(users []User) []AdminUserResponse {
	responses := make([]AdminUserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, ToAdminUserResponse(&users[i]))
	}
	return responses
}
