// AngelaMos | 2026
// dto.go

package redesign

import (
	"time"
)

type Response struct {
	ID           string    `json:"id"`
	StyleChoice  Style     `json:"style_choice"`
	ResultImage  *string   `json:"result_image"`
	ResultBase64 string    `json:"result_base64"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// GuestPayload describes a guest generation. Nothing about it is persisted
// beyond the result file.
type GuestPayload struct {
	ID           string    `json:"id"`
	StyleChoice  Style     `json:"style_choice"`
	Prompt       string    `json:"prompt"`
	Status       Status    `json:"status"`
	ResultImage  string    `json:"result_image"`
	ResultBase64 string    `json:"result_base64"`
	CreatedAt    time.Time `json:"created_at"`
}

type AdminResponse struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	StyleChoice   Style     `json:"style_choice"`
	Status        Status    `json:"status"`
	OriginalImage string    `json:"original_image"`
	ResultImage   *string   `json:"result_image"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ListParams struct {
	Page     int
	PageSize int
	Status   Status
	Style    Style
}

func (p *ListParams) Normalize() {
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

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToAdminResponse(r *Redesign) AdminResponse {
	return AdminResponse{
		ID:            r.ID,
		UserID:        r.UserID,
		StyleChoice:   r.StyleChoice,
		Status:        r.Status,
		OriginalImage: r.OriginalImage,
		ResultImage:   r.ResultImage,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
