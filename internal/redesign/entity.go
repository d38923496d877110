// AngelaMos | 2026
// entity.go

package redesign

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Style string

const (
	StyleModern       Style = "modern"
	StyleMinimalist   Style = "minimalist"
	StyleLuxury       Style = "luxury"
	StyleIndustrial   Style = "industrial"
	StyleScandinavian Style = "scandinavian"
)

var Styles = []Style{
	StyleModern,
	StyleMinimalist,
	StyleLuxury,
	StyleIndustrial,
	StyleScandinavian,
}

func ParseStyle(raw string) (Style, bool) {
	candidate := Style(strings.TrimSpace(raw))
	for _, s := range Styles {
		if s == candidate {
			return s, true
		}
	}
	return "", false
}

func BuildPrompt(style Style) string {
	return fmt.Sprintf(
		"Redesign this interior room photo into a %s style. High realism, "+
			"photorealistic, maintain room layout, professional interior design render.",
		style,
	)
}

type Redesign struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	OriginalImage string    `db:"original_image"`
	StyleChoice   Style     `db:"style_choice"`
	Prompt        string    `db:"prompt"`
	ResultImage   *string   `db:"result_image"`
	ResultBase64  string    `db:"result_base64"`
	Status        Status    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}
