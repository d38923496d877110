// AngelaMos | 2026
// dto.go

package subscription

import (
	"bytes"
	"encoding/json"
	"time"
)

// Optional distinguishes a field that was omitted from one sent as null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// SyncRequest is reported by the client after a store purchase. It is not
// verified against the store.
type SyncRequest struct {
	Active    *bool               `json:"active"     validate:"required"`
	ProductID Optional[string]    `json:"product_id"`
	Platform  Optional[string]    `json:"platform"`
	ExpiresAt Optional[time.Time] `json:"expires_at"`
}

type Details struct {
	ProductID string     `json:"product_id"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at"`
	Platform  string     `json:"platform"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Response struct {
	IsPro        bool    `json:"is_pro"`
	Subscription Details `json:"subscription"`
}

func ToResponse(s *Subscription) Response {
	return Response{
		IsPro: s.Active,
		Subscription: Details{
			ProductID: s.ProductID,
			Active:    s.Active,
			ExpiresAt: s.ExpiresAt,
			Platform:  s.Platform,
			UpdatedAt: s.UpdatedAt,
		},
	}
}
