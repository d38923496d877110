// AngelaMos | 2026
// handler.go

package subscription

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/roomcraft/internal/core"
	"github.com/carterperez-dev/templates/roomcraft/internal/middleware"
)

type Handler struct {
	service   *Service
	guard     *middleware.Guard
	validator *validator.Validate
}

func NewHandler(service *Service, guard *middleware.Guard) *Handler {
	return &Handler{
		service:   service,
		guard:     guard,
		validator: core.NewValidator(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/subscription", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/sync", h.Sync)
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal, err := h.guard.RequireUser(r)
	if err != nil {
		middleware.WriteAuthError(w, err)
		return
	}

	resp, err := h.service.Get(r.Context(), principal.UserID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	principal, err := h.guard.RequireUser(r)
	if err != nil {
		middleware.WriteAuthError(w, err)
		return
	}

	var req SyncRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	resp, err := h.service.Sync(r.Context(), principal.UserID, req)
	if err != nil {
		if errors.Is(err, ErrInvalidPlatform) {
			core.JSONError(w, core.FieldError("platform", "must be one of: android ios"))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, resp)
}
