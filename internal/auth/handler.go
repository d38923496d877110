// AngelaMos | 2026
// handler.go

package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/roomcraft/internal/core"
	"github.com/carterperez-dev/templates/roomcraft/internal/middleware"
	"github.com/carterperez-dev/templates/roomcraft/internal/otp"
)

type Handler struct {
	service           *Service
	guard             *middleware.Guard
	validator         *validator.Validate
	forgotMinDuration time.Duration
}

func NewHandler(
	service *Service,
	guard *middleware.Guard,
	forgotMinDuration time.Duration,
) *Handler {
	return &Handler{
		service:           service,
		guard:             guard,
		validator:         core.NewValidator(),
		forgotMinDuration: forgotMinDuration,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	limiter func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(limiter)

		r.Post("/register", h.Register)
		r.Post("/verify-otp", h.VerifyOTP)
		r.Post("/login", h.Login)
		r.Post("/token/refresh", h.Refresh)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)
	})

	r.Post("/logout", h.Logout)
	r.Post("/change-password", h.ChangePassword)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	if err := h.service.Register(r.Context(), req); err != nil {
		if errors.Is(err, ErrEmailExists) {
			core.JSONError(w, core.DuplicateError("email"))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Message(w, http.StatusCreated, MsgRegistered)
}

func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	if err := h.service.VerifyOTP(r.Context(), req); err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "user")
		case errors.Is(err, otp.ErrInvalidCode):
			core.JSONError(w, core.NewAppError(
				err,
				"invalid or expired code",
				http.StatusBadRequest,
				"INVALID_CODE",
			))
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.Message(w, http.StatusOK, MsgEmailVerified)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	resp, err := h.service.Login(
		r.Context(),
		req,
		r.UserAgent(),
		extractIPAddress(r),
	)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			core.JSONError(w, core.NewAppError(
				err,
				"invalid credentials",
				http.StatusBadRequest,
				"INVALID_CREDENTIALS",
			))
		case errors.Is(err, ErrInactiveAccount):
			core.JSONError(w, core.NewAppError(
				err,
				"user is inactive",
				http.StatusBadRequest,
				"ACCOUNT_INACTIVE",
			))
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, resp)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	resp, err := h.service.Refresh(
		r.Context(),
		req.Refresh,
		r.UserAgent(),
		extractIPAddress(r),
	)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenReuse):
			core.JSONError(w, core.NewAppError(
				core.ErrTokenRevoked,
				"token reuse detected, session revoked",
				http.StatusUnauthorized,
				"TOKEN_REUSE_DETECTED",
			))
		case errors.Is(err, core.ErrTokenExpired):
			core.JSONError(w, core.TokenExpiredError())
		case errors.Is(err, core.ErrTokenRevoked):
			core.JSONError(w, core.TokenRevokedError())
		case errors.Is(err, core.ErrTokenInvalid):
			core.JSONError(w, core.TokenInvalidError())
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, resp)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	principal, err := h.guard.RequireUser(r)
	if err != nil {
		middleware.WriteAuthError(w, err)
		return
	}

	var req LogoutRequest
	if r.ContentLength != 0 && !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	if err := h.service.Logout(r.Context(), principal, req.Refresh); err != nil {
		if errors.Is(err, core.ErrForbidden) {
			core.Forbidden(w, "cannot revoke another user's token")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

// ForgotPassword answers identically for known and unknown emails, padded
// to a minimum duration.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req ForgotPasswordRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	h.service.ForgotPassword(r.Context(), req)

	padUntil(r.Context(), start.Add(h.forgotMinDuration))
	core.Message(w, http.StatusOK, MsgForgotPassword)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req); err != nil {
		if errors.Is(err, ErrInvalidResetCode) {
			core.JSONError(w, core.NewAppError(
				err,
				"invalid email or code",
				http.StatusBadRequest,
				"INVALID_CODE",
			))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Message(w, http.StatusOK, MsgPasswordReset)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, err := h.guard.RequireUser(r)
	if err != nil {
		middleware.WriteAuthError(w, err)
		return
	}

	var req ChangePasswordRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), principal.UserID, req); err != nil {
		if errors.Is(err, ErrWrongPassword) {
			core.JSONError(w, core.FieldError("old_password", "old password is incorrect"))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Message(w, http.StatusOK, MsgPasswordChanged)
}

func padUntil(ctx context.Context, deadline time.Time) {
	wait := time.Until(deadline)
	if wait <= 0 {
		return
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func extractIPAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[len(ips)-1])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}
