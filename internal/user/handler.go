// AngelaMos | 2026
// handler.go

package user

import (
	"errors"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/roomcraft/internal/core"
	"github.com/carterperez-dev/templates/roomcraft/internal/middleware"
	"github.com/carterperez-dev/templates/roomcraft/internal/storage"
)

const multipartMemory = 8 << 20

type Handler struct {
	service        *Service
	guard          *middleware.Guard
	validator      *validator.Validate
	maxUploadBytes int64
}

func NewHandler(
	service *Service,
	guard *middleware.Guard,
	maxUploadBytes int64,
) *Handler {
	return &Handler{
		service:        service,
		guard:          guard,
		validator:      core.NewValidator(),
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Patch("/update-profile", h.UpdateProfile)
}

// UpdateProfile accepts either multipart/form-data (optionally carrying a
// profile_image file) or a JSON body with name fields. An empty or null
// profile_image clears the current image.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, err := h.guard.RequireUser(r)
	if err != nil {
		middleware.WriteAuthError(w, err)
		return
	}

	var update ProfileUpdate
	if isMultipart(r) {
		var ok bool
		update, ok = h.readMultipart(w, r)
		if !ok {
			return
		}
	} else {
		var req UpdateProfileJSON
		if !core.DecodeAndValidate(w, r, h.validator, &req) {
			return
		}
		update = ProfileUpdate{
			FirstName:         req.FirstName,
			LastName:          req.LastName,
			ClearProfileImage: req.ProfileImage.Requested,
		}
	}

	resp, err := h.service.UpdateProfile(r.Context(), principal.UserID, update)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "user")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) readMultipart(w http.ResponseWriter, r *http.Request) (ProfileUpdate, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		core.BadRequest(w, "invalid multipart body")
		return ProfileUpdate{}, false
	}

	fields := UpdateProfileJSON{
		FirstName: formValue(r, "first_name"),
		LastName:  formValue(r, "last_name"),
	}
	if err := h.validator.Struct(fields); err != nil {
		core.WriteValidationError(w, err)
		return ProfileUpdate{}, false
	}

	update := ProfileUpdate{FirstName: fields.FirstName, LastName: fields.LastName}

	file, header, err := r.FormFile("profile_image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		if v := formValue(r, "profile_image"); v != nil && *v == "" {
			update.ClearProfileImage = true
		}
		return update, true
	case err != nil:
		core.BadRequest(w, "invalid profile_image upload")
		return ProfileUpdate{}, false
	}
	defer file.Close()

	img, err := storage.ReadImage(file, header.Filename, h.maxUploadBytes)
	if err != nil {
		core.JSONError(w, storage.ImageFieldError("profile_image", err, h.maxUploadBytes))
		return ProfileUpdate{}, false
	}

	update.ProfileImage = img
	return update, true
}

func formValue(r *http.Request, key string) *string {
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}
