// AngelaMos | 2026
// handler.go

package redesign

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/templates/roomcraft/internal/core"
	"github.com/carterperez-dev/templates/roomcraft/internal/middleware"
	"github.com/carterperez-dev/templates/roomcraft/internal/storage"
)

const multipartMemory = 8 << 20

var (
	imageFields = []string{"original_image", "image"}
	styleFields = []string{"style_choice", "style"}
)

type Handler struct {
	service        *Service
	guard          *middleware.Guard
	maxUploadBytes int64
}

func NewHandler(service *Service, guard *middleware.Guard, maxUploadBytes int64) *Handler {
	return &Handler{
		service:        service,
		guard:          guard,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	limiter func(http.Handler) http.Handler,
) {
	r.With(limiter).Post("/redesign-room", h.RedesignRoom)
	r.Get("/history", h.History)

	r.Route("/guest", func(r chi.Router) {
		r.With(limiter).Post("/generate", h.GuestGenerate)
		r.Get("/history", h.GuestHistory)
	})
}

func (h *Handler) RedesignRoom(w http.ResponseWriter, r *http.Request) {
	principal, err := h.guard.RequireUser(r)
	if err != nil {
		middleware.WriteAuthError(w, err)
		return
	}

	form, ok := h.readForm(w, r, true)
	if !ok {
		return
	}

	resp, err := h.service.Submit(r.Context(), principal.UserID, form.image, form.style)
	if err != nil {
		writeServiceError(w, err, form.style)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	principal, err := h.guard.RequireUser(r)
	if err != nil {
		middleware.WriteAuthError(w, err)
		return
	}

	items, err := h.service.History(r.Context(), principal.UserID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, items)
}

func (h *Handler) GuestGenerate(w http.ResponseWriter, r *http.Request) {
	form, ok := h.readForm(w, r, false)
	if !ok {
		return
	}

	payload, err := h.service.GenerateGuest(r.Context(), form.image, form.style)
	if err != nil {
		writeServiceError(w, err, form.style)
		return
	}

	core.OK(w, payload)
}

func (h *Handler) GuestHistory(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.service.GuestHistory(r.Context()))
}

type redesignForm struct {
	image *storage.Image
	style string
}

// readForm parses the multipart body. Style and image problems are
// reported together as field errors.
func (h *Handler) readForm(
	w http.ResponseWriter,
	r *http.Request,
	imageRequired bool,
) (*redesignForm, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		core.BadRequest(w, "invalid multipart body")
		return nil, false
	}

	fields := make(map[string]string)
	form := &redesignForm{}

	form.style = firstValue(r.MultipartForm, styleFields)
	switch {
	case form.style == "":
		fields["style_choice"] = "this field is required"
	default:
		if _, ok := ParseStyle(form.style); !ok {
			fields["style_choice"] = invalidStyleMessage(form.style)
		}
	}

	header := firstFile(r.MultipartForm, imageFields)
	switch {
	case header == nil && imageRequired:
		fields["original_image"] = "no file was submitted"
	case header != nil:
		f, err := header.Open()
		if err != nil {
			fields["original_image"] = "could not read image"
			break
		}
		img, err := storage.ReadImage(f, header.Filename, h.maxUploadBytes)
		_ = f.Close()
		if err != nil {
			fields["original_image"] = storage.ImageErrorMessage(err, h.maxUploadBytes)
			break
		}
		form.image = img
	}

	if len(fields) > 0 {
		core.JSONError(w, core.ValidationError(fields))
		return nil, false
	}

	return form, true
}

func firstValue(form *multipart.Form, names []string) string {
	for _, name := range names {
		if values := form.Value[name]; len(values) > 0 && values[0] != "" {
			return values[0]
		}
	}
	return ""
}

func firstFile(form *multipart.Form, names []string) *multipart.FileHeader {
	for _, name := range names {
		if files := form.File[name]; len(files) > 0 {
			return files[0]
		}
	}
	return nil
}

func invalidStyleMessage(style string) string {
	return fmt.Sprintf("%q is not a valid choice", style)
}

func writeServiceError(w http.ResponseWriter, err error, style string) {
	var genErr *GenerationError
	switch {
	case errors.Is(err, ErrInvalidStyle):
		core.JSONError(w, core.FieldError("style_choice", invalidStyleMessage(style)))
	case errors.As(err, &genErr):
		core.JSONError(w, core.UpstreamError("GENERATION_FAILED", genErr))
	default:
		core.InternalServerError(w, err)
	}
}
