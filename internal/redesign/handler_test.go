// AngelaMos | 2026
// handler_test.go

package redesign

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/roomcraft/internal/core"
	"github.com/carterperez-dev/templates/roomcraft/internal/middleware"
)

type staticVerifier struct{}

func (staticVerifier) VerifyAccessToken(_ context.Context, token string) (*middleware.AccessTokenClaims, error) {
	if token != "good" {
		return nil, core.ErrTokenInvalid
	}
	return &middleware.AccessTokenClaims{
		UserID:    "user-1",
		TokenID:   "jti",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

type activeAccounts struct{}

func (activeAccounts) LookupAccount(_ context.Context, id string) (*middleware.Account, error) {
	return &middleware.Account{ID: id, IsActive: true}, nil
}

func newTestRouter(t *testing.T, f *fixture) http.Handler {
	t.Helper()

	guard := middleware.NewGuard(staticVerifier{}, nil, activeAccounts{})
	h := NewHandler(f.service, guard, 1<<20)

	r := chi.NewRouter()
	h.RegisterRoutes(r, func(next http.Handler) http.Handler { return next })
	return r
}

func formRequest(t *testing.T, path string, fields map[string]string, fileField string, file []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		part, err := mw.CreateFormFile(fileField, "room.png")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer good")
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRedesignRoomRequiresAuth(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f)

	req := formRequest(t, "/redesign-room", map[string]string{"style_choice": "modern"}, "original_image", pngBytes)
	req.Header.Del("Authorization")

	rec := serve(router, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, f.gen.calls)
}

func TestRedesignRoomSuccess(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f)

	rec := serve(router, formRequest(t, "/redesign-room",
		map[string]string{"style_choice": "modern"}, "original_image", pngBytes))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusCompleted, resp.Status)
	assert.NotEmpty(t, resp.ResultBase64)
	require.NotNil(t, resp.ResultImage)
}

func TestRedesignRoomAcceptsShortFieldNames(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f)

	rec := serve(router, formRequest(t, "/redesign-room",
		map[string]string{"style": "luxury"}, "image", pngBytes))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRedesignRoomValidation(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f)

	rec := serve(router, formRequest(t, "/redesign-room",
		map[string]string{"style_choice": "baroque"}, "", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp core.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields["style_choice"], "baroque")
	assert.Contains(t, resp.Error.Fields, "original_image")

	assert.Zero(t, f.repo.size())
	assert.Zero(t, f.gen.calls)
	assert.Empty(t, f.files(t))
}

func TestRedesignRoomGenerationFailure(t *testing.T) {
	f := newFixture(t)
	f.gen.err = errors.New("content policy violation")
	router := newTestRouter(t, f)

	rec := serve(router, formRequest(t, "/redesign-room",
		map[string]string{"style_choice": "modern"}, "original_image", pngBytes))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp core.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "GENERATION_FAILED", resp.Error.Code)
	assert.Equal(t, "content policy violation", resp.Error.Message)
}

func TestHistoryEndpoint(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f)

	_, err := f.service.Submit(context.Background(), "user-1", testImage(), "modern")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := serve(router, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var items []Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&items))
	assert.Len(t, items, 1)
}

func TestGuestEndpoints(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f)

	req := formRequest(t, "/guest/generate", map[string]string{"style_choice": "minimalist"}, "image", pngBytes)
	req.Header.Del("Authorization")
	rec := serve(router, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload GuestPayload
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&payload))
	assert.Equal(t, StyleMinimalist, payload.StyleChoice)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/guest/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
