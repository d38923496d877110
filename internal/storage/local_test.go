// AngelaMos | 2026
// local_test.go

package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/roomcraft/internal/core"
)

func newLocal(t *testing.T) (*LocalStore, string) {
	t.Helper()
	root := t.TempDir()
	s, err := NewLocal(root, "http://localhost:8080/media/")
	require.NoError(t, err)
	return s, root
}

func TestLocalPutOpenDelete(t *testing.T) {
	s, root := newLocal(t)
	ctx := context.Background()

	n, err := s.Put(ctx, "results/redesign_1.png", strings.NewReader("pixels"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	_, err = os.Stat(filepath.Join(root, "results", "redesign_1.png"))
	require.NoError(t, err)

	rc, err := s.Open(ctx, "results/redesign_1.png")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "pixels", string(data))

	require.NoError(t, s.Delete(ctx, "results/redesign_1.png"))
	require.NoError(t, s.Delete(ctx, "results/redesign_1.png"))

	_, err = s.Open(ctx, "results/redesign_1.png")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLocalRejectsTraversal(t *testing.T) {
	s, _ := newLocal(t)
	ctx := context.Background()

	for _, key := range []string{"", "../escape.png", "a/../../b", "a\\b", "a//b"} {
		_, err := s.Put(ctx, key, strings.NewReader("x"), "")
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestLocalURL(t *testing.T) {
	s, _ := newLocal(t)

	url, err := s.URL(context.Background(), "guest/abc.png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/media/guest/abc.png", url)
}

func TestLocalHandlerServesFiles(t *testing.T) {
	s, _ := newLocal(t)
	_, err := s.Put(context.Background(), "profiles/p.png", strings.NewReader("img"), "")
	require.NoError(t, err)

	h := http.StripPrefix("/media", s.Handler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/profiles/p.png", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "img", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/profiles/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReadImage(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

	img, err := ReadImage(bytes.NewReader(png), "room.png", 1024)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, ".png", img.Ext)

	_, err = ReadImage(strings.NewReader("plain text, not an image"), "a.txt", 1024)
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = ReadImage(bytes.NewReader(png), "room.png", 8)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = ReadImage(bytes.NewReader(nil), "empty.png", 8)
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestKeyLayout(t *testing.T) {
	assert.True(t, strings.HasPrefix(OriginalKey(".jpg"), "originals/"))
	assert.Equal(t, "results/redesign_42.png", ResultKey("42"))

	key, err := GuestKey()
	require.NoError(t, err)
	assert.Regexp(t, `^guest/[0-9a-f]{32}\.png$`, key)
}
