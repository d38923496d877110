// AngelaMos | 2026
// storage.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/roomcraft/internal/config"
	"github.com/carterperez-dev/templates/roomcraft/internal/core"
)

var (
	ErrInvalidKey = errors.New("invalid storage key")
	ErrNotImage   = errors.New("upload is not a supported image")
	ErrTooLarge   = errors.New("upload exceeds size limit")
)

// Store persists binary objects under slash-separated keys.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
	Ping(ctx context.Context) error
}

func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "local":
		return NewLocal(cfg.Local.Root, cfg.Local.BaseURL)
	case "s3":
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

func OriginalKey(ext string) string {
	return "originals/" + uuid.New().String() + ext
}

func ResultKey(redesignID string) string {
	return "results/redesign_" + redesignID + ".png"
}

func ProfileKey(ext string) string {
	return "profiles/" + uuid.New().String() + ext
}

func GuestKey() (string, error) {
	name, err := core.GenerateHexToken(16)
	if err != nil {
		return "", fmt.Errorf("generate guest key: %w", err)
	}
	return "guest/" + name + ".png", nil
}

func cleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}

	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != strings.TrimPrefix(key, "/") {
		return "", ErrInvalidKey
	}

	return clean, nil
}
