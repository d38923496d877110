// AngelaMos | 2026
// local.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/carterperez-dev/templates/roomcraft/internal/core"
)

type LocalStore struct {
	root    string
	baseURL string
}

func NewLocal(root, baseURL string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("storage root directory is required")
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	return &LocalStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *LocalStore) Put(
	_ context.Context,
	key string,
	body io.Reader,
	_ string,
) (int64, error) {
	absPath, err := s.resolve(key)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return 0, fmt.Errorf("create object directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(absPath), ".upload-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp object: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	written, err := io.Copy(tmpFile, body)
	if err != nil {
		return 0, fmt.Errorf("write object: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return 0, fmt.Errorf("close temp object: %w", err)
	}

	if err := os.Rename(tmpPath, absPath); err != nil {
		return 0, fmt.Errorf("finalize object: %w", err)
	}

	return written, nil
}

func (s *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	absPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(absPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", key, core.ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}

	return f, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	absPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	err = os.Remove(absPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}

	return nil
}

func (s *LocalStore) URL(_ context.Context, key string) (string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/" + clean, nil
}

func (s *LocalStore) Ping(_ context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("stat storage root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage root %s is not a directory", s.root)
	}
	return nil
}

// Handler serves stored objects read-only. Mount it with http.StripPrefix.
func (s *LocalStore) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			core.JSONError(w, core.NewAppError(
				core.ErrInvalidInput,
				"method not allowed",
				http.StatusMethodNotAllowed,
				"METHOD_NOT_ALLOWED",
			))
			return
		}

		absPath, err := s.resolve(strings.TrimPrefix(r.URL.Path, "/"))
		if err != nil {
			core.NotFound(w, "file")
			return
		}

		f, err := os.Open(absPath)
		if err != nil {
			core.NotFound(w, "file")
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			core.NotFound(w, "file")
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=86400")
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}

func (s *LocalStore) resolve(key string) (string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}
