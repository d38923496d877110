// AngelaMos | 2026
// image.go

package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"

	"github.com/carterperez-dev/templates/roomcraft/internal/core"
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp"}

// Image is an upload that has been size-checked and sniffed.
type Image struct {
	Data     []byte
	MimeType string
	Ext      string
	Filename string
}

func (i *Image) Reader() io.Reader {
	return bytes.NewReader(i.Data)
}

func ReadImage(src io.Reader, filename string, maxBytes int64) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}

	if len(data) == 0 {
		return nil, ErrNotImage
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), allowedImageTypes...) {
		return nil, ErrNotImage
	}

	return &Image{
		Data:     data,
		MimeType: mtype.String(),
		Ext:      mtype.Extension(),
		Filename: filename,
	}, nil
}

// ImageErrorMessage describes a ReadImage failure for the uploader.
func ImageErrorMessage(err error, limit int64) string {
	switch {
	case errors.Is(err, ErrTooLarge):
		return fmt.Sprintf("image must be at most %d bytes", limit)
	case errors.Is(err, ErrNotImage):
		return "upload a valid image (jpeg, png or webp)"
	default:
		return "could not read image"
	}
}

func ImageFieldError(field string, err error, limit int64) *core.AppError {
	return core.FieldError(field, ImageErrorMessage(err, limit))
}
