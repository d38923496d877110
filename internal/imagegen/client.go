// AngelaMos | 2026
// client.go

package imagegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/templates/roomcraft/internal/config"
	"github.com/carterperez-dev/templates/roomcraft/internal/core"
)

const tracerName = "roomcraft/imagegen"

var ErrNoImage = errors.New("no image generated")

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("image provider returned %d: %s", e.StatusCode, e.Message)
}

// Source is the photo an edit is based on.
type Source struct {
	Reader   io.Reader
	Filename string
	MimeType string
}

type Client struct {
	api   openai.Client
	model string
	size  string
}

func NewClient(cfg config.ImageGenConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}

	return &Client{
		api:   openai.NewClient(opts...),
		model: cfg.Model,
		size:  cfg.Size,
	}
}

// Generate returns the base64 encoded image the provider produced. With a
// source it requests an edit of that photo, otherwise a fresh generation.
func (c *Client) Generate(ctx context.Context, prompt string, src *Source) (string, error) {
	mode := "generation"
	if src != nil {
		mode = "edit"
	}

	ctx, span := core.StartSpan(ctx, tracerName, "imagegen.Generate",
		attribute.String("imagegen.mode", mode),
		attribute.String("imagegen.model", c.model),
	)
	defer span.End()

	start := time.Now()

	var (
		resp *openai.ImagesResponse
		err  error
	)
	if src != nil {
		resp, err = c.api.Images.Edit(ctx, c.editParams(prompt, src))
	} else {
		resp, err = c.api.Images.Generate(ctx, openai.ImageGenerateParams{
			Model:  openai.ImageModel(c.model),
			Prompt: prompt,
			Size:   openai.ImageGenerateParamsSize(c.size),
			N:      openai.Int(1),
		})
	}

	span.SetAttributes(
		attribute.Int64("imagegen.latency_ms", time.Since(start).Milliseconds()),
	)

	if err != nil {
		err = providerError(err)
		core.SetSpanError(ctx, err)
		return "", err
	}

	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		core.SetSpanError(ctx, ErrNoImage)
		return "", ErrNoImage
	}

	return resp.Data[0].B64JSON, nil
}

func (c *Client) editParams(prompt string, src *Source) openai.ImageEditParams {
	filename := src.Filename
	if filename == "" {
		filename = "image.png"
	}
	mimeType := src.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}

	return openai.ImageEditParams{
		Image: openai.ImageEditParamsImageUnion{
			OfFile: openai.File(src.Reader, filename, mimeType),
		},
		Model:  openai.ImageModel(c.model),
		Prompt: prompt,
		Size:   openai.ImageEditParamsSize(c.size),
		N:      openai.Int(1),
	}
}

func providerError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("call image provider: %w", err)
	}

	message := strings.TrimSpace(apiErr.Message)
	if message == "" {
		message = http.StatusText(apiErr.StatusCode)
	}

	return &APIError{
		StatusCode: apiErr.StatusCode,
		Message:    message,
	}
}
