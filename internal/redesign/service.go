// AngelaMos | 2026
// service.go

package redesign

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/templates/roomcraft/internal/core"
	"github.com/carterperez-dev/templates/roomcraft/internal/imagegen"
	"github.com/carterperez-dev/templates/roomcraft/internal/storage"
)

const tracerName = "roomcraft/redesign"

var ErrInvalidStyle = errors.New("invalid style choice")

// GenerationError wraps any failure after the job was accepted: gateway,
// decode or storage. Its message is surfaced to the caller.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

type Generator interface {
	Generate(ctx context.Context, prompt string, src *imagegen.Source) (string, error)
}

type Service struct {
	repo       Repository
	store      storage.Store
	generator  Generator
	staleAfter time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(
	repo Repository,
	store storage.Store,
	generator Generator,
	staleAfter time.Duration,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:       repo,
		store:      store,
		generator:  generator,
		staleAfter: staleAfter,
		logger:     logger,
		now:        time.Now,
	}
}

// Submit runs one redesign end to end. An unknown style is rejected before
// anything is stored or sent to the gateway.
func (s *Service) Submit(
	ctx context.Context,
	userID string,
	img *storage.Image,
	rawStyle string,
) (*Response, error) {
	style, ok := ParseStyle(rawStyle)
	if !ok {
		return nil, ErrInvalidStyle
	}

	ctx, span := core.StartSpan(ctx, tracerName, "redesign.Submit",
		attribute.String("redesign.style", string(style)),
	)
	defer span.End()

	originalKey := storage.OriginalKey(img.Ext)
	if _, err := s.store.Put(ctx, originalKey, img.Reader(), img.MimeType); err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("store original image: %w", err)
	}

	job := &Redesign{
		ID:            uuid.New().String(),
		UserID:        userID,
		OriginalImage: originalKey,
		StyleChoice:   style,
		Prompt:        BuildPrompt(style),
	}

	if err := s.repo.CreateProcessing(ctx, job); err != nil {
		s.discard(ctx, originalKey)
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("create redesign: %w", err)
	}

	span.SetAttributes(attribute.String("redesign.id", job.ID))

	resultKey, resultB64, err := s.generate(ctx, job.Prompt, img, storage.ResultKey(job.ID))
	if err != nil {
		core.SetSpanError(ctx, err)
		s.fail(ctx, job.ID, err)
		return nil, &GenerationError{Err: err}
	}

	if err := s.repo.Complete(ctx, job.ID, resultKey, resultB64); err != nil {
		core.SetSpanError(ctx, err)
		s.fail(ctx, job.ID, err)
		return nil, &GenerationError{Err: err}
	}

	job.Status = StatusCompleted
	job.ResultImage = &resultKey
	job.ResultBase64 = resultB64

	s.logger.Info("redesign completed",
		"redesign_id", job.ID,
		"user_id", userID,
		"style", style,
	)

	return s.toResponse(ctx, job), nil
}

// History lists a user's jobs newest first. Jobs stuck in a non-terminal
// state longer than staleAfter are failed before reading.
func (s *Service) History(ctx context.Context, userID string) ([]Response, error) {
	if s.staleAfter > 0 {
		n, err := s.repo.FailStale(ctx, userID, s.now().Add(-s.staleAfter))
		if err != nil {
			return nil, err
		}
		if n > 0 {
			s.logger.Warn("failed stale redesigns", "user_id", userID, "count", n)
		}
	}

	items, err := s.repo.History(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]Response, 0, len(items))
	for i := range items {
		resp = append(resp, *s.toResponse(ctx, &items[i]))
	}

	return resp, nil
}

// GenerateGuest runs the generation cycle without a job record. A nil
// image asks the gateway for a fresh render from the prompt alone.
func (s *Service) GenerateGuest(
	ctx context.Context,
	img *storage.Image,
	rawStyle string,
) (*GuestPayload, error) {
	style, ok := ParseStyle(rawStyle)
	if !ok {
		return nil, ErrInvalidStyle
	}

	ctx, span := core.StartSpan(ctx, tracerName, "redesign.GenerateGuest",
		attribute.String("redesign.style", string(style)),
	)
	defer span.End()

	key, err := storage.GuestKey()
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(style)
	resultKey, resultB64, err := s.generate(ctx, prompt, img, key)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, &GenerationError{Err: err}
	}

	url, err := s.store.URL(ctx, resultKey)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	return &GuestPayload{
		ID:           uuid.New().String(),
		StyleChoice:  style,
		Prompt:       prompt,
		Status:       StatusCompleted,
		ResultImage:  url,
		ResultBase64: resultB64,
		CreatedAt:    s.now().UTC(),
	}, nil
}

// GuestHistory is always empty: guests have no durable history.
func (s *Service) GuestHistory(context.Context) []GuestPayload {
	return []GuestPayload{}
}

func (s *Service) List(
	ctx context.Context,
	params ListParams,
) ([]AdminResponse, int, error) {
	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}

	resp := make([]AdminResponse, 0, len(items))
	for i := range items {
		resp = append(resp, ToAdminResponse(&items[i]))
	}

	return resp, total, nil
}

func (s *Service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx)
}

func (s *Service) generate(
	ctx context.Context,
	prompt string,
	img *storage.Image,
	resultKey string,
) (string, string, error) {
	var src *imagegen.Source
	if img != nil {
		src = &imagegen.Source{
			Reader:   img.Reader(),
			Filename: img.Filename,
			MimeType: img.MimeType,
		}
	}

	b64, err := s.generator.Generate(ctx, prompt, src)
	if err != nil {
		return "", "", err
	}

	decoded, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", "", fmt.Errorf("decode generated image: %w", err)
	}

	if _, err := s.store.Put(ctx, resultKey, bytes.NewReader(decoded), "image/png"); err != nil {
		return "", "", fmt.Errorf("store generated image: %w", err)
	}

	return resultKey, b64, nil
}

// fail marks the job failed even if the request context is already gone.
func (s *Service) fail(ctx context.Context, id string, cause error) {
	s.logger.Error("redesign failed", "redesign_id", id, "error", cause)

	if err := s.repo.Fail(context.WithoutCancel(ctx), id); err != nil {
		s.logger.Error("mark redesign failed", "redesign_id", id, "error", err)
	}
}

func (s *Service) discard(ctx context.Context, key string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("discard stored image failed", "key", key, "error", err)
	}
}

func (s *Service) toResponse(ctx context.Context, r *Redesign) *Response {
	resp := &Response{
		ID:           r.ID,
		StyleChoice:  r.StyleChoice,
		ResultBase64: r.ResultBase64,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
	}

	if r.ResultImage != nil && *r.ResultImage != "" {
		url, err := s.store.URL(ctx, *r.ResultImage)
		if err != nil {
			s.logger.Warn("resolve result url failed", "redesign_id", r.ID, "error", err)
		} else {
			resp.ResultImage = &url
		}
	}

	return resp
}
