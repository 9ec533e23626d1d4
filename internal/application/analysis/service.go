package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/bryanwahyu/vision-assist/internal/application"
	domain "github.com/bryanwahyu/vision-assist/internal/domain/analysis"
)

// Service coordinates one analysis request end-to-end:
// validate → classify → analyze → (persist | skip) → deliver.
// Safe for concurrent use; each request is an independent unit of work.
type Service struct {
	Backend  domain.Backend
	Log      domain.ResultLog
	Images   domain.ImageStore
	Notifier domain.Notifier
	Clock    application.Clock
}

// Handle runs the full pipeline and returns the terminal payload.
// When the request carries a SocketID the payload is also pushed through
// the Notifier (exactly one attempt, best-effort); the HTTP layer then
// only acknowledges. Without a SocketID the caller replies with the
// payload directly. Every failure mode ends up as data on the payload —
// Handle never returns an error.
func (s *Service) Handle(ctx context.Context, req domain.Request) *domain.Payload {
	payload := s.process(ctx, req)

	if req.SocketID != "" {
		delivered := s.Notifier.Deliver(req.SocketID, payload)
		if !delivered {
			// Client went away before delivery; accepted silent loss, no retry.
			slog.Info("push target not connected, payload dropped", "socket_id", req.SocketID)
		}
	}
	return payload
}

func (s *Service) process(ctx context.Context, req domain.Request) *domain.Payload {
	if len(req.Image) == 0 || strings.TrimSpace(req.Command) == "" {
		return &domain.Payload{
			Command: req.Command,
			Status:  domain.StatusError,
			Failure: &domain.Failure{
				Kind:    domain.FailureInvalidRequest,
				Message: "image and command are required",
			},
		}
	}

	intent := domain.Classify(req.Command)

	outcome := s.Backend.Analyze(ctx, req.Image, req.Filename, intent)
	if !outcome.Succeeded {
		slog.Warn("backend analysis failed",
			"intent", intent, "kind", outcome.Failure.Kind, "message", outcome.Failure.Message)
		return &domain.Payload{
			Command: req.Command,
			Intent:  outcome.Intent,
			Status:  domain.StatusError,
			Failure: outcome.Failure,
		}
	}

	payload := &domain.Payload{
		Command: req.Command,
		Intent:  outcome.Intent,
		Result:  outcome.Result,
		Status:  domain.StatusSuccess,
	}

	if req.Save {
		rec, err := s.persist(ctx, req, outcome)
		if err != nil {
			// Archiving failed but the analysis itself did not; keep the
			// result in the payload and report the downgrade.
			slog.Error("persist failed", "error", err)
			payload.Status = domain.StatusError
			payload.Failure = &domain.Failure{
				Kind:    domain.FailurePersistence,
				Message: err.Error(),
			}
			return payload
		}
		payload.Saved = true
		payload.ImageURL = rec.ImageURL
	}

	return payload
}

// persist uploads the image first and appends the log record only after
// the upload succeeded, so a stored locator always backs a written row.
func (s *Service) persist(ctx context.Context, req domain.Request, outcome domain.Outcome) (*domain.Record, error) {
	now := s.Clock.Now()

	name := filepath.Base(req.Filename)
	if name == "" || name == "." {
		name = "image.jpg"
	}
	key := fmt.Sprintf("ai-results/%d-%s", now.UnixMilli(), name)

	url, err := s.Images.Upload(ctx, req.Image, key, req.ContentType)
	if err != nil {
		return nil, fmt.Errorf("uploading image: %w", err)
	}

	rec := &domain.Record{
		ID:        domain.RecordID(uuid.New().String()),
		Command:   req.Command,
		Result:    outcome.Result,
		ImageURL:  url,
		CreatedAt: now,
	}
	if err := s.Log.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("appending result log: %w", err)
	}
	return rec, nil
}

// Latest returns the most recent persisted records, newest first.
func (s *Service) Latest(ctx context.Context, limit int) ([]*domain.Record, error) {
	return s.Log.Latest(ctx, limit)
}
