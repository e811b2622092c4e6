package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/franzego/uninotify/internal/metrics"
	"github.com/franzego/uninotify/internal/notice"
	"github.com/franzego/uninotify/internal/queue"
	"go.uber.org/zap"
)

// EditKind labels revisions in metrics and events.
const EditKind notice.Kind = "edit"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyPrompt  = fmt.Errorf("%w: prompt is required", ErrInvalidInput)
)

type correlationKey struct{}

// WithCorrelationID attaches a request correlation id to ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// NotificationService runs the template, prompt, generation and
// post-processing pipeline for every notification kind.
type NotificationService struct {
	generator  Generator
	templates  *TemplateService
	publisher  queue.Publisher
	structured bool
	logger     *zap.Logger
}

func NewNotificationService(
	generator Generator,
	templates *TemplateService,
	publisher queue.Publisher,
	structured bool,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		generator:  generator,
		templates:  templates,
		publisher:  publisher,
		structured: structured,
		logger:     logger,
	}
}

// Generate dispatches on kind. Unknown kinds fail with notice.ErrUnknownKind
// before anything else happens.
func (s *NotificationService) Generate(ctx context.Context, kind notice.Kind, fields map[string]string) (string, error) {
	spec, err := notice.Lookup(kind)
	if err != nil {
		return "", err
	}
	if spec.Kind == notice.FreePrompt {
		return s.FreePrompt(ctx, fields["prompt"], fields["tone"])
	}

	start := time.Now()
	content, err := s.generate(ctx, spec, fields)
	s.observe(ctx, spec.Kind, start, err)
	return content, err
}

func (s *NotificationService) generate(ctx context.Context, spec *notice.Spec, fields map[string]string) (string, error) {
	body, err := s.templates.Render(spec, fields)
	if err != nil {
		return "", err
	}
	if !spec.Generated {
		return notice.FormatBreaks(body), nil
	}

	prompt, err := notice.BuildPrompt(spec, body)
	if err != nil {
		return "", err
	}
	s.logger.Debug("generating notification",
		zap.String("kind", string(spec.Kind)),
		zap.String("correlation_id", CorrelationID(ctx)),
		zap.Int("prompt_length", len(prompt)),
	)
	raw, err := s.generator.Generate(ctx, GenerationRequest{Prompt: prompt, Structured: s.structured})
	if err != nil {
		return "", err
	}
	return notice.Compose(raw), nil
}

// FreePrompt drafts a document from a caller's own description, without a
// template.
func (s *NotificationService) FreePrompt(ctx context.Context, prompt, tone string) (string, error) {
	start := time.Now()
	content, err := s.freePrompt(ctx, prompt, notice.ParseTone(tone))
	s.observe(ctx, notice.FreePrompt, start, err)
	return content, err
}

func (s *NotificationService) freePrompt(ctx context.Context, prompt string, tone notice.Tone) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	full, err := notice.BuildFreePrompt(prompt, tone)
	if err != nil {
		return "", err
	}
	raw, err := s.generator.Generate(ctx, GenerationRequest{Prompt: full})
	if err != nil {
		return "", err
	}
	return notice.Compose(raw), nil
}

// Edit asks the model to revise already generated content.
func (s *NotificationService) Edit(ctx context.Context, content, instruction string) (string, error) {
	start := time.Now()
	revised, err := s.edit(ctx, content, instruction)
	s.observe(ctx, EditKind, start, err)
	return revised, err
}

func (s *NotificationService) edit(ctx context.Context, content, instruction string) (string, error) {
	content = strings.TrimSpace(notice.UnformatBreaks(content))
	instruction = strings.TrimSpace(instruction)
	if content == "" {
		return "", fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if instruction == "" {
		return "", fmt.Errorf("%w: instruction is required", ErrInvalidInput)
	}

	prompt, err := notice.BuildEditPrompt(content, instruction)
	if err != nil {
		return "", err
	}
	raw, err := s.generator.Generate(ctx, GenerationRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}
	return notice.Compose(raw), nil
}

func (s *NotificationService) observe(ctx context.Context, kind notice.Kind, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.GenerationsTotal.WithLabelValues(string(kind), status).Inc()
	metrics.GenerationDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		return
	}

	event := queue.NewEvent(queue.NotificationGenerated, CorrelationID(ctx), map[string]interface{}{
		"kind": string(kind),
	})
	if perr := s.publisher.Publish(ctx, event); perr != nil {
		s.logger.Warn("failed to publish event", zap.String("event", event.Type), zap.Error(perr))
	}
}
