package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/franzego/uninotify/internal/config"
	"github.com/franzego/uninotify/pkg/circuitbreaker"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

var (
	ErrGeneration        = errors.New("generation failed")
	ErrGenerationTimeout = fmt.Errorf("%w: timed out", ErrGeneration)
)

type GenerationRequest struct {
	Prompt string
	// Structured asks for a {subjectDe, subjectEn, body} JSON object instead
	// of free text.
	Structured bool
}

// Generator turns a prompt into a completion.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// GeminiGenerator calls the hosted Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, cfg config.GeminiConfig) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: cfg.Model}, nil
}

var structuredResponseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"subjectDe": {Type: genai.TypeString, Description: "German subject line"},
		"subjectEn": {Type: genai.TypeString, Description: "English subject line"},
		"body":      {Type: genai.TypeString, Description: "Notification body without subject lines"},
	},
	Required:         []string{"subjectDe", "subjectEn", "body"},
	PropertyOrdering: []string{"subjectDe", "subjectEn", "body"},
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	var genCfg *genai.GenerateContentConfig
	if req.Structured {
		genCfg = &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   structuredResponseSchema,
		}
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), genCfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// GuardedGenerator bounds every call with a timeout and a circuit breaker and
// maps all failures onto ErrGeneration. It never retries.
type GuardedGenerator struct {
	next    Generator
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  *zap.Logger
}

func NewGuardedGenerator(next Generator, timeout time.Duration, logger *zap.Logger) *GuardedGenerator {
	g := &GuardedGenerator{
		next:    next,
		timeout: timeout,
		logger:  logger,
	}
	g.cb = circuitbreaker.NewCircuitBreaker("generation", 30*time.Second, func(name string, from, to gobreaker.State) {
		logger.Warn("circuit breaker state changed",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})
	return g
}

func (g *GuardedGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	result, err := g.cb.Execute(func() (interface{}, error) {
		text, err := g.next.Generate(ctx, req)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			return "", errors.New("empty completion")
		}
		return text, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
			err = fmt.Errorf("%w after %s", ErrGenerationTimeout, g.timeout)
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			err = fmt.Errorf("%w: generation service unavailable (%v)", ErrGeneration, err)
		default:
			err = fmt.Errorf("%w: %v", ErrGeneration, err)
		}
		g.logger.Error("generation call failed", zap.Error(err))
		return "", err
	}
	return result.(string), nil
}

// State reports the breaker state for health checks.
func (g *GuardedGenerator) State() gobreaker.State {
	return g.cb.State()
}
