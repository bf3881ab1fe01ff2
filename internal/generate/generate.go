// Package generate runs one diagram request end to end: prompt building,
// the completion call and reply sanitizing.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/diagramify/diagramify/internal/diagrams"
	"github.com/diagramify/diagramify/internal/llm"
	"github.com/diagramify/diagramify/internal/prompt"
)

// ErrMissingInput is returned when a request has neither content nor a
// current diagram.
var ErrMissingInput = errors.New("content or an existing diagram is required")

// ErrEmptyReply is returned when the completion API answers with no text.
var ErrEmptyReply = errors.New("no response received from the model")

// Request is one generate or edit request.
type Request struct {
	Content        string `json:"content"`
	Prompt         string `json:"prompt"`
	CurrentDiagram string `json:"currentDiagram"`
	// Label names the request in logs, e.g. the section title.
	Label string `json:"-"`
}

// Generator produces a diagram for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Options tunes the completion call.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Service implements Generator over an llm.Provider.
type Service struct {
	provider llm.Provider
	builder  *prompt.Builder
	opts     Options
	logger   *slog.Logger
}

// NewService creates a Service. A nil builder uses the default keywords and
// a nil logger uses slog.Default.
func NewService(provider llm.Provider, builder *prompt.Builder, opts Options, logger *slog.Logger) *Service {
	if builder == nil {
		builder = prompt.NewBuilder(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{provider: provider, builder: builder, opts: opts, logger: logger}
}

// Generate builds the prompt, calls the provider and sanitizes the reply.
// Sanitizer rejections are returned as diagrams.ErrNoChanges or
// diagrams.ErrInvalidDiagram.
func (s *Service) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Content) == "" && strings.TrimSpace(req.CurrentDiagram) == "" {
		return "", ErrMissingInput
	}

	p := s.builder.Build(prompt.Input{
		Content:      req.Content,
		PriorDiagram: req.CurrentDiagram,
		Instruction:  req.Prompt,
	})
	s.logger.Debug("diagram request", "edit", req.CurrentDiagram != "", "style_change", p.StyleChange)

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Label: req.Label,
		Model: s.opts.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: p.System},
			{Role: llm.RoleUser, Content: p.User},
		},
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generating diagram: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", ErrEmptyReply
	}

	cost := llm.EstimateCost(resp.Model, resp.InputTokens, resp.OutputTokens)
	if cost == 0 {
		cost = llm.EstimateCost(s.opts.Model, resp.InputTokens, resp.OutputTokens)
	}
	s.logger.Info("diagram generated",
		"request", req.Label,
		"provider", s.provider.Name(),
		"model", resp.Model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"cost_usd", cost,
	)
	if resp.Truncated {
		s.logger.Warn("diagram reply hit the token limit", "request", req.Label, "max_tokens", s.opts.MaxTokens)
	}

	var prior string
	if strings.TrimSpace(req.CurrentDiagram) != "" {
		prior = req.CurrentDiagram
	}
	diagram, err := diagrams.Sanitize(resp.Content, prior, p.StyleChange)
	if err != nil {
		s.logger.Warn("diagram rejected", "error", err)
		return "", err
	}
	return diagram, nil
}
