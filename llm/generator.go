// Package llm is the boundary to generative text providers. Every provider
// returns either text, a *QuotaError, or some other error.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Request is a single prompt-in, text-out call.
type Request struct {
	APIKey      string
	Model       string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Generator produces text for a prompt.
type Generator interface {
	GenerateText(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) GenerateText(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// QuotaError signals a quota or rate-limit rejection by the provider.
type QuotaError struct {
	Err error
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded: %v", e.Err)
}

func (e *QuotaError) Unwrap() error {
	return e.Err
}

func IsQuota(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

// ErrEmptyResponse is returned when the provider answered without any text.
var ErrEmptyResponse = errors.New("provider returned no text")

type Options struct {
	Provider string
	BaseURL  string
}

// New returns the Generator for the configured provider.
func New(opts Options) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", "gemini":
		return NewGemini(), nil
	case "openai":
		return NewOpenAI(opts.BaseURL), nil
	default:
		return nil, errors.Errorf("unsupported llm provider: %s", opts.Provider)
	}
}
