package llm

import (
	"context"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// Gemini calls the Gemini API through a chat session per request. Clients are
// created lazily and cached per API key.
type Gemini struct {
	mu      sync.Mutex
	clients map[string]*genai.Client
	opts    []option.ClientOption
}

// NewGemini creates the provider. Extra client options apply to every client.
func NewGemini(opts ...option.ClientOption) *Gemini {
	return &Gemini{
		clients: make(map[string]*genai.Client),
		opts:    opts,
	}
}

func (g *Gemini) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.clients[apiKey]; ok {
		return c, nil
	}
	opts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, g.opts...)
	c, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create genai client")
	}
	g.clients[apiKey] = c
	return c, nil
}

func (g *Gemini) GenerateText(ctx context.Context, req Request) (string, error) {
	c, err := g.client(ctx, req.APIKey)
	if err != nil {
		return "", err
	}

	model := c.GenerativeModel(req.Model)
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	resp, err := model.StartChat().SendMessage(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", Classify(errors.Wrapf(err, "gemini %s", req.Model))
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		if sb.Len() > 0 {
			break
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

// Close releases every cached client.
func (g *Gemini) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var first error
	for key, c := range g.clients {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
		delete(g.clients, key)
	}
	if first != nil {
		logrus.WithError(first).Warn("Failed to close gemini client")
	}
	return first
}
