package llm

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// OpenAI calls any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	baseURL    string
	httpClient *http.Client

	mu      sync.Mutex
	clients map[string]*openai.Client
}

func NewOpenAI(baseURL string) *OpenAI {
	return &OpenAI{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		clients: make(map[string]*openai.Client),
	}
}

// WithHTTPClient sets the transport used by clients created afterwards.
func (o *OpenAI) WithHTTPClient(c *http.Client) *OpenAI {
	o.httpClient = c
	return o
}

func (o *OpenAI) client(apiKey string) *openai.Client {
	o.mu.Lock()
	defer o.mu.Unlock()

	if c, ok := o.clients[apiKey]; ok {
		return c
	}
	cfg := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.httpClient != nil {
		cfg.HTTPClient = o.httpClient
	}
	c := openai.NewClientWithConfig(cfg)
	o.clients[apiKey] = c
	return c
}

func (o *OpenAI) GenerateText(ctx context.Context, req Request) (string, error) {
	resp, err := o.client(req.APIKey).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", Classify(errors.Wrapf(err, "openai %s", req.Model))
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
