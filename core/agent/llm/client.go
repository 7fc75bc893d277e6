package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"officeflow/pkg/metrics"
	"officeflow/pkg/resilience"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyResponse is returned when the endpoint answers without choices.
var ErrEmptyResponse = errors.New("llm: empty response")

// Client is a chat-completion client. It never retries; callers decide how
// to degrade when a call fails.
type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	breaker     *resilience.Breaker
}

type ClientConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Logger      zerolog.Logger
}

const DefaultModel = "gpt-4o-mini"

func NewClientWithConfig(cfg ClientConfig) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}

	return &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       model,
		maxTokens:   maxTokens,
		temperature: float32(cfg.Temperature),
		breaker:     resilience.NewBreaker(resilience.DefaultBreakerConfig("llm"), cfg.Logger),
	}
}

// CompleteWithSystem sends one system instruction and one user prompt and
// returns the first choice's text.
func (c *Client) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	content, err := resilience.Execute(c.breaker, func() (string, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userPrompt,
				},
			},
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", ErrEmptyResponse
		}
		return resp.Choices[0].Message.Content, nil
	})

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordLLMRequest(status, time.Since(start))

	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return content, nil
}
