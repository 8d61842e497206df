package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sethvargo/go-retry"
)

// OpenAIConfig configures the HTTP provider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // e.g. https://api.openai.com/v1
	Model   string

	// Attempts is the total number of tries per call, including the first.
	Attempts int
	// BaseBackoff is the first retry delay; it doubles on every retry.
	BaseBackoff time.Duration
	Timeout     time.Duration
}

// OpenAI calls the chat completion endpoint of an OpenAI-compatible API
// through the go-openai client.
type OpenAI struct {
	cfg    OpenAIConfig
	api    *openai.Client
	logger *slog.Logger
}

// NewOpenAI creates the provider, filling unset tuning fields with defaults.
func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT3Dot5Turbo
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAI{
		cfg:    cfg,
		api:    openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}
}

// Complete sends the conversation and returns the first choice's text.
//
// Network failures, 429 and 5xx replies are retried with exponential
// backoff; any other status fails immediately.
func (c *OpenAI) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(req.Messages)),
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	}
	for _, m := range req.Messages {
		chatReq.Messages = append(chatReq.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	backoff := retry.WithMaxRetries(uint64(c.cfg.Attempts-1), retry.NewExponential(c.cfg.BaseBackoff))

	var reply string
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		text, err := c.send(ctx, chatReq)
		if err == nil {
			reply = text
			return nil
		}
		if ctx.Err() == nil && isRetryable(err) {
			c.logger.Warn("completion attempt failed",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

func (c *OpenAI) send(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("ai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ai: provider returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// statusCode returns the HTTP status of a provider error reply, or 0 when
// err did not come from one.
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// isRetryable reports whether another attempt could succeed: transport
// failures, 429 and 5xx. Decode errors and "no choices" are final.
func isRetryable(err error) bool {
	if code := statusCode(err); code != 0 {
		return code == http.StatusTooManyRequests || code >= 500
	}
	var netErr *url.Error
	return errors.As(err, &netErr)
}
