package service

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"housing-assistant/internal/config"
	"housing-assistant/internal/logger"
	"housing-assistant/internal/model"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// OpenAIClient handles OpenAI-compatible completion and moderation calls
type OpenAIClient struct {
	config  *config.OpenAIConfig
	client  *openai.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewOpenAIClient creates a client for the configured API base
func NewOpenAIClient(cfg *config.OpenAIConfig, log *logger.Logger) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBase != "" {
		clientCfg.BaseURL = cfg.APIBase
	}
	clientCfg.HTTPClient = &http.Client{
		Timeout: time.Duration(cfg.Timeout) * time.Second,
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &OpenAIClient{
		config:  cfg,
		client:  openai.NewClientWithConfig(clientCfg),
		limiter: rate.NewLimiter(limit, burst),
		log:     log,
	}
}

// IsEnabled returns whether the client is configured and ready
func (c *OpenAIClient) IsEnabled() bool {
	return c.config.Enabled()
}

// ChatCompletion performs a chat completion request
func (c *OpenAIClient) ChatCompletion(ctx context.Context, messages []model.ChatMessage) (string, error) {
	return c.complete(ctx, messages, nil)
}

// ChatCompletionJSON performs a chat completion request in JSON object mode
func (c *OpenAIClient) ChatCompletionJSON(ctx context.Context, messages []model.ChatMessage) (string, error) {
	return c.complete(ctx, messages, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	})
}

func (c *OpenAIClient) complete(ctx context.Context, messages []model.ChatMessage, format *openai.ChatCompletionResponseFormat) (string, error) {
	if !c.IsEnabled() {
		return "", model.ErrAIDisabled
	}

	req := openai.ChatCompletionRequest{
		Model:          c.config.ChatModel,
		Messages:       toOpenAIMessages(messages),
		Temperature:    c.config.ChatTemperature,
		MaxTokens:      c.config.ChatMaxTokens,
		ResponseFormat: format,
	}

	var content string
	err := c.withRetry(ctx, "chat completion", func(ctx context.Context) error {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no choices in completion response")
		}
		content = resp.Choices[0].Message.Content
		c.log.Debug("chat completion done",
			"model", resp.Model,
			"prompt_tokens", resp.Usage.PromptTokens,
			"completion_tokens", resp.Usage.CompletionTokens,
		)
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// Moderate checks text against the moderation endpoint
func (c *OpenAIClient) Moderate(ctx context.Context, text string) (bool, error) {
	if !c.IsEnabled() {
		return false, model.ErrAIDisabled
	}

	req := openai.ModerationRequest{
		Input: text,
		Model: c.config.ModerationModel,
	}

	var flagged bool
	err := c.withRetry(ctx, "moderation", func(ctx context.Context) error {
		resp, err := c.client.Moderations(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Results) == 0 {
			return fmt.Errorf("no results in moderation response")
		}
		flagged = false
		for _, r := range resp.Results {
			if r.Flagged {
				flagged = true
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return flagged, nil
}

// withRetry runs call up to MaxRetries+1 times, waiting on the rate limiter
// before each attempt and backing off with jitter between attempts.
func (c *OpenAIClient) withRetry(ctx context.Context, op string, call func(ctx context.Context) error) error {
	attempts := c.config.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if werr := c.limiter.Wait(ctx); werr != nil {
			return fmt.Errorf("%s: rate limiter: %w", op, werr)
		}

		start := time.Now()
		err = call(ctx)
		if err == nil {
			c.log.Debug("openai call succeeded", "op", op, "attempt", attempt, "duration", time.Since(start))
			return nil
		}

		c.log.Warn("openai call failed", "op", op, "attempt", attempt, "error", err)
		if attempt == attempts {
			break
		}

		backoff := time.Duration(attempt)*time.Second + time.Duration(rand.Intn(500))*time.Millisecond
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, err)
}

func toOpenAIMessages(messages []model.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
