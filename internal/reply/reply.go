// Package reply produces the AI side of a chat turn.
package reply

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/wuwenbin0122/vishai/internal/utils"
)

const (
	FallbackReply = "Sorry, I could not generate a reply."
	EmptyReply    = "No response"

	defaultModel   = "gemini-2.5-flash"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
)

var errMissingAPIKey = errors.New("reply: GEMINI_API_KEY is not set")

// Generator maps a user message to a reply. Implementations never fail; a
// provider error turns into FallbackReply.
type Generator interface {
	Reply(ctx context.Context, text string) string
}

type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client calls an OpenAI-compatible chat completion endpoint (Gemini by
// default) with a single-turn prompt.
type Client struct {
	api     completer
	model   string
	timeout time.Duration
	hasKey  bool
	logger  *zap.SugaredLogger
}

func NewClient(cfg utils.GeminiConfig, logger *zap.SugaredLogger) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = baseURL

	return &Client{
		api:     openai.NewClientWithConfig(clientCfg),
		model:   model,
		timeout: cfg.Timeout,
		hasKey:  strings.TrimSpace(cfg.APIKey) != "",
		logger:  logger,
	}
}

func (c *Client) Reply(ctx context.Context, text string) string {
	reply, err := c.complete(ctx, text)
	if err != nil {
		c.logger.Warnw("reply generation failed", "model", c.model, "error", err)
		return FallbackReply
	}

	c.logger.Debugw("reply generated", "model", c.model, "chars", len(reply))
	return reply
}

func (c *Client) complete(ctx context.Context, text string) (string, error) {
	if !c.hasKey {
		return "", errMissingAPIKey
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return EmptyReply, nil
	}

	return resp.Choices[0].Message.Content, nil
}

// Func adapts a plain function to Generator.
type Func func(ctx context.Context, text string) string

func (f Func) Reply(ctx context.Context, text string) string {
	return f(ctx, text)
}
