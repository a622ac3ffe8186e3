// Package openai invokes an OpenAI-compatible chat completion endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/pairchat/internal/domain"
	"github.com/bnema/pairchat/internal/ports"
	openai "github.com/sashabaranov/go-openai"
)

var ErrEmptyCompletion = errors.New("model returned no choices")

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type Client struct {
	api   *openai.Client
	model string
}

var _ ports.ModelClient = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("model name is empty")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{api: openai.NewClientWithConfig(clientConfig), model: cfg.Model}, nil
}

// Complete sends the composed instructions as the system message and the
// user's message as the only user turn.
func (c *Client) Complete(ctx context.Context, req ports.ModelRequest) (ports.ModelResponse, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.Instructions},
			{Role: openai.ChatMessageRoleUser, Content: req.Message},
		},
		User: string(req.AccountID),
	})
	if err != nil {
		return ports.ModelResponse{}, fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ports.ModelResponse{}, ErrEmptyCompletion
	}

	return ports.ModelResponse{
		Text:  resp.Choices[0].Message.Content,
		Usage: usageFrom(resp.Usage),
	}, nil
}

// usageFrom splits cached prompt tokens out of the prompt count so that
// BlendedTotal equals the reported total.
func usageFrom(usage openai.Usage) domain.Usage {
	var cached int64
	if usage.PromptTokensDetails != nil {
		cached = int64(usage.PromptTokensDetails.CachedTokens)
	}

	input := int64(usage.PromptTokens) - cached
	if input < 0 {
		input = 0
	}

	return domain.Usage{
		InputTokens:       input,
		CachedInputTokens: cached,
		OutputTokens:      int64(usage.CompletionTokens),
	}
}
