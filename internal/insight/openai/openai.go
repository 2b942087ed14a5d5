// Package openai generates insights through any OpenAI-compatible chat
// completions endpoint.
package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"household/internal/insight"
)

const DefaultModel = "gpt-4o-mini"

type Client struct {
	client *goopenai.Client
	model  string
}

var _ insight.Generator = (*Client)(nil)

// New builds a client. An empty baseURL targets api.openai.com.
func New(apiKey, baseURL, model string) *Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{client: goopenai.NewClientWithConfig(cfg), model: model}
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
