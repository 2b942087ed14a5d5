// Package gemini generates insights with the Gemini generateContent API.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"household/internal/insight"
)

const DefaultModel = "gemini-1.5-flash"

type Client struct {
	client *genai.Client
	model string
}

var _ insight.Generator = (*Client)(nil)

type Option func(*genai.ClientConfig)

// WithBaseURL points the client at another API host.
func WithBaseURL(url string) Option {
	return func(cfg *genai.ClientConfig) { cfg.HTTPOptions.BaseURL = url }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(cfg *genai.ClientConfig) { cfg.HTTPClient = hc }
}

func New(ctx context.Context, apiKey, model string, opts ...Option) (*Client, error) {
	if model == "" {
		model = DefaultModel
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	gc, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: gc, model: model}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return firstText(resp)
}

// firstText joins the text parts of the first candidate, skipping thoughts.
func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", nil
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		if cand.FinishReason != "" && cand.FinishReason != genai.FinishReasonStop {
			return "", fmt.Errorf("gemini stopped: %s", cand.FinishReason)
		}
		return "", nil
	}
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String(), nil
}
