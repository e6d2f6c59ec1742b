// Package llmclient provides concrete LLM provider clients behind the
// schemas.LLMClient interface.
package llmclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/webpilot-ai/webpilot/api/schemas"
	"github.com/webpilot-ai/webpilot/internal/config"
)

// GeminiClient talks to the Gemini API through the official SDK, with
// exponential backoff on transient failures.
type GeminiClient struct {
	client     *genai.Client
	model      string
	maxRetries uint64
	logger     *zap.Logger
}

var _ schemas.LLMClient = (*GeminiClient)(nil)

// NewGeminiClient builds a client from configuration. The API key comes from
// config, which in turn may be fed from the environment.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	maxRetries := uint64(0)
	if cfg.MaxRetries > 0 {
		maxRetries = uint64(cfg.MaxRetries)
	}

	return &GeminiClient{
		client:     client,
		model:      cfg.Model,
		maxRetries: maxRetries,
		logger:     logger.Named("gemini"),
	}, nil
}

// Generate implements schemas.LLMClient.
func (c *GeminiClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	contents := buildContents(req)
	genCfg := buildGenerateConfig(req)

	var text string
	operation := func() error {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, genCfg)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			c.logger.Warn("Gemini call failed, backing off.", zap.Error(err))
			return err
		}
		text = resp.Text()
		if text == "" {
			return backoff.Permanent(fmt.Errorf("gemini returned an empty response"))
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	return text, nil
}

// Close implements schemas.LLMClient. The SDK client holds no connection
// state that needs explicit release.
func (c *GeminiClient) Close() error { return nil }

// buildContents flattens the labeled context blocks into a single user turn,
// with the optional image attached as an inline part.
func buildContents(req schemas.GenerationRequest) []*genai.Content {
	var sb strings.Builder
	for i, block := range req.Blocks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "## %s\n%s", block.Label, block.Text)
	}

	parts := []*genai.Part{genai.NewPartFromText(sb.String())}
	if req.Image != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, req.Image.MIMEType))
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func buildGenerateConfig(req schemas.GenerationRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Options.Temperature)),
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Options.ForceJSONFormat {
		cfg.ResponseMIMEType = "application/json"
	}
	if req.Options.TopP > 0 {
		cfg.TopP = genai.Ptr(float32(req.Options.TopP))
	}
	if req.Options.TopK > 0 {
		cfg.TopK = genai.Ptr(float32(req.Options.TopK))
	}
	if req.Options.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(req.Options.MaxOutputTokens)
	}
	return cfg
}
