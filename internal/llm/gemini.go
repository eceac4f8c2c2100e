package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/hamyon/hamyon/internal/config"
	"github.com/hamyon/hamyon/internal/logger"
)

// GeminiSDKClient wraps the official Google Gemini Go SDK
type GeminiSDKClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiSDKClient creates a new Gemini client using the official Google SDK
func NewGeminiSDKClient(ctx context.Context, cfg *config.Config) (*GeminiSDKClient, error) {
	if cfg == nil || cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiSDKClient{
		client:    client,
		modelName: cfg.GeminiModel,
	}, nil
}

// generationConfig keeps answers short and deterministic, with thinking off.
func generationConfig(mimeType string, maxTokens int32) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.1)),
		TopP:             genai.Ptr(float32(0.8)),
		MaxOutputTokens:  maxTokens,
		ResponseMIMEType: mimeType,
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(0)),
		},
	}
}

// Generate sends contents to the model and returns the concatenated text of
// the first candidate.
func (gc *GeminiSDKClient) Generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, *Usage, error) {
	if gc == nil || gc.client == nil {
		return "", nil, fmt.Errorf("gemini SDK client not initialized")
	}

	resp, err := gc.client.Models.GenerateContent(ctx, gc.modelName, contents, cfg)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate content: %w", err)
	}

	logger.Debug("Gemini SDK Response", logger.Fields{
		"model":            gc.modelName,
		"candidates_count": len(resp.Candidates),
	})

	if len(resp.Candidates) == 0 {
		return "", nil, fmt.Errorf("no candidates in Gemini response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", nil, fmt.Errorf("no content parts in Gemini response")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}

	var usage *Usage
	if resp.UsageMetadata != nil {
		usage = &Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return strings.TrimSpace(sb.String()), usage, nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (gc *GeminiSDKClient) Close() error {
	return nil
}
