package speech

import (
	"context"
	"fmt"
	"strings"

	"github.com/hamyon/hamyon/internal/llm"
)

// Transcriber is satisfied by llm.Client.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, *llm.Usage, error)
}

// GeminiRecognizer transcribes with a multimodal model.
type GeminiRecognizer struct {
	t Transcriber
}

func NewGeminiRecognizer(t Transcriber) *GeminiRecognizer {
	return &GeminiRecognizer{t: t}
}

func (g *GeminiRecognizer) Name() string { return "gemini" }

func (g *GeminiRecognizer) Recognize(ctx context.Context, audio []byte) (string, error) {
	text, _, err := g.t.Transcribe(ctx, audio, "audio/ogg")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoSpeech
	}
	return strings.TrimSpace(text), nil
}
