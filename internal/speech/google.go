package speech

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	speechapi "google.golang.org/api/speech/v1"

	"github.com/hamyon/hamyon/internal/logger"
)

const (
	telegramVoiceEncoding   = "OGG_OPUS"
	telegramVoiceSampleRate = 48000
	recognizeAttempts       = 2
)

// GoogleRecognizer calls the Cloud Speech-to-Text v1 REST API.
type GoogleRecognizer struct {
	svc        *speechapi.Service
	language   string
	retryDelay time.Duration
}

// NewGoogleRecognizer authenticates with an API key unless opts override it.
func NewGoogleRecognizer(ctx context.Context, apiKey, language string, opts ...option.ClientOption) (*GoogleRecognizer, error) {
	if apiKey != "" {
		opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	}
	svc, err := speechapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech service: %w", err)
	}
	return &GoogleRecognizer{
		svc:        svc,
		language:   language,
		retryDelay: 400 * time.Millisecond,
	}, nil
}

func (g *GoogleRecognizer) Name() string { return "google" }

// Recognize sends the audio once and retries a single time on request errors.
func (g *GoogleRecognizer) Recognize(ctx context.Context, audio []byte) (string, error) {
	req := &speechapi.RecognizeRequest{
		Config: &speechapi.RecognitionConfig{
			Encoding:                   telegramVoiceEncoding,
			SampleRateHertz:            telegramVoiceSampleRate,
			LanguageCode:               g.language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechapi.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(audio),
		},
	}

	var lastErr error
	for attempt := 1; attempt <= recognizeAttempts; attempt++ {
		resp, err := g.svc.Speech.Recognize(req).Context(ctx).Do()
		if err == nil {
			text := transcript(resp)
			if text == "" {
				return "", ErrNoSpeech
			}
			return text, nil
		}

		lastErr = err
		if ctx.Err() != nil || !retryable(err) {
			break
		}
		logger.Warn("Speech request failed", logger.Fields{
			"attempt": attempt,
			"error":   err.Error(),
		})

		if attempt < recognizeAttempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(g.retryDelay):
			}
		}
	}

	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// retryable treats transport failures, throttling and server errors as
// transient.
func retryable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	return true
}

func transcript(resp *speechapi.RecognizeResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, r := range resp.Results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
