// Package speech turns Telegram voice notes into text.
package speech

import (
	"context"
	"errors"

	"github.com/hamyon/hamyon/internal/logger"
)

var (
	// ErrNoSpeech means the audio was processed but nothing intelligible was heard.
	ErrNoSpeech = errors.New("no speech recognized")
	// ErrUnavailable means the recognition service could not be reached.
	ErrUnavailable = errors.New("speech recognition unavailable")
)

// Recognizer converts OGG/Opus audio to text.
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte) (string, error)
	Name() string
}

// Chain tries recognizers in order. A recognizer that heard nothing ends
// the chain; an unavailable one hands over to the next.
type Chain []Recognizer

func (c Chain) Name() string { return "chain" }

func (c Chain) Recognize(ctx context.Context, audio []byte) (string, error) {
	if len(c) == 0 {
		return "", ErrUnavailable
	}

	err := ErrUnavailable
	for _, r := range c {
		var text string
		text, err = r.Recognize(ctx, audio)
		if err == nil {
			return text, nil
		}
		if errors.Is(err, ErrNoSpeech) || ctx.Err() != nil {
			return "", err
		}
		logger.Warn("Speech recognizer failed, trying next", logger.Fields{
			"recognizer": r.Name(),
			"error":      err.Error(),
		})
	}
	return "", err
}
