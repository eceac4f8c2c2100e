package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hamyon/hamyon/internal/consts"
	"github.com/hamyon/hamyon/internal/logger"
	"github.com/hamyon/hamyon/internal/metrics"
	"github.com/hamyon/hamyon/internal/speech"
)

// handleVoiceMessage transcribes a voice note and records the expense it
// describes. Without an amount the heard text becomes the title of a manual
// entry awaiting its amount.
func (b *Bot) handleVoiceMessage(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	userID := message.From.ID

	user, err := b.currentUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		b.sendText(ctx, chatID, StartFirstMessage, nil)
		return nil
	}

	waitID := b.sendText(ctx, chatID, ListeningMessage, nil)

	if message.Voice.Duration > b.config.MaxVoiceSeconds {
		b.editMessage(ctx, chatID, waitID, fmt.Sprintf(VoiceTooLongTemplate, b.config.MaxVoiceSeconds))
		return nil
	}

	if b.recognizer == nil {
		b.editMessage(ctx, chatID, waitID, VoiceUnavailableMessage)
		return nil
	}

	audio, err := b.downloadFile(ctx, message.Voice.FileID)
	if err != nil {
		logger.Error("Failed to download voice", logger.Fields{
			"error":    err.Error(),
			"user_id":  userID,
			"trace_id": traceID(ctx),
		})
		b.editMessage(ctx, chatID, waitID, VoiceFailedMessage)
		return nil
	}

	text, err := b.recognizer.Recognize(ctx, audio)
	if err != nil {
		b.metrics.RecordSpeechRequest(metrics.StatusError)
		logger.Warn("Voice recognition failed", logger.Fields{
			"error":    err.Error(),
			"user_id":  userID,
			"duration": message.Voice.Duration,
			"trace_id": traceID(ctx),
		})

		switch {
		case errors.Is(err, speech.ErrNoSpeech):
			b.editMessage(ctx, chatID, waitID, VoiceNoSpeechMessage)
		case errors.Is(err, speech.ErrUnavailable):
			b.editMessage(ctx, chatID, waitID, VoiceUnavailableMessage)
		default:
			b.editMessage(ctx, chatID, waitID, VoiceFailedMessage)
		}
		return nil
	}
	b.metrics.RecordSpeechRequest(metrics.StatusOK)
	b.deleteMessage(ctx, chatID, waitID)

	expense, source := b.analyzer.AnalyzeExpense(ctx, text)
	b.metrics.RecordParserResult(string(source))

	if expense.HasAmount() {
		return b.processExpense(ctx, chatID, user, expense, sourceVoice)
	}

	b.setSession(userID, &Session{State: consts.StateExpenseAmount, Title: text})
	b.sendHTML(ctx, chatID, fmt.Sprintf(VoiceHeardTemplate, html.EscapeString(text)), nil)
	return nil
}
