package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/hamyon/hamyon/internal/consts"
	"github.com/hamyon/hamyon/internal/logger"
)

// chatLimiter returns the limiter for chatID, creating it on first use.
// Idle limiters expire from the cache.
func (b *Bot) chatLimiter(chatID int64) *rate.Limiter {
	if limiter, ok := b.chatLimiters.Get(chatID); ok {
		return limiter
	}

	limiter := rate.NewLimiter(rate.Limit(chatRateLimit), chatRateBurst)
	if !b.chatLimiters.Add(chatID, limiter) {
		if existing, ok := b.chatLimiters.Get(chatID); ok {
			return existing
		}
	}
	return limiter
}

func (b *Bot) waitLimiters(ctx context.Context, chatID int64) error {
	if err := b.globalLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("global rate limiter error: %w", err)
	}
	if err := b.chatLimiter(chatID).Wait(ctx); err != nil {
		return fmt.Errorf("chat rate limiter error: %w", err)
	}
	return nil
}

// rateLimitedSend sends a message with rate limiting
func (b *Bot) rateLimitedSend(ctx context.Context, chatID int64, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := b.waitLimiters(ctx, chatID); err != nil {
		return tgbotapi.Message{}, err
	}

	msg, err := b.api.Send(c)
	if err != nil {
		b.metrics.RecordSendError()
	}
	return msg, err
}

// rateLimitedRequest is rateLimitedSend for calls that return no message,
// such as callback answers and deletions.
func (b *Bot) rateLimitedRequest(ctx context.Context, chatID int64, c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if err := b.waitLimiters(ctx, chatID); err != nil {
		return nil, err
	}

	resp, err := b.api.Request(c)
	if err != nil {
		b.metrics.RecordSendError()
	}
	return resp, err
}

// sendHTML sends an HTML message. markup may be nil.
func (b *Bot) sendHTML(ctx context.Context, chatID int64, text string, markup interface{}) int {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = consts.ParseModeHTML
	return b.send(ctx, chatID, msg, markup)
}

// sendText sends a message without parsing, for user-provided content.
func (b *Bot) sendText(ctx context.Context, chatID int64, text string, markup interface{}) int {
	return b.send(ctx, chatID, tgbotapi.NewMessage(chatID, text), markup)
}

func (b *Bot) send(ctx context.Context, chatID int64, msg tgbotapi.MessageConfig, markup interface{}) int {
	if markup != nil {
		msg.ReplyMarkup = markup
	}

	sent, err := b.rateLimitedSend(ctx, chatID, msg)
	if err != nil {
		logger.Error("Failed to send message", logger.Fields{
			"error":    err.Error(),
			"chat_id":  chatID,
			"trace_id": traceID(ctx),
		})
		return 0
	}
	return sent.MessageID
}

// sendMenu sends text together with the main menu keyboard.
func (b *Bot) sendMenu(ctx context.Context, chatID int64, text string) {
	b.sendHTML(ctx, chatID, text, mainMenuKeyboard())
}

func (b *Bot) editMessage(ctx context.Context, chatID int64, messageID int, text string) {
	if messageID == 0 {
		b.sendHTML(ctx, chatID, text, nil)
		return
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = consts.ParseModeHTML
	if _, err := b.rateLimitedSend(ctx, chatID, edit); err != nil {
		logger.Error("Failed to edit message", logger.Fields{
			"error":      err.Error(),
			"chat_id":    chatID,
			"message_id": messageID,
			"trace_id":   traceID(ctx),
		})
	}
}

func (b *Bot) deleteMessage(ctx context.Context, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if _, err := b.rateLimitedRequest(ctx, chatID, tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		logger.Warn("Failed to delete message", logger.Fields{
			"error":      err.Error(),
			"chat_id":    chatID,
			"message_id": messageID,
		})
	}
}

func (b *Bot) answerCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, text string) {
	if _, err := b.rateLimitedRequest(ctx, callback.Message.Chat.ID, tgbotapi.NewCallback(callback.ID, text)); err != nil {
		logger.Warn("Failed to answer callback query", logger.Fields{
			"error":       err.Error(),
			"callback_id": callback.ID,
		})
	}
}

// isDuplicateCallback records callbackID and reports whether it was
// already seen within the dedup window.
func (b *Bot) isDuplicateCallback(callbackID string) bool {
	return !b.processedCallbacks.Add(callbackID, struct{}{})
}

// downloadFile fetches a file uploaded to Telegram.
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	f, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	fileURL := fmt.Sprintf(b.fileEndpoint, b.token, f.FilePath)
	logger.Debug("Downloading file from Telegram", logger.Fields{
		"file_id":   fileID,
		"file_size": f.FileSize,
		"trace_id":  traceID(ctx),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}
	return data, nil
}
