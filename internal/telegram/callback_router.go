package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hamyon/hamyon/internal/consts"
	"github.com/hamyon/hamyon/internal/logger"
	"github.com/hamyon/hamyon/internal/parser"
)

const notAllowedText = "⛔ Ruxsat yo'q"

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback.Message == nil || callback.From == nil {
		return nil
	}

	logger.Debug("Handling callback query", logger.Fields{
		"callback_data": callback.Data,
		"chat_id":       callback.Message.Chat.ID,
		"callback_id":   callback.ID,
		"trace_id":      traceID(ctx),
	})

	if b.isDuplicateCallback(callback.ID) {
		logger.Debug("Duplicate callback detected, skipping", logger.Fields{
			"callback_id": callback.ID,
		})
		// still answer so the client stops its spinner
		b.answerCallback(ctx, callback, "")
		return nil
	}

	switch {
	case strings.HasPrefix(callback.Data, consts.CallbackDeletePrefix):
		return b.handleDeleteCallback(ctx, callback)
	case strings.HasPrefix(callback.Data, consts.CallbackCategoryPrefix):
		return b.handleCategoryCallback(ctx, callback)
	}

	logger.Warn("Unknown callback data", logger.Fields{
		"callback_data": callback.Data,
	})
	b.answerCallback(ctx, callback, "")
	return nil
}

// handleDeleteCallback removes an expense the caller created.
func (b *Bot) handleDeleteCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	expenseID, err := strconv.Atoi(strings.TrimPrefix(callback.Data, consts.CallbackDeletePrefix))
	if err != nil {
		b.answerCallback(ctx, callback, "")
		b.editMessage(ctx, chatID, messageID, DeleteFailedMessage)
		return nil
	}

	user, err := b.currentUser(ctx, callback.From.ID)
	if err != nil {
		b.answerCallback(ctx, callback, "")
		return err
	}
	if user == nil {
		b.answerCallback(ctx, callback, notAllowedText)
		b.editMessage(ctx, chatID, messageID, DeleteFailedMessage)
		return nil
	}

	deleted, err := b.store.DeleteExpense(ctx, expenseID, user.ID)
	if err != nil {
		b.answerCallback(ctx, callback, "")
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	if !deleted {
		b.answerCallback(ctx, callback, notAllowedText)
		b.editMessage(ctx, chatID, messageID, DeleteFailedMessage)
		return nil
	}

	b.answerCallback(ctx, callback, "")
	b.editMessage(ctx, chatID, messageID, DeletedMessage)
	return nil
}

// handleCategoryCallback completes the manual expense flow.
func (b *Bot) handleCategoryCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	b.answerCallback(ctx, callback, "")

	chatID := callback.Message.Chat.ID
	userID := callback.From.ID

	category := strings.TrimPrefix(callback.Data, consts.CallbackCategoryPrefix)
	if !consts.IsCategory(category) {
		category = consts.CategoryOther
	}

	user, err := b.currentUser(ctx, userID)
	if err != nil {
		return err
	}

	sess := b.session(userID)
	if user == nil || sess == nil || sess.Title == "" || sess.Amount <= 0 {
		b.clearSession(userID)
		b.editMessage(ctx, chatID, callback.Message.MessageID, SessionExpiredText)
		return nil
	}

	b.clearSession(userID)
	b.editMessage(ctx, chatID, callback.Message.MessageID, fmt.Sprintf(CategoryChosenText, category))

	return b.processExpense(ctx, chatID, user, parser.Expense{
		Title:    sess.Title,
		Amount:   sess.Amount,
		Category: category,
	}, sourceManual)
}
