package telegram

import (
	"context"
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hamyon/hamyon/internal/consts"
	"github.com/hamyon/hamyon/internal/logger"
)

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) error {
	command := message.Command()

	logger.Debug("Processing command", logger.Fields{
		"command":  command,
		"user_id":  message.From.ID,
		"trace_id": traceID(ctx),
	})

	switch command {
	case "start":
		return b.handleStartCommand(ctx, message)
	case "help":
		return b.handleHelpCommand(ctx, message)
	case "cancel":
		return b.handleCancelCommand(ctx, message)
	default:
		return b.handleHelpCommand(ctx, message)
	}
}

// handleStartCommand greets a registered user or begins registration.
func (b *Bot) handleStartCommand(ctx context.Context, message *tgbotapi.Message) error {
	userID := message.From.ID

	user, err := b.currentUser(ctx, userID)
	if err != nil {
		return err
	}

	if user != nil {
		b.clearSession(userID)
		b.sendMenu(ctx, message.Chat.ID, fmt.Sprintf(WelcomeBackTemplate, html.EscapeString(user.FullName)))
		return nil
	}

	b.setSession(userID, &Session{State: consts.StateChoosingUsername})
	b.sendHTML(ctx, message.Chat.ID, WelcomeNewUserMessage, removeKeyboard())
	return nil
}

func (b *Bot) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) error {
	b.sendHTML(ctx, message.Chat.ID, fmt.Sprintf(HelpTemplate, b.config.MaxVoiceSeconds), nil)
	return nil
}

func (b *Bot) handleCancelCommand(ctx context.Context, message *tgbotapi.Message) error {
	b.clearSession(message.From.ID)

	user, err := b.currentUser(ctx, message.From.ID)
	if err != nil {
		return err
	}
	if user == nil {
		b.sendText(ctx, message.Chat.ID, CancelledUnregisteredMessage, nil)
		return nil
	}

	b.sendMenu(ctx, message.Chat.ID, CancelledMessage)
	return nil
}
