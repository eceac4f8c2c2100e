package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hamyon/hamyon/internal/consts"
	"github.com/hamyon/hamyon/internal/database"
	"github.com/hamyon/hamyon/internal/logger"
	"github.com/hamyon/hamyon/internal/parser"
)

// Expense input sources for metrics
const (
	sourceText   = "text"
	sourceVoice  = "voice"
	sourceManual = "manual"
)

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	if message.From == nil {
		return nil
	}

	if message.Voice != nil {
		return b.handleVoiceMessage(ctx, message)
	}

	if message.IsCommand() {
		return b.handleCommand(ctx, message)
	}

	text := strings.TrimSpace(message.Text)
	if text == "" {
		logger.Debug("Ignoring message without text", logger.Fields{
			"user_id": message.From.ID,
		})
		return nil
	}

	userID := message.From.ID
	sess := b.session(userID)

	if sess != nil && sess.State == consts.StateChoosingUsername {
		return b.handleUsername(ctx, message, text)
	}

	user, err := b.currentUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		b.sendText(ctx, message.Chat.ID, StartFirstMessage, nil)
		return nil
	}

	// menu buttons win over any pending state
	if consts.IsMenuButton(text) {
		b.clearSession(userID)
		return b.handleMenuButton(ctx, message, user, text)
	}

	if sess != nil {
		return b.handleState(ctx, message, user, sess, text)
	}

	return b.handleFreeText(ctx, message, user, text)
}

func (b *Bot) handleUsername(ctx context.Context, message *tgbotapi.Message, username string) error {
	chatID := message.Chat.ID

	switch n := utf8.RuneCountInString(username); {
	case n < consts.UsernameMinLength:
		b.sendText(ctx, chatID, UsernameTooShortMessage, nil)
		return nil
	case n > consts.UsernameMaxLength:
		b.sendText(ctx, chatID, UsernameTooLongMessage, nil)
		return nil
	}

	user, err := b.store.RegisterUser(ctx, message.From.ID, username, fullName(message.From))
	switch {
	case errors.Is(err, database.ErrUsernameTaken):
		b.sendText(ctx, chatID, UsernameTakenMessage, nil)
		return nil
	case errors.Is(err, database.ErrAlreadyRegistered):
		b.clearSession(message.From.ID)
		b.invalidateUser(message.From.ID)
		return b.handleStartCommand(ctx, message)
	case err != nil:
		return fmt.Errorf("failed to register user: %w", err)
	}

	b.clearSession(message.From.ID)
	b.users.Set(message.From.ID, user)
	b.sendMenu(ctx, chatID, RegisteredMessage)
	return nil
}

// fullName joins the Telegram first and last name.
func fullName(u *tgbotapi.User) string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		name = u.UserName
	}
	return name
}

func (b *Bot) handleMenuButton(ctx context.Context, message *tgbotapi.Message, user *database.User, button string) error {
	chatID := message.Chat.ID
	userID := message.From.ID

	switch button {
	case consts.ButtonNewExpense:
		b.setSession(userID, &Session{State: consts.StateExpenseTitle})
		b.sendText(ctx, chatID, AskTitleMessage, removeKeyboard())
	case consts.ButtonExpenses:
		return b.showExpenses(ctx, chatID, user)
	case consts.ButtonStatistics:
		return b.showStatistics(ctx, chatID, user)
	case consts.ButtonExport:
		return b.sendReport(ctx, chatID, user)
	case consts.ButtonSetLimit:
		b.setSession(userID, &Session{State: consts.StateSettingLimit})
		b.sendText(ctx, chatID, AskLimitMessage, removeKeyboard())
	case consts.ButtonAddPartner:
		b.setSession(userID, &Session{State: consts.StateAddingPartner})
		b.sendText(ctx, chatID, AskPartnerMessage, removeKeyboard())
	case consts.ButtonNotifications:
		return b.showNotifications(ctx, chatID, user)
	case consts.ButtonMyID:
		b.sendHTML(ctx, chatID, fmt.Sprintf(MyIDTemplate, user.ID, html.EscapeString(user.Username)), nil)
	}
	return nil
}

// handleState advances the conversation the user is in.
func (b *Bot) handleState(ctx context.Context, message *tgbotapi.Message, user *database.User, sess *Session, text string) error {
	chatID := message.Chat.ID
	userID := message.From.ID

	switch sess.State {
	case consts.StateExpenseTitle:
		sess.Title = text
		sess.State = consts.StateExpenseAmount
		b.setSession(userID, sess)
		b.sendText(ctx, chatID, AskAmountMessage, nil)

	case consts.StateExpenseAmount:
		amount, err := parser.ParseAmount(text)
		if err != nil {
			b.sendText(ctx, chatID, NotANumberMessage, nil)
			return nil
		}
		sess.Amount = amount
		sess.State = consts.StateExpenseCategory
		b.setSession(userID, sess)
		b.sendText(ctx, chatID, AskCategoryMessage, categoryKeyboard())

	case consts.StateExpenseCategory:
		b.sendText(ctx, chatID, AskCategoryMessage, categoryKeyboard())

	case consts.StateSettingLimit:
		return b.handleLimitInput(ctx, message, user, text)

	case consts.StateAddingPartner:
		return b.handlePartnerInput(ctx, message, user, text)

	default:
		b.clearSession(userID)
		return b.handleFreeText(ctx, message, user, text)
	}
	return nil
}

func (b *Bot) handleLimitInput(ctx context.Context, message *tgbotapi.Message, user *database.User, text string) error {
	limit, err := parser.ParseLimit(text)
	if err != nil {
		b.sendText(ctx, message.Chat.ID, NotANumberMessage, nil)
		return nil
	}

	if err := b.store.SetBudgetLimit(ctx, user.ID, limit); err != nil {
		return fmt.Errorf("failed to set limit: %w", err)
	}

	b.invalidateUser(message.From.ID)
	b.clearSession(message.From.ID)

	logger.Info("Budget limit updated", logger.Fields{
		"user_id":  user.ID,
		"limit":    limit,
		"trace_id": traceID(ctx),
	})

	if limit == 0 {
		b.sendMenu(ctx, message.Chat.ID, LimitDisabledMessage)
	} else {
		b.sendMenu(ctx, message.Chat.ID, LimitSetMessage)
	}
	return nil
}

func (b *Bot) handlePartnerInput(ctx context.Context, message *tgbotapi.Message, user *database.User, text string) error {
	partnerID, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || partnerID <= 0 {
		b.sendText(ctx, message.Chat.ID, PartnerInvalidMessage, nil)
		return nil
	}

	partner, err := b.store.AddPartner(ctx, user.ID, partnerID)
	b.clearSession(message.From.ID)

	switch {
	case errors.Is(err, database.ErrSelfPartner):
		b.sendMenu(ctx, message.Chat.ID, PartnerSelfMessage)
	case errors.Is(err, database.ErrUserNotFound):
		b.sendMenu(ctx, message.Chat.ID, PartnerNotFoundMessage)
	case err != nil:
		return fmt.Errorf("failed to add partner: %w", err)
	default:
		b.sendMenu(ctx, message.Chat.ID, fmt.Sprintf(PartnerLinkedTemplate, html.EscapeString(partner.FullName)))
	}
	return nil
}

// handleFreeText treats a message outside any flow as a possible expense.
func (b *Bot) handleFreeText(ctx context.Context, message *tgbotapi.Message, user *database.User, text string) error {
	expense, source := b.analyzer.AnalyzeExpense(ctx, text)
	b.metrics.RecordParserResult(string(source))

	if !expense.HasAmount() {
		b.sendHTML(ctx, message.Chat.ID, FreeTextHintMessage, nil)
		return nil
	}
	return b.processExpense(ctx, message.Chat.ID, user, expense, sourceText)
}
