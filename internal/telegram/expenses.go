package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/hamyon/hamyon/internal/budget"
	"github.com/hamyon/hamyon/internal/charts"
	"github.com/hamyon/hamyon/internal/consts"
	"github.com/hamyon/hamyon/internal/database"
	"github.com/hamyon/hamyon/internal/logger"
	"github.com/hamyon/hamyon/internal/parser"
)

// processExpense stores the expense, confirms it and fans out budget
// alerts and partner notices.
func (b *Bot) processExpense(ctx context.Context, chatID int64, user *database.User, expense parser.Expense, source string) error {
	title := strings.TrimSpace(expense.Title)
	if title == "" {
		title = consts.DefaultRegexTitle
	}
	category := parser.NormalizeCategory(expense.Category)

	result, err := b.store.CreateExpense(ctx, database.NewExpense{
		CreatorID: user.ID,
		Title:     title,
		Amount:    expense.Amount,
		Category:  category,
		Date:      b.now().In(b.loc),
	})
	if errors.Is(err, database.ErrInvalidExpense) {
		b.sendText(ctx, chatID, NotANumberMessage, nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}

	b.metrics.RecordExpenseCreated(source)
	b.sendMenu(ctx, chatID, formatSavedExpense(title, category, expense.Amount, result.LimitReached))

	b.notifyBudget(ctx, result, title, expense.Amount)
	return nil
}

// notifyBudget sends one alert per crossed threshold to the partners and the
// creator and stores it as a notification. Partners hear about the expense
// itself unless the limit was just exhausted.
func (b *Bot) notifyBudget(ctx context.Context, result *database.ExpenseResult, title string, amount float64) {
	recipients := result.AlertRecipients()

	for _, t := range result.Crossed {
		alert := formatAlert(t, result.SpentAfter, result.Limit)
		for _, chatID := range recipients {
			if b.sendHTML(ctx, chatID, alert, nil) != 0 {
				b.metrics.RecordAlertSent(int(t))
			}
		}

		if err := b.store.AddNotifications(ctx, result.AlertUserIDs(), plainText(alert)); err != nil {
			logger.Error("Failed to store budget alert", logger.Fields{
				"error":     err.Error(),
				"threshold": int(t),
				"trace_id":  traceID(ctx),
			})
		}
	}

	if budget.Highest(result.Crossed) == budget.Exhausted {
		return
	}

	notice := formatPartnerNotice(title, amount, result.CreatorName)
	for _, p := range result.Partners {
		b.sendHTML(ctx, p.TelegramID, notice, nil)
	}
}

func (b *Bot) showExpenses(ctx context.Context, chatID int64, user *database.User) error {
	expenses, total, err := b.store.RecentExpenses(ctx, user.ID, consts.RecentExpensesLimit)
	if err != nil {
		return fmt.Errorf("failed to list expenses: %w", err)
	}

	if len(expenses) == 0 {
		b.sendMenu(ctx, chatID, ExpensesEmptyMessage)
		return nil
	}

	b.sendMenu(ctx, chatID, fmt.Sprintf(ExpensesTotalTemplate, parser.FormatAmount(total)))
	for _, e := range expenses {
		var markup interface{}
		if e.OwnedBy(user.ID) {
			markup = deleteKeyboard(e.ID)
		}
		b.sendText(ctx, chatID, formatExpense(e), markup)
	}
	return nil
}

// showStatistics renders this month's charts in parallel and sends them.
func (b *Bot) showStatistics(ctx context.Context, chatID int64, user *database.User) error {
	stats, err := b.store.MonthlyStatistics(ctx, user.ID, b.now().In(b.loc))
	if err != nil {
		return fmt.Errorf("failed to load statistics: %w", err)
	}
	if stats == nil || stats.Empty() {
		b.sendMenu(ctx, chatID, NoDataMessage)
		return nil
	}

	var pie, bars []byte
	var g errgroup.Group
	g.Go(func() error {
		var err error
		pie, err = b.charts.CategoryPie(stats.Categories)
		return err
	})
	g.Go(func() error {
		var err error
		bars, err = b.charts.DailyBars(stats.Daily)
		if errors.Is(err, charts.ErrNoData) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, charts.ErrNoData) {
			b.sendMenu(ctx, chatID, NoDataMessage)
			return nil
		}
		return err
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "kategoriya.png", Bytes: pie})
	photo.Caption = formatStatsCaption(stats)
	if _, err := b.rateLimitedSend(ctx, chatID, photo); err != nil {
		return fmt.Errorf("failed to send pie chart: %w", err)
	}

	if len(bars) > 0 {
		if _, err := b.rateLimitedSend(ctx, chatID, tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "kunlik.png", Bytes: bars})); err != nil {
			return fmt.Errorf("failed to send bar chart: %w", err)
		}
	}
	return nil
}

// sendReport exports every visible expense as a CSV document.
func (b *Bot) sendReport(ctx context.Context, chatID int64, user *database.User) error {
	b.sendText(ctx, chatID, PreparingMessage, nil)

	rows, err := b.store.ExportExpenses(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to export expenses: %w", err)
	}
	if len(rows) == 0 {
		b.sendMenu(ctx, chatID, NoDataMessage)
		return nil
	}

	data, err := b.files.ExpensesCSV(rows)
	if err != nil {
		return err
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: b.files.ReportFilename(), Bytes: data})
	doc.Caption = ReportCaption
	if _, err := b.rateLimitedSend(ctx, chatID, doc); err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}

	logger.Info("Sent expense report", logger.Fields{
		"user_id":  user.ID,
		"rows":     len(rows),
		"trace_id": traceID(ctx),
	})
	return nil
}

// showNotifications lists recent notifications and marks the unread ones read.
func (b *Bot) showNotifications(ctx context.Context, chatID int64, user *database.User) error {
	notifications, err := b.store.RecentNotifications(ctx, user.ID, consts.NotificationsLimit)
	if err != nil {
		return fmt.Errorf("failed to load notifications: %w", err)
	}
	if len(notifications) == 0 {
		b.sendMenu(ctx, chatID, NoNotificationsMessage)
		return nil
	}

	b.sendHTML(ctx, chatID, formatNotifications(notifications, b.loc), nil)

	if unread := database.UnreadIDs(notifications); len(unread) > 0 {
		if err := b.store.MarkNotificationsRead(ctx, user.ID, unread); err != nil {
			return fmt.Errorf("failed to mark notifications read: %w", err)
		}
	}
	return nil
}
