package telegram

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hamyon/hamyon/internal/consts"
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for i := 0; i < len(consts.MenuButtons); i += 2 {
		row := []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(consts.MenuButtons[i])}
		if i+1 < len(consts.MenuButtons) {
			row = append(row, tgbotapi.NewKeyboardButton(consts.MenuButtons[i+1]))
		}
		rows = append(rows, row)
	}

	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

// categoryKeyboard lists every category, two per row.
func categoryKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, c := range consts.Categories {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(c, consts.CallbackCategoryPrefix+c))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func deleteKeyboard(expenseID int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(DeleteButtonText, consts.CallbackDeletePrefix+strconv.Itoa(expenseID)),
	))
}

func removeKeyboard() tgbotapi.ReplyKeyboardRemove {
	return tgbotapi.NewRemoveKeyboard(true)
}
