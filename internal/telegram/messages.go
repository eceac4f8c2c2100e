package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/hamyon/hamyon/internal/budget"
	"github.com/hamyon/hamyon/internal/consts"
	"github.com/hamyon/hamyon/internal/database"
	"github.com/hamyon/hamyon/internal/parser"
)

// User-facing message templates

const (
	// Registration
	WelcomeNewUserMessage   = "🤖 <b>Aqlli Hamyon</b>ga xush kelibsiz!\nIltimos, ro'yxatdan o'tish uchun <b>username</b> tanlang:"
	WelcomeBackTemplate     = "Xush kelibsiz, <b>%s</b>!"
	RegisteredMessage       = "✅ Muvaffaqiyatli ro'yxatdan o'tdingiz!"
	UsernameTooShortMessage = "Username juda qisqa."
	UsernameTooLongMessage  = "Username juda uzun."
	UsernameTakenMessage    = "Bu username band!"
	StartFirstMessage       = "Avval /start bosing."

	HelpTemplate = "<b>Yordam</b>\n" +
		"- Harajat qo'shish: ➕ Yangi harajat yoki matnni bevosita yozing (masalan: <i>taksi 15 ming</i>)\n" +
		"- Ovoz: voice yuboring (%d s gacha)\n" +
		"- Limit: ⚙️ Limit o'rnatish, 0 limitni o'chiradi\n" +
		"- Sherik: 👥 Sherik qo'shish va uning ID raqamini yuboring\n" +
		"- Bildirishnomalar: 🔔 Bildirishnomalar\n" +
		"- Bekor qilish: /cancel"

	CancelledMessage             = "✅ Bekor qilindi."
	CancelledUnregisteredMessage = "✅ Bekor qilindi. /start bosing."

	// Manual expense flow
	AskTitleMessage     = "Nomi:"
	AskAmountMessage    = "Summa:"
	AskCategoryMessage  = "Kategoriya tanlang:"
	NotANumberMessage   = "Raqam yozing!"
	CategoryChosenText  = "✅ Kategoriya: %s"
	SessionExpiredText  = "❌ Jarayon eskirib qolgan. Qaytadan urinib ko'ring."
	FreeTextHintMessage = "🤔 Summani topa olmadim. Masalan: <i>non 5000</i> yoki ➕ Yangi harajat tugmasini bosing."

	// Expense list and reports
	ExpensesEmptyMessage  = "📭 Bo'sh"
	ExpensesTotalTemplate = "💰 <b>JAMI: %s so'm</b>"
	DeleteButtonText      = "🗑 O'chirish"
	DeletedMessage        = "🗑 O'chirildi!"
	DeleteFailedMessage   = "❌ Xatolik"
	PreparingMessage      = "⏳ Tayyorlanmoqda..."
	NoDataMessage         = "Ma'lumot yo'q"
	ReportCaption         = "📊 To'liq hisobot"

	// Limit and partners
	AskLimitMessage        = "Summa:"
	LimitSetMessage        = "✅ Limit o'rnatildi!"
	LimitDisabledMessage   = "✅ Limit o'chirildi."
	AskPartnerMessage      = "ID raqam:"
	PartnerLinkedTemplate  = "✅ %s ulandi!"
	PartnerNotFoundMessage = "❌ ID topilmadi!"
	PartnerSelfMessage     = "❌ O'zingizni qo'sha olmaysiz!"
	PartnerInvalidMessage  = "❌ ID raqam noto'g'ri."
	MyIDTemplate           = "🆔 ID: <code>%d</code>\n👤 Username: <code>%s</code>"

	NoNotificationsMessage = "🔔 Bildirishnoma yo'q"

	// Voice
	ListeningMessage        = "🎤 Eshitayapman (AI)..."
	VoiceTooLongTemplate    = "❌ Ovoz juda uzun. Iltimos %d soniyadan qisqa yuboring."
	VoiceHeardTemplate      = "🗣 <b>Eshitdim:</b> \"%s\"\nSummani yozing:"
	VoiceNoSpeechMessage    = "❌ Ovoz aniq tushunilmadi. Iltimos sekinroq va yaqinroq gapirib qayta yuboring."
	VoiceUnavailableMessage = "❌ Ovoz tanish xizmati vaqtincha ishlamayapti. Keyinroq urinib ko'ring."
	VoiceFailedMessage      = "❌ Tushunmadim yoki xatolik."

	GenericErrorMessage = "❌ Xatolik yuz berdi. Keyinroq urinib ko'ring."

	OverLimitMarker = "\n🚨 <i>Oylik limitdan oshdingiz</i>"
)

// formatSavedExpense confirms a stored expense to its creator. overLimit marks
// a group total at or past the monthly limit.
func formatSavedExpense(title, category string, amount float64, overLimit bool) string {
	text := fmt.Sprintf("✅ <b>Saqlandi!</b>\n📝 %s\n📂 %s\n💰 <b>%s %s</b>",
		html.EscapeString(title), html.EscapeString(category), parser.FormatAmount(amount), consts.Currency)
	if overLimit {
		text += OverLimitMarker
	}
	return text
}

// formatAlert renders the message for one crossed threshold.
func formatAlert(t budget.Threshold, spent, limit float64) string {
	usage := fmt.Sprintf("Sarflandi: %s / %s", parser.FormatAmount(spent), parser.FormatAmount(limit))
	if t == budget.Exhausted {
		return "🚨 <b>DIQQAT! LIMIT OSHDI!</b>\n" + usage
	}
	return fmt.Sprintf("⚠️ <b>Limit %d%% ga yetdi</b>\n%s", int(t), usage)
}

func formatPartnerNotice(title string, amount float64, creator string) string {
	return fmt.Sprintf("🆕 <b>%s</b>: %s %s (%s)",
		html.EscapeString(title), parser.FormatAmount(amount), consts.Currency, html.EscapeString(creator))
}

func formatExpense(e database.ExpenseView) string {
	return fmt.Sprintf("🗓 %s\n💸 %s\n📂 %s\n👤 %s",
		e.Title, parser.FormatAmount(e.Amount), e.Category, e.CreatorName)
}

// formatNotifications renders newest-first notifications, marking unread ones.
func formatNotifications(ns []database.Notification, loc *time.Location) string {
	lines := make([]string, 0, len(ns))
	for _, n := range ns {
		mark := "✅"
		if !n.IsRead {
			mark = "🆕"
		}
		lines = append(lines, fmt.Sprintf("%s <i>%s</i>\n%s", mark, n.CreatedAt.In(loc).Format("02.01 15:04"), html.EscapeString(n.Message)))
	}
	return strings.Join(lines, "\n\n")
}

// formatStatsCaption summarises a month for the chart caption.
func formatStatsCaption(stats *database.Statistics) string {
	caption := fmt.Sprintf("📊 %s\nJami: %s %s",
		stats.Month.Format("01.2006"), parser.FormatAmount(stats.Total), consts.Currency)
	if stats.Limit > 0 {
		caption += fmt.Sprintf("\nLimit: %s %s (%.0f%%)",
			parser.FormatAmount(stats.Limit), consts.Currency, budget.UsagePercent(stats.Total, stats.Limit))
	}
	return caption
}

var tagStripper = strings.NewReplacer("<b>", "", "</b>", "", "<i>", "", "</i>", "")

// plainText drops the formatting tags used in alerts so they can be stored.
func plainText(s string) string {
	return tagStripper.Replace(s)
}
