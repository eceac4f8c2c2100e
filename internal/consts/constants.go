package consts

// Expense categories
const (
	CategoryFood          = "Oziq-ovqat"
	CategoryTransport     = "Transport"
	CategoryHousehold     = "Uy-ro'zg'or"
	CategoryCommunication = "Aloqa"
	CategoryHealth        = "Sog'liq"
	CategoryClothes       = "Kiyim"
	CategoryFun           = "O'yin-kulgi"
	CategoryEducation     = "Ta'lim"
	CategoryOther         = "Boshqa"
)

// Categories lists every category in keyboard order.
var Categories = []string{
	CategoryFood,
	CategoryTransport,
	CategoryHousehold,
	CategoryCommunication,
	CategoryHealth,
	CategoryClothes,
	CategoryFun,
	CategoryEducation,
	CategoryOther,
}

// Main menu buttons
const (
	ButtonNewExpense    = "➕ Yangi harajat"
	ButtonExpenses      = "📋 Harajatlar"
	ButtonStatistics    = "📊 Statistika"
	ButtonExport        = "📥 Excel yuklash"
	ButtonSetLimit      = "⚙️ Limit o'rnatish"
	ButtonAddPartner    = "👥 Sherik qo'shish"
	ButtonNotifications = "🔔 Bildirishnomalar"
	ButtonMyID          = "🆔 ID raqamim"
)

// MenuButtons in keyboard order, two per row.
var MenuButtons = []string{
	ButtonNewExpense, ButtonExpenses,
	ButtonStatistics, ButtonExport,
	ButtonSetLimit, ButtonAddPartner,
	ButtonNotifications, ButtonMyID,
}

// Callback data prefixes
const (
	CallbackDeletePrefix   = "del_"
	CallbackCategoryPrefix = "cat_"
)

// Conversation states
const (
	StateChoosingUsername = "choosing_username"
	StateExpenseTitle     = "exp_title"
	StateExpenseAmount    = "exp_amount"
	StateExpenseCategory  = "exp_category"
	StateSettingLimit     = "setting_limit"
	StateAddingPartner    = "adding_partner"
)

// Limits
const (
	UsernameMinLength   = 3
	UsernameMaxLength   = 32
	RecentExpensesLimit = 10
	NotificationsLimit  = 10
	ReportFilename      = "Hisobot.csv"
	Currency            = "so'm"
)

// Default titles when nothing usable was extracted
const (
	DefaultAITitle    = "Nomsiz"
	DefaultRegexTitle = "Nomsiz harajat"
)

// Telegram
const (
	ParseModeHTML = "HTML"
)

// IsCategory reports whether c is a known category.
func IsCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// IsMenuButton reports whether text is one of the main menu labels.
func IsMenuButton(text string) bool {
	for _, v := range MenuButtons {
		if v == text {
			return true
		}
	}
	return false
}
