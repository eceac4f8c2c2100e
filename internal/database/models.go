package database

import (
	"time"

	"github.com/hamyon/hamyon/internal/budget"
)

// User is a registered bot user.
type User struct {
	ID          int       `db:"user_id" json:"user_id"`
	TelegramID  int64     `db:"telegram_id" json:"telegram_id"`
	Username    string    `db:"custom_username" json:"username"`
	FullName    string    `db:"full_name" json:"full_name"`
	BudgetLimit float64   `db:"budget_limit" json:"budget_limit"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// HasLimit reports whether budget alerts are enabled for the user.
func (u *User) HasLimit() bool {
	return u.BudgetLimit > 0
}

// Partner is a user linked for mutual expense visibility.
type Partner struct {
	UserID     int
	TelegramID int64
	FullName   string
}

// NewExpense is the input to CreateExpense.
type NewExpense struct {
	CreatorID int
	Title     string
	Amount    float64
	Category  string
	// Date is the expense day in the bot's time zone
	Date time.Time
}

type Expense struct {
	ID        int       `db:"expense_id" json:"expense_id"`
	CreatorID int       `db:"creator_id" json:"creator_id"`
	Title     string    `db:"title" json:"title"`
	Amount    float64   `db:"amount" json:"amount"`
	Category  string    `db:"category" json:"category"`
	Date      time.Time `db:"expense_date" json:"expense_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ExpenseView is an expense as seen by one viewer, with the creator's name.
type ExpenseView struct {
	Expense
	CreatorName string `json:"creator_name"`
}

// OwnedBy reports whether userID created the expense.
func (e *ExpenseView) OwnedBy(userID int) bool {
	return e.CreatorID == userID
}

// ExpenseResult describes a committed expense and its budget effect.
type ExpenseResult struct {
	Expense           *Expense
	CreatorName       string
	CreatorTelegramID int64
	Partners          []Partner
	Limit             float64
	SpentBefore       float64
	SpentAfter        float64
	Crossed           []budget.Threshold
	LimitReached      bool
}

// AlertRecipients returns the telegram IDs of partners followed by the creator.
func (r *ExpenseResult) AlertRecipients() []int64 {
	ids := make([]int64, 0, len(r.Partners)+1)
	for _, p := range r.Partners {
		ids = append(ids, p.TelegramID)
	}
	return append(ids, r.CreatorTelegramID)
}

// AlertUserIDs returns the internal user IDs of partners followed by the creator.
func (r *ExpenseResult) AlertUserIDs() []int {
	ids := make([]int, 0, len(r.Partners)+1)
	for _, p := range r.Partners {
		ids = append(ids, p.UserID)
	}
	return append(ids, r.Expense.CreatorID)
}

type CategoryTotal struct {
	Category string
	Total    float64
}

type DailyTotal struct {
	Day   time.Time
	Total float64
}

// Statistics aggregates one month of expenses visible to a user.
type Statistics struct {
	Month      time.Time
	Categories []CategoryTotal
	Daily      []DailyTotal
	Total      float64
	Limit      float64
}

// Empty reports whether the month has no expenses.
func (s *Statistics) Empty() bool {
	return len(s.Categories) == 0
}

type Notification struct {
	ID        int       `db:"notification_id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Message   string    `db:"message" json:"message"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// monthBounds returns the first day of t's month and of the next month.
func monthBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}

const dateLayout = "2006-01-02"
