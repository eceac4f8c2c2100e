package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lib/pq"

	"github.com/hamyon/hamyon/internal/budget"
	"github.com/hamyon/hamyon/internal/logger"
)

const visibleExpenseColumns = `e.expense_id, e.creator_id, e.title, e.amount, e.category, e.expense_date, e.created_at, u.full_name`

// CreateExpense stores an expense, shares it with the creator's partners,
// queues their notifications and reports which budget thresholds it crossed.
// Everything happens in one transaction.
func (db *DB) CreateExpense(ctx context.Context, in NewExpense) (*ExpenseResult, error) {
	if db == nil {
		return nil, ErrNotConfigured
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || in.Amount <= 0 || math.IsInf(in.Amount, 0) || math.IsNaN(in.Amount) {
		return nil, ErrInvalidExpense
	}

	start, end := monthBounds(in.Date)
	result := &ExpenseResult{}

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT full_name, telegram_id, budget_limit FROM users WHERE user_id = $1`,
			in.CreatorID,
		).Scan(&result.CreatorName, &result.CreatorTelegramID, &result.Limit)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get creator: %w", err)
		}

		if result.SpentBefore, err = monthlySpentTx(ctx, tx, in.CreatorID, start.Format(dateLayout), end.Format(dateLayout)); err != nil {
			return err
		}

		expense := &Expense{CreatorID: in.CreatorID, Title: in.Title, Amount: in.Amount, Category: in.Category}
		err = tx.QueryRowContext(ctx, `
		INSERT INTO expenses (creator_id, title, amount, category, expense_date)
		VALUES ($1, $2, $3, $4, $5::date)
		RETURNING expense_id, expense_date, created_at`,
			in.CreatorID, in.Title, in.Amount, in.Category, in.Date.Format(dateLayout),
		).Scan(&expense.ID, &expense.Date, &expense.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}
		result.Expense = expense

		if result.Partners, err = partnersTx(ctx, tx, in.CreatorID); err != nil {
			return err
		}

		viewers := []int{in.CreatorID}
		partnerIDs := make([]int, 0, len(result.Partners))
		for _, p := range result.Partners {
			viewers = append(viewers, p.UserID)
			partnerIDs = append(partnerIDs, p.UserID)
		}

		_, err = tx.ExecContext(ctx, `
		INSERT INTO expense_permissions (expense_id, user_id)
		SELECT $1, unnest($2::int[])
		ON CONFLICT (expense_id, user_id) DO NOTHING`, expense.ID, pq.Array(viewers))
		if err != nil {
			return fmt.Errorf("failed to grant expense permissions: %w", err)
		}

		if len(partnerIDs) > 0 {
			if err := addNotificationsTx(ctx, tx, partnerIDs, PartnerNotice(in.Title, in.Amount, result.CreatorName)); err != nil {
				return err
			}
		}

		result.SpentAfter, err = monthlySpentTx(ctx, tx, in.CreatorID, start.Format(dateLayout), end.Format(dateLayout))
		return err
	})
	if err != nil {
		return nil, err
	}

	result.Crossed = budget.Crossed(result.SpentBefore, result.SpentAfter, result.Limit)
	result.LimitReached = budget.Reached(result.SpentAfter, result.Limit)

	logger.Info("Created expense", logger.Fields{
		"expense_id": result.Expense.ID,
		"creator_id": in.CreatorID,
		"amount":     in.Amount,
		"category":   in.Category,
		"partners":   len(result.Partners),
		"crossed":    result.Crossed,
	})
	return result, nil
}

// PartnerNotice is the notification text stored for partners of a new expense.
func PartnerNotice(title string, amount float64, creator string) string {
	return fmt.Sprintf("🆕 %s: %s (%s)", title, humanize.Comma(int64(math.Round(amount))), creator)
}

func monthlySpentTx(ctx context.Context, tx *sql.Tx, creatorID int, from, to string) (float64, error) {
	var spent float64
	err := tx.QueryRowContext(ctx, `
	SELECT COALESCE(SUM(amount), 0) FROM expenses
	WHERE creator_id = $1 AND expense_date >= $2::date AND expense_date < $3::date`,
		creatorID, from, to,
	).Scan(&spent)
	if err != nil {
		return 0, fmt.Errorf("failed to sum monthly spending: %w", err)
	}
	return spent, nil
}

// DeleteExpense removes an expense created by userID. It reports false when
// the expense does not exist or belongs to someone else.
func (db *DB) DeleteExpense(ctx context.Context, expenseID, userID int) (bool, error) {
	if db == nil {
		return false, ErrNotConfigured
	}

	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM expenses WHERE expense_id = $1 AND creator_id = $2`, expenseID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete expense: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// RecentExpenses returns the newest visible expenses and the total of all
// expenses visible to userID.
func (db *DB) RecentExpenses(ctx context.Context, userID, limit int) ([]ExpenseView, float64, error) {
	if db == nil {
		return nil, 0, ErrNotConfigured
	}

	rows, err := db.conn.QueryContext(ctx, `
	SELECT `+visibleExpenseColumns+`
	FROM expenses e
	JOIN expense_permissions p ON p.expense_id = e.expense_id
	JOIN users u ON u.user_id = e.creator_id
	WHERE p.user_id = $1
	ORDER BY e.expense_date DESC, e.expense_id DESC
	LIMIT $2`, userID, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get expenses: %w", err)
	}
	expenses, err := scanExpenseViews(rows)
	if err != nil {
		return nil, 0, err
	}

	var total float64
	err = db.conn.QueryRowContext(ctx, `
	SELECT COALESCE(SUM(e.amount), 0)
	FROM expenses e
	JOIN expense_permissions p ON p.expense_id = e.expense_id
	WHERE p.user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get expense total: %w", err)
	}

	return expenses, total, nil
}

// ExportExpenses returns every expense visible to userID, newest first.
func (db *DB) ExportExpenses(ctx context.Context, userID int) ([]ExpenseView, error) {
	if db == nil {
		return nil, ErrNotConfigured
	}

	rows, err := db.conn.QueryContext(ctx, `
	SELECT `+visibleExpenseColumns+`
	FROM expenses e
	JOIN expense_permissions p ON p.expense_id = e.expense_id
	JOIN users u ON u.user_id = e.creator_id
	WHERE p.user_id = $1
	ORDER BY e.expense_date DESC, e.expense_id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to export expenses: %w", err)
	}
	return scanExpenseViews(rows)
}

func scanExpenseViews(rows *sql.Rows) ([]ExpenseView, error) {
	defer rows.Close()

	var expenses []ExpenseView
	for rows.Next() {
		var v ExpenseView
		if err := rows.Scan(&v.ID, &v.CreatorID, &v.Title, &v.Amount, &v.Category, &v.Date, &v.CreatedAt, &v.CreatorName); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return expenses, nil
}

// MonthlyStatistics aggregates the expenses visible to userID in month.
func (db *DB) MonthlyStatistics(ctx context.Context, userID int, month time.Time) (*Statistics, error) {
	if db == nil {
		return nil, ErrNotConfigured
	}

	start, end := monthBounds(month)
	from, to := start.Format(dateLayout), end.Format(dateLayout)
	stats := &Statistics{Month: start}

	rows, err := db.conn.QueryContext(ctx, `
	SELECT e.category, SUM(e.amount) AS total
	FROM expenses e
	JOIN expense_permissions p ON p.expense_id = e.expense_id
	WHERE p.user_id = $1 AND e.expense_date >= $2::date AND e.expense_date < $3::date
	GROUP BY e.category
	ORDER BY total DESC`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get category totals: %w", err)
	}
	for rows.Next() {
		var c CategoryTotal
		if err := rows.Scan(&c.Category, &c.Total); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		stats.Categories = append(stats.Categories, c)
		stats.Total += c.Total
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category totals: %w", err)
	}

	rows, err = db.conn.QueryContext(ctx, `
	SELECT e.expense_date, SUM(e.amount)
	FROM expenses e
	JOIN expense_permissions p ON p.expense_id = e.expense_id
	WHERE p.user_id = $1 AND e.expense_date >= $2::date AND e.expense_date < $3::date
	GROUP BY e.expense_date
	ORDER BY e.expense_date`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily totals: %w", err)
	}
	for rows.Next() {
		var d DailyTotal
		if err := rows.Scan(&d.Day, &d.Total); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan daily total: %w", err)
		}
		stats.Daily = append(stats.Daily, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily totals: %w", err)
	}

	err = db.conn.QueryRowContext(ctx, `SELECT budget_limit FROM users WHERE user_id = $1`, userID).Scan(&stats.Limit)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get budget limit: %w", err)
	}

	return stats, nil
}
