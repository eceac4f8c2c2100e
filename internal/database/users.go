package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hamyon/hamyon/internal/logger"
)

const userColumns = `user_id, telegram_id, custom_username, full_name, budget_limit, created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.FullName, &u.BudgetLimit, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByTelegramID returns nil, nil when the user is not registered.
func (db *DB) GetUserByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	if db == nil {
		return nil, ErrNotConfigured
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	user, err := scanUser(db.conn.QueryRowContext(ctx, query, telegramID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByID returns nil, nil when no user has that ID.
func (db *DB) GetUserByID(ctx context.Context, userID int) (*User, error) {
	if db == nil {
		return nil, ErrNotConfigured
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	user, err := scanUser(db.conn.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// RegisterUser stores a new user. The username is saved lower-cased.
func (db *DB) RegisterUser(ctx context.Context, telegramID int64, username, fullName string) (*User, error) {
	if db == nil {
		return nil, ErrNotConfigured
	}

	username = NormalizeUsername(username)

	query := `
	INSERT INTO users (telegram_id, custom_username, full_name)
	VALUES ($1, $2, $3)
	RETURNING ` + userColumns

	user, err := scanUser(db.conn.QueryRowContext(ctx, query, telegramID, username, fullName))
	if err != nil {
		if constraint, ok := isUniqueViolation(err); ok {
			if strings.Contains(constraint, "telegram") {
				return nil, ErrAlreadyRegistered
			}
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	logger.Info("Registered new user", logger.Fields{
		"user_id":     user.ID,
		"telegram_id": telegramID,
		"username":    username,
	})
	return user, nil
}

// SetBudgetLimit updates the monthly limit. Zero turns alerts off.
func (db *DB) SetBudgetLimit(ctx context.Context, userID int, limit float64) error {
	if db == nil {
		return ErrNotConfigured
	}
	if limit < 0 {
		return ErrInvalidLimit
	}

	result, err := db.conn.ExecContext(ctx, `UPDATE users SET budget_limit = $1 WHERE user_id = $2`, limit, userID)
	if err != nil {
		return fmt.Errorf("failed to set budget limit: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// NormalizeUsername trims and lower-cases a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
