package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hamyon/hamyon/internal/logger"
)

// AddPartner links two users both ways and grants each of them visibility
// of the other's existing expenses. Repeated calls are harmless.
func (db *DB) AddPartner(ctx context.Context, userID, partnerID int) (*User, error) {
	if db == nil {
		return nil, ErrNotConfigured
	}
	if userID == partnerID {
		return nil, ErrSelfPartner
	}

	var partner *User
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		p, err := scanUser(tx.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE user_id = $1`, partnerID))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get partner: %w", err)
		}
		partner = p

		_, err = tx.ExecContext(ctx, `
		INSERT INTO user_links (owner_id, viewer_id)
		VALUES ($1, $2), ($2, $1)
		ON CONFLICT (owner_id, viewer_id) DO NOTHING`, userID, partnerID)
		if err != nil {
			return fmt.Errorf("failed to link users: %w", err)
		}

		backfill := `
		INSERT INTO expense_permissions (expense_id, user_id)
		SELECT expense_id, $2 FROM expenses WHERE creator_id = $1
		ON CONFLICT (expense_id, user_id) DO NOTHING`
		if _, err := tx.ExecContext(ctx, backfill, userID, partnerID); err != nil {
			return fmt.Errorf("failed to share expenses with partner: %w", err)
		}
		if _, err := tx.ExecContext(ctx, backfill, partnerID, userID); err != nil {
			return fmt.Errorf("failed to share partner expenses: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Linked partners", logger.Fields{
		"user_id":    userID,
		"partner_id": partnerID,
	})
	return partner, nil
}

// partnersTx lists the users that can see userID's expenses.
func partnersTx(ctx context.Context, tx *sql.Tx, userID int) ([]Partner, error) {
	rows, err := tx.QueryContext(ctx, `
	SELECT u.user_id, u.telegram_id, u.full_name
	FROM user_links l
	JOIN users u ON u.user_id = l.viewer_id
	WHERE l.owner_id = $1
	ORDER BY u.user_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get partners: %w", err)
	}
	defer rows.Close()

	var partners []Partner
	for rows.Next() {
		var p Partner
		if err := rows.Scan(&p.UserID, &p.TelegramID, &p.FullName); err != nil {
			return nil, fmt.Errorf("failed to scan partner: %w", err)
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}
