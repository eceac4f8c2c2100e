package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// AddNotifications queues the same message for each user.
func (db *DB) AddNotifications(ctx context.Context, userIDs []int, message string) error {
	if db == nil {
		return ErrNotConfigured
	}
	if len(userIDs) == 0 {
		return nil
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		return addNotificationsTx(ctx, tx, userIDs, message)
	})
}

func addNotificationsTx(ctx context.Context, tx *sql.Tx, userIDs []int, message string) error {
	_, err := tx.ExecContext(ctx, `
	INSERT INTO notifications (user_id, message)
	SELECT unnest($1::int[]), $2`, pq.Array(userIDs), message)
	if err != nil {
		return fmt.Errorf("failed to add notifications: %w", err)
	}
	return nil
}

// RecentNotifications returns the newest notifications for userID.
func (db *DB) RecentNotifications(ctx context.Context, userID, limit int) ([]Notification, error) {
	if db == nil {
		return nil, ErrNotConfigured
	}

	rows, err := db.conn.QueryContext(ctx, `
	SELECT notification_id, user_id, message, is_read, created_at
	FROM notifications
	WHERE user_id = $1
	ORDER BY created_at DESC, notification_id DESC
	LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationsRead flags the given notifications of userID as read.
func (db *DB) MarkNotificationsRead(ctx context.Context, userID int, ids []int) error {
	if db == nil {
		return ErrNotConfigured
	}
	if len(ids) == 0 {
		return nil
	}

	_, err := db.conn.ExecContext(ctx, `
	UPDATE notifications SET is_read = TRUE
	WHERE user_id = $1 AND notification_id = ANY($2)`, userID, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// UnreadIDs returns the IDs of the unread notifications in ns.
func UnreadIDs(ns []Notification) []int {
	var ids []int
	for _, n := range ns {
		if !n.IsRead {
			ids = append(ids, n.ID)
		}
	}
	return ids
}
