package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hamyon/hamyon/internal/logger"
)

var (
	ErrNotConfigured     = errors.New("database not configured")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrAlreadyRegistered = errors.New("user already registered")
	ErrSelfPartner       = errors.New("cannot link a user to themselves")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidLimit      = errors.New("budget limit must not be negative")
	ErrInvalidExpense    = errors.New("expense needs a title and a positive amount")
)

const uniqueViolation = "23505"

type DB struct {
	conn *sql.DB
}

// NewDB opens the pool, applies migrations and checks connectivity.
func NewDB(dsn string, maxOpen, maxIdle int) (*DB, error) {
	if dsn == "" {
		return nil, ErrNotConfigured
	}

	if err := RunMigrations(dsn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(maxIdle)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established successfully", logger.Fields{
		"max_open_conns": maxOpen,
		"max_idle_conns": maxIdle,
	})
	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db != nil && db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Ping is used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	if db == nil {
		return ErrNotConfigured
	}
	return db.conn.PingContext(ctx)
}

// withTx runs fn inside a transaction, rolling back when fn fails.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("Failed to roll back transaction", logger.Fields{
				"error":          rbErr.Error(),
				"original_error": err.Error(),
			})
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a unique constraint failure,
// returning the constraint name.
func isUniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}
