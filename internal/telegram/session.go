package telegram

import (
	"context"
	"fmt"

	"github.com/hamyon/hamyon/internal/database"
)

// Session is the conversation state of one user between messages.
type Session struct {
	State  string
	Title  string
	Amount float64
}

// session returns a copy of the user's session, or nil.
func (b *Bot) session(userID int64) *Session {
	s, ok := b.sessions.Get(userID)
	if !ok || s == nil {
		return nil
	}
	cp := *s
	return &cp
}

func (b *Bot) setSession(userID int64, s *Session) {
	b.sessions.Set(userID, s)
}

func (b *Bot) clearSession(userID int64) {
	b.sessions.Delete(userID)
}

// currentUser loads the registered user for a telegram ID. It returns
// nil, nil for unknown users. Registered users are cached.
func (b *Bot) currentUser(ctx context.Context, telegramID int64) (*database.User, error) {
	if user, ok := b.users.Get(telegramID); ok {
		return user, nil
	}

	user, err := b.store.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user != nil {
		b.users.Set(telegramID, user)
	}
	return user, nil
}

// invalidateUser drops the cached user after a profile change.
func (b *Bot) invalidateUser(telegramID int64) {
	b.users.Delete(telegramID)
}
