// Package store persists users and their conversations.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wuwenbin0122/vishai/internal/models"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate key")

	// ErrInvalidSender rejects a message whose sender is neither user nor ai.
	ErrInvalidSender = errors.New("store: invalid message sender")
)

// UserStore is the credential store. Emails are matched after NormalizeEmail.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ChatStore keeps one append-only conversation per user.
type ChatStore interface {
	// Append creates the user's conversation if needed and appends msgs in
	// order as a single write.
	Append(ctx context.Context, userID string, msgs ...models.Message) error
	// History returns the full ordered message list, empty when the user has
	// no conversation yet.
	History(ctx context.Context, userID string) ([]models.Message, error)
}

func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func validateMessages(msgs []models.Message) error {
	for _, msg := range msgs {
		if !msg.Sender.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidSender, msg.Sender)
		}
	}
	return nil
}
