// Package chat implements a chat turn: store the user message, ask the reply
// generator, store the reply.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wuwenbin0122/vishai/internal/models"
	"github.com/wuwenbin0122/vishai/internal/reply"
	"github.com/wuwenbin0122/vishai/internal/store"
)

var ErrEmptyText = errors.New("chat: text is required")

// Turn is one user message and the reply it produced.
type Turn struct {
	User models.Message
	AI   models.Message
}

type Service struct {
	store     store.ChatStore
	generator reply.Generator
	logger    *zap.SugaredLogger
}

func NewService(chats store.ChatStore, generator reply.Generator, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{store: chats, generator: generator, logger: logger}
}

// Send runs one turn for userID. Both messages are persisted in a single
// append after the reply is known. There is no deduplication: sending the
// same text twice stores two turns.
func (s *Service) Send(ctx context.Context, userID, text string) (*Turn, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	userMsg := models.NewMessage(models.SenderUser, text)
	aiMsg := models.NewMessage(models.SenderAI, s.generator.Reply(ctx, text))

	if err := s.store.Append(ctx, userID, userMsg, aiMsg); err != nil {
		return nil, fmt.Errorf("chat: persist turn: %w", err)
	}

	s.logger.Debugw("chat turn stored", "user_id", userID)
	return &Turn{User: userMsg, AI: aiMsg}, nil
}

func (s *Service) History(ctx context.Context, userID string) ([]models.Message, error) {
	history, err := s.store.History(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("chat: load history: %w", err)
	}
	return history, nil
}
