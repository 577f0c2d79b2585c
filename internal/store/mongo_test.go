package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wuwenbin0122/vishai/internal/models"
)

func TestMongoChatsRejectsUnknownSenderBeforeWriting(t *testing.T) {
	chats := NewMongoChats(nil)

	err := chats.Append(context.Background(), "u1", models.Message{Sender: "", Text: "no sender"})
	assert.ErrorIs(t, err, ErrInvalidSender)
}
