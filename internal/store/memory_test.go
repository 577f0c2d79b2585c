package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuwenbin0122/vishai/internal/models"
)

func TestMemoryUsersCreateAndFind(t *testing.T) {
	s := NewMemoryUsers()
	ctx := context.Background()

	user := models.User{ID: "u1", Username: "a", Email: "A@X.com ", PasswordHash: "hash", CreatedAt: time.Now()}
	require.NoError(t, s.Create(ctx, user))

	byEmail, err := s.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)

	byID, err := s.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a", byID.Username)

	_, err = s.FindByEmail(ctx, "missing@x.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUsersRejectsDuplicateEmail(t *testing.T) {
	s := NewMemoryUsers()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, models.User{ID: "u1", Email: "a@x.com"}))
	err := s.Create(ctx, models.User{ID: "u2", Email: " a@X.COM"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = s.FindByID(ctx, "u2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUsersReturnsCopies(t *testing.T) {
	s := NewMemoryUsers()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, models.User{ID: "u1", Email: "a@x.com", Username: "a"}))

	found, err := s.FindByID(ctx, "u1")
	require.NoError(t, err)
	found.Username = "mutated"

	again, err := s.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a", again.Username)
}

func TestMemoryChatsHistoryEmpty(t *testing.T) {
	s := NewMemoryChats()

	history, err := s.History(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestMemoryChatsAppendPreservesOrder(t *testing.T) {
	s := NewMemoryChats()
	ctx := context.Background()

	const n = 10
	for i := 0; i < n; i++ {
		require.NoError(t, s.Append(ctx, "u1", models.NewMessage(models.SenderUser, fmt.Sprintf("m%d", i))))
	}

	history, err := s.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, n)
	for i, msg := range history {
		assert.Equal(t, fmt.Sprintf("m%d", i), msg.Text)
	}

	other, err := s.History(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMemoryChatsConcurrentAppendsKeepEveryMessage(t *testing.T) {
	s := NewMemoryChats()
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Append(ctx, "u1",
				models.NewMessage(models.SenderUser, fmt.Sprintf("q%d", i)),
				models.NewMessage(models.SenderAI, fmt.Sprintf("a%d", i)),
			)
		}(i)
	}
	wg.Wait()

	history, err := s.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 2*writers)

	// each turn is stored contiguously
	for i := 0; i < len(history); i += 2 {
		assert.Equal(t, models.SenderUser, history[i].Sender)
		assert.Equal(t, models.SenderAI, history[i+1].Sender)
		assert.Equal(t, history[i].Text[1:], history[i+1].Text[1:])
	}
}

func TestMemoryChatsHistoryIsACopy(t *testing.T) {
	s := NewMemoryChats()
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, "u1", models.NewMessage(models.SenderUser, "hi")))

	history, err := s.History(ctx, "u1")
	require.NoError(t, err)
	history[0].Text = "changed"

	again, err := s.History(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "hi", again[0].Text)
}

func TestMemoryChatsHonoursCancelledContext(t *testing.T) {
	s := NewMemoryChats()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Append(ctx, "u1", models.NewMessage(models.SenderUser, "hi"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryChatsRejectsUnknownSender(t *testing.T) {
	s := NewMemoryChats()
	ctx := context.Background()

	err := s.Append(ctx, "u1",
		models.NewMessage(models.SenderUser, "hi"),
		models.NewMessage(models.Sender("system"), "injected"),
	)
	assert.ErrorIs(t, err, ErrInvalidSender)

	history, err := s.History(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, history)
}
