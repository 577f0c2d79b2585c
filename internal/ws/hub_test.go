package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuwenbin0122/vishai/internal/models"
)

func TestHubSendToUserOnlyReachesThatUser(t *testing.T) {
	hub := NewHub(nil)
	a1 := newClient("a1", "alice", nil)
	a2 := newClient("a2", "alice", nil)
	b1 := newClient("b1", "bob", nil)
	for _, c := range []*Client{a1, a2, b1} {
		require.True(t, hub.Register(c))
	}

	delivered := hub.SendToUser("alice", EventReceiveMessage, ReceiveMessagePayload{Sender: models.SenderAI, Text: "hello"})
	assert.Equal(t, 2, delivered)
	assert.Len(t, a1.send, 1)
	assert.Len(t, a2.send, 1)
	assert.Len(t, b1.send, 0)

	var env Envelope
	require.NoError(t, json.Unmarshal(<-a1.send, &env))
	assert.Equal(t, EventReceiveMessage, env.Event)

	var payload ReceiveMessagePayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, models.SenderAI, payload.Sender)
	assert.Equal(t, "hello", payload.Text)
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(nil)
	c := newClient("c", "alice", nil)
	require.True(t, hub.Register(c))

	for i := 0; i < sendBuffer; i++ {
		require.Equal(t, 1, hub.SendToUser("alice", EventReceiveMessage, ReceiveMessagePayload{Text: "x"}))
	}
	assert.Equal(t, 0, hub.SendToUser("alice", EventReceiveMessage, ReceiveMessagePayload{Text: "overflow"}))
	assert.Equal(t, 0, hub.Count("alice"))

	drained := 0
	for range c.send {
		drained++
	}
	assert.Equal(t, sendBuffer, drained)
}

func TestHubUnregisterIsIdempotent(t *testing.T) {
	hub := NewHub(nil)
	c := newClient("c", "alice", nil)
	require.True(t, hub.Register(c))

	hub.Unregister(c)
	hub.Unregister(c)

	assert.Equal(t, 0, hub.Count("alice"))
	_, open := <-c.send
	assert.False(t, open)
}

func TestHubCloseRejectsNewClients(t *testing.T) {
	hub := NewHub(nil)
	c := newClient("c", "alice", nil)
	require.True(t, hub.Register(c))

	hub.Close()

	_, open := <-c.send
	assert.False(t, open)
	assert.False(t, hub.Register(newClient("d", "alice", nil)))
	assert.Equal(t, 0, hub.Count("alice"))
}
