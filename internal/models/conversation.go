package models

import "time"

type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAI
}

// Message is one immutable turn in a conversation.
type Message struct {
	Sender    Sender    `bson:"sender" json:"sender"`
	Text      string    `bson:"text" json:"text"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

func NewMessage(sender Sender, text string) Message {
	return Message{Sender: sender, Text: text, CreatedAt: time.Now().UTC()}
}

// Conversation is the single message history owned by one user.
type Conversation struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Messages  []Message `bson:"messages"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}
