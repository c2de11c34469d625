package conversation

import (
	"context"
	"errors"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

var ErrNotFound = errors.New("conversation not found")

// Conversation is one chat session tied to a single user. Conversations are
// soft-deleted by clearing Active; rows are never removed.
type Conversation struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Active       bool      `json:"is_active"`
}

// Message is a single appended turn. Messages are immutable once written.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Role           string         `json:"role"`
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Store persists conversations and their append-only message history.
// Messages must read back in insertion order.
type Store interface {
	CreateConversation(ctx context.Context, userID, title string) (Conversation, error)
	Conversation(ctx context.Context, id string) (Conversation, error)
	UserConversations(ctx context.Context, userID string, limit int) ([]Conversation, error)
	Deactivate(ctx context.Context, id string) error
	AppendMessage(ctx context.Context, msg Message) (Message, error)
	Messages(ctx context.Context, conversationID string, limit int) ([]Message, error)
	Close() error
}
