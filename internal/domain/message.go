package domain

import (
	"time"
)

// Message is the domain representation of a message record.
// Messages are immutable once appended.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// AppendMessageRequest is the request body for appending a message.
type AppendMessageRequest struct {
	Content string `json:"content" binding:"required,min=1,max=4000"`
}

// MessageView is the hydrated read model of a message.
type MessageView struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	Content        string      `json:"content"`
	Sender         UserSummary `json:"sender"`
	CreatedAt      time.Time   `json:"created_at"`
}
