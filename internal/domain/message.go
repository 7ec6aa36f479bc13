package domain

import "time"

// Message is immutable once created. Edited is reserved and always false.
type Message struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
	AuthorID       string    `json:"author_id"`
	Edited         bool      `json:"edited"`
	ConversationID string    `json:"conversation_id"`
}

// AddMessageRequest is the body of POST /chats/messages.
type AddMessageRequest struct {
	ChatID string `json:"chat_id" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

// AddMessageResponse carries the new message id.
type AddMessageResponse struct {
	MessageID string `json:"message_id"`
}
