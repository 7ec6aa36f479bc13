package domain

import (
	"slices"
	"time"
)

// Conversation is a chat thread between a fixed set of participants.
// Messages is in insertion (chronological) order. LastMessageID and
// LastMessageAt are denormalised from the newest message and only serve as a
// sort key; both are set in the same single-row update as the append.
type Conversation struct {
	ID            string     `json:"id"`
	Participants  []string   `json:"participants"`
	Messages      []string   `json:"messages"`
	LastMessageID string     `json:"last_message_id,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// HasParticipant reports whether participantID is a member.
func (c *Conversation) HasParticipant(participantID string) bool {
	return slices.Contains(c.Participants, participantID)
}

// MessagesAfter returns the message ids strictly after sinceID. When sinceID
// is empty or not part of the conversation the whole history is returned.
func (c *Conversation) MessagesAfter(sinceID string) []string {
	if sinceID == "" {
		return c.Messages
	}
	idx := slices.Index(c.Messages, sinceID)
	if idx < 0 {
		return c.Messages
	}
	return c.Messages[idx+1:]
}

// ConversationView is what a refresh returns: the conversation with its
// messages resolved and its members summarised.
type ConversationView struct {
	ID            string               `json:"id"`
	Participants  []ParticipantSummary `json:"participants"`
	Messages      []Message            `json:"messages"`
	LastMessageID string               `json:"last_message_id,omitempty"`
}

// ConversationSummary is one row of a participant's conversation list.
type ConversationSummary struct {
	ID            string               `json:"id"`
	Participants  []ParticipantSummary `json:"participants"`
	LastMessageAt *time.Time           `json:"last_message_at,omitempty"`
	Unread        bool                 `json:"unread"`
}

// CreateConversationRequest is the body of POST /chats.
type CreateConversationRequest struct {
	CounterpartID string `json:"counterpart_id" binding:"required"`
}

// EnsureConversationRequest is the body of PATCH /chats/check/:chatId.
type EnsureConversationRequest struct {
	Members []string `json:"members" binding:"required,min=1"`
}

// CreateConversationResponse carries the new conversation id.
type CreateConversationResponse struct {
	ConversationID string `json:"conversation_id"`
}
