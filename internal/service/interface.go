package service

import (
	"context"

	"github.com/coachhub/coach-chat/internal/domain"
)

// ChatService defines the chat operations exposed to the transport layer.
// Every error it returns is classified with one of the domain error kinds.
type ChatService interface {
	CreateConversation(ctx context.Context, caller domain.Caller, counterpartID string) (string, error)
	EnsureConversation(ctx context.Context, caller domain.Caller, conversationID string, memberIDs []string) error
	GetConversation(ctx context.Context, caller domain.Caller, conversationID, sinceMessageID string) (*domain.ConversationView, error)
	AddMessage(ctx context.Context, caller domain.Caller, conversationID, authorID, text string) (string, error)
	DeleteConversation(ctx context.Context, caller domain.Caller, conversationID string) error
	ListConversations(ctx context.Context, caller domain.Caller) ([]domain.ConversationSummary, error)
	UpsertParticipant(ctx context.Context, caller domain.Caller, name string) (*domain.Participant, error)
}

// Notifier delivers new-message events to connected recipients. It must not
// block on slow channels and never reports delivery failures.
type Notifier interface {
	NotifyNewMessage(ctx context.Context, recipientIDs []string, event *domain.NewMessageEvent)
}

// Options tunes the chat service.
type Options struct {
	// ExemptAuthor skips marking a conversation unread for the message author.
	ExemptAuthor bool
	// MaxParallelLoads bounds concurrent participant updates per message.
	MaxParallelLoads int
}
