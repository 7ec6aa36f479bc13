package repository

import (
	"context"
	"errors"

	"github.com/coachhub/coach-chat/internal/domain"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrConversationExists   = errors.New("conversation already exists")
)

// ParticipantRepository persists Participant records. Every mutation
// rewrites a single row.
type ParticipantRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Participant, error)
	// GetMany returns the participants that exist among ids, keyed by id.
	GetMany(ctx context.Context, ids []string) (map[string]*domain.Participant, error)
	// Upsert creates the participant with empty lists or updates its name
	// and role, leaving the cached lists untouched.
	Upsert(ctx context.Context, p *domain.Participant) error
	// SaveLists persists the cached conversation list and unread set.
	SaveLists(ctx context.Context, p *domain.Participant) error
}

// ConversationRepository persists Conversation records.
type ConversationRepository interface {
	Create(ctx context.Context, c *domain.Conversation) error
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	Exists(ctx context.Context, id string) (bool, error)
	// GetMany returns the conversations that exist among ids, keyed by id.
	GetMany(ctx context.Context, ids []string) (map[string]*domain.Conversation, error)
	// AppendMessage appends msg to the conversation's message list and sets
	// the last-message pointer in one single-row update.
	AppendMessage(ctx context.Context, conversationID string, msg *domain.Message) (*domain.Conversation, error)
	Delete(ctx context.Context, id string) error
}

// MessageRepository persists Message records.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// GetByIDs returns the messages in the order of ids, skipping unknown ids.
	GetByIDs(ctx context.Context, ids []string) ([]domain.Message, error)
	Delete(ctx context.Context, id string) error
	DeleteByConversation(ctx context.Context, conversationID string) (int64, error)
}
