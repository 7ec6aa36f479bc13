package service

import (
	"context"

	"github.com/coachhub/coach-chat/internal/domain"
	"github.com/coachhub/coach-chat/internal/repository"
)

const defaultMaxParallelLoads = 8

// chatServiceImpl implements ChatService. Conversation records are the
// source of truth for membership; the participant lists it maintains are a
// best-effort cache repaired on the next write or list.
type chatServiceImpl struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	participants  repository.ParticipantRepository
	unread        *UnreadTracker
	notifier      Notifier
	opts          Options
}

// NewChatService creates a new chat service. notifier may be nil, in which
// case no live notifications are sent.
func NewChatService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	participants repository.ParticipantRepository,
	notifier Notifier,
	opts Options,
) ChatService {
	if opts.MaxParallelLoads <= 0 {
		opts.MaxParallelLoads = defaultMaxParallelLoads
	}
	return &chatServiceImpl{
		conversations: conversations,
		messages:      messages,
		participants:  participants,
		unread:        NewUnreadTracker(participants),
		notifier:      notifier,
		opts:          opts,
	}
}

// loadMember loads a conversation and checks that caller belongs to it.
// Admins pass the membership check only when allowAdmin is set.
func (s *chatServiceImpl) loadMember(ctx context.Context, caller domain.Caller, conversationID string, allowAdmin bool) (*domain.Conversation, error) {
	if err := validateID("conversation id", conversationID); err != nil {
		return nil, err
	}
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.HasParticipant(caller.ID) || (allowAdmin && caller.IsAdmin()) {
		return conv, nil
	}
	return nil, forbidden("not a participant of this conversation")
}
