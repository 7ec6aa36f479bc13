package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/coachhub/coach-chat/internal/audit"
	"github.com/coachhub/coach-chat/internal/domain"
	"github.com/coachhub/coach-chat/pkg/log"
)

// AddMessage stores a message, appends it to the conversation, updates every
// member's unread set and ordering, then notifies connected members.
//
// Persistence finishes even when the caller goes away. Participant updates
// are cache maintenance: a failure there is logged and the message is still
// reported as sent, since clients reconcile through GetConversation.
// Concurrent appends to one conversation are serialised by the store's row
// update only, so the last-message pointer reflects whichever append
// committed last.
func (s *chatServiceImpl) AddMessage(ctx context.Context, caller domain.Caller, conversationID, authorID, text string) (string, error) {
	if authorID != caller.ID {
		return "", forbidden("cannot post on behalf of another participant")
	}
	if _, err := s.loadMember(ctx, caller, conversationID, false); err != nil {
		return "", classify(ctx, err, "add_message")
	}

	ctx = context.WithoutCancel(ctx)
	l := log.Ctx(ctx)

	msg := &domain.Message{
		ID:             uuid.New().String(),
		Text:           text,
		Timestamp:      time.Now().UTC(),
		AuthorID:       authorID,
		Edited:         false,
		ConversationID: conversationID,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return "", classify(ctx, err, "add_message")
	}

	conv, err := s.conversations.AppendMessage(ctx, conversationID, msg)
	if err != nil {
		// The conversation vanished or the write failed: drop the orphan.
		if derr := s.messages.Delete(ctx, msg.ID); derr != nil {
			l.Warn().Err(derr).Str(log.FieldMessageID, msg.ID).Msg("failed to remove orphaned message")
		}
		return "", classify(ctx, err, "add_message")
	}

	if err := s.updateMembers(ctx, conv, authorID); err != nil {
		l.Warn().Err(err).
			Str(log.FieldConversationID, conv.ID).
			Str(log.FieldMessageID, msg.ID).
			Msg("some participants were not updated for new message")
	}

	if s.notifier != nil {
		s.notifier.NotifyNewMessage(ctx, conv.Participants, domain.NewMessageEventFor(msg))
	}

	l.Debug().Str(log.FieldConversationID, conv.ID).Str(log.FieldMessageID, msg.ID).Msg("message added")
	audit.LogConversation(ctx, audit.ActionAddMessage, caller.ID, conv.ID, "message added")
	return msg.ID, nil
}

// updateMembers marks conv unread for each member and re-sorts the member's
// conversation list. Members are handled concurrently; each one is a single
// load-mutate-save of its own record.
func (s *chatServiceImpl) updateMembers(ctx context.Context, conv *domain.Conversation, authorID string) error {
	var g errgroup.Group
	g.SetLimit(s.opts.MaxParallelLoads)

	for _, id := range conv.Participants {
		g.Go(func() error {
			err := s.updateMember(ctx, id, conv, authorID)
			if err != nil {
				l := log.Ctx(ctx)
				l.Warn().Err(err).
					Str(log.FieldConversationID, conv.ID).
					Str(log.FieldParticipantID, id).
					Msg("failed to update participant for new message")
			}
			return err
		})
	}
	return g.Wait()
}

func (s *chatServiceImpl) updateMember(ctx context.Context, participantID string, conv *domain.Conversation, authorID string) error {
	p, err := s.participants.GetByID(ctx, participantID)
	if err != nil {
		return err
	}

	p.AddConversation(conv.ID)
	if !(s.opts.ExemptAuthor && participantID == authorID) {
		p.MarkUnread(conv.ID)
	}

	convs, err := s.conversations.GetMany(ctx, p.Conversations)
	if err != nil {
		return err
	}
	// Use the freshly appended state for this conversation.
	convs[conv.ID] = conv
	SortByRecency(p.Conversations, convs)

	return s.participants.SaveLists(ctx, p)
}
