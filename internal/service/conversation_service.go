package service

import (
	"context"
	"errors"
	"slices"

	"github.com/coachhub/coach-chat/internal/audit"
	"github.com/coachhub/coach-chat/internal/domain"
	"github.com/coachhub/coach-chat/internal/repository"
	"github.com/coachhub/coach-chat/pkg/log"
)

// CreateConversation creates a fresh conversation between the caller and
// counterpartID and links it into both participants' lists before returning.
func (s *chatServiceImpl) CreateConversation(ctx context.Context, caller domain.Caller, counterpartID string) (string, error) {
	if err := validateID("participant id", counterpartID); err != nil {
		return "", err
	}
	if counterpartID == caller.ID {
		return "", domain.NewError(domain.ErrBadRequest, "cannot start a conversation with yourself", nil)
	}

	initiator, err := s.participants.GetByID(ctx, caller.ID)
	if err != nil {
		return "", classify(ctx, err, "create_conversation")
	}
	counterpart, err := s.participants.GetByID(ctx, counterpartID)
	if err != nil {
		return "", classify(ctx, err, "create_conversation")
	}

	conv := &domain.Conversation{Participants: []string{initiator.ID, counterpart.ID}}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return "", classify(ctx, err, "create_conversation")
	}

	for _, p := range []*domain.Participant{initiator, counterpart} {
		p.AddConversation(conv.ID)
		if err := s.participants.SaveLists(ctx, p); err != nil {
			return "", classify(ctx, err, "create_conversation")
		}
	}

	audit.LogConversation(ctx, audit.ActionCreateConversation, caller.ID, conv.ID, "conversation created")
	return conv.ID, nil
}

// EnsureConversation creates conversationID with memberIDs unless it already
// exists. Clients that derived an id before the server record existed use
// it to heal the drift; a second call is a no-op.
func (s *chatServiceImpl) EnsureConversation(ctx context.Context, caller domain.Caller, conversationID string, memberIDs []string) error {
	if err := validateID("conversation id", conversationID); err != nil {
		return err
	}
	members := make([]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		if err := validateID("participant id", id); err != nil {
			return err
		}
		if !slices.Contains(members, id) {
			members = append(members, id)
		}
	}
	if len(members) == 0 {
		return domain.NewError(domain.ErrBadRequest, "members must not be empty", nil)
	}
	if !slices.Contains(members, caller.ID) {
		return forbidden("caller must be a member of the conversation")
	}

	exists, err := s.conversations.Exists(ctx, conversationID)
	if err != nil {
		return classify(ctx, err, "ensure_conversation")
	}
	if exists {
		return nil
	}

	found, err := s.participants.GetMany(ctx, members)
	if err != nil {
		return classify(ctx, err, "ensure_conversation")
	}
	for _, id := range members {
		if _, ok := found[id]; !ok {
			return domain.NewError(domain.ErrNotFound, "participant not found: "+id, repository.ErrParticipantNotFound)
		}
	}

	conv := &domain.Conversation{ID: conversationID, Participants: members}
	if err := s.conversations.Create(ctx, conv); err != nil {
		if errors.Is(err, repository.ErrConversationExists) {
			// Lost a race with a concurrent ensure; the winner links members.
			return nil
		}
		return classify(ctx, err, "ensure_conversation")
	}

	for _, id := range members {
		p := found[id]
		if !p.AddConversation(conversationID) {
			continue
		}
		if err := s.participants.SaveLists(ctx, p); err != nil {
			return classify(ctx, err, "ensure_conversation")
		}
	}

	audit.LogConversation(ctx, audit.ActionEnsureConversation, caller.ID, conversationID, "conversation reconstructed")
	return nil
}

// GetConversation returns the conversation with its messages resolved. When
// sinceMessageID names a message of the conversation, only later messages
// are returned; an unknown id returns the whole history. The caller's unread
// flag for the conversation is cleared.
func (s *chatServiceImpl) GetConversation(ctx context.Context, caller domain.Caller, conversationID, sinceMessageID string) (*domain.ConversationView, error) {
	conv, err := s.loadMember(ctx, caller, conversationID, false)
	if err != nil {
		return nil, classify(ctx, err, "get_conversation")
	}

	messages, err := s.messages.GetByIDs(ctx, conv.MessagesAfter(sinceMessageID))
	if err != nil {
		return nil, classify(ctx, err, "get_conversation")
	}

	members, err := s.participants.GetMany(ctx, conv.Participants)
	if err != nil {
		return nil, classify(ctx, err, "get_conversation")
	}

	if err := s.unread.ClearUnread(ctx, caller.ID, conv.ID); err != nil && !errors.Is(err, repository.ErrParticipantNotFound) {
		return nil, classify(ctx, err, "get_conversation")
	}

	return &domain.ConversationView{
		ID:            conv.ID,
		Participants:  summaries(conv.Participants, members),
		Messages:      messages,
		LastMessageID: conv.LastMessageID,
	}, nil
}

// DeleteConversation removes the conversation, its messages and every
// participant's reference to it. Messages go first so an interrupted delete
// leaves orphaned messages rather than a conversation pointing at missing
// ones. Participant cleanup is best effort: failures are logged per
// participant and do not stop the delete.
func (s *chatServiceImpl) DeleteConversation(ctx context.Context, caller domain.Caller, conversationID string) error {
	l := log.Ctx(ctx)

	conv, err := s.loadMember(ctx, caller, conversationID, true)
	if err != nil {
		return classify(ctx, err, "delete_conversation")
	}

	ctx = context.WithoutCancel(ctx)

	purged, err := s.messages.DeleteByConversation(ctx, conv.ID)
	if err != nil {
		return classify(ctx, err, "delete_conversation")
	}

	for _, id := range conv.Participants {
		if err := s.unlink(ctx, id, conv.ID); err != nil {
			l.Warn().Err(err).
				Str(log.FieldConversationID, conv.ID).
				Str(log.FieldParticipantID, id).
				Msg("failed to strip deleted conversation from participant")
		}
	}

	if err := s.conversations.Delete(ctx, conv.ID); err != nil && !errors.Is(err, repository.ErrConversationNotFound) {
		return classify(ctx, err, "delete_conversation")
	}

	l.Debug().Str(log.FieldConversationID, conv.ID).Int64("messages", purged).Msg("conversation deleted")
	audit.LogConversation(ctx, audit.ActionDeleteConversation, caller.ID, conv.ID, "conversation deleted")
	return nil
}

func (s *chatServiceImpl) unlink(ctx context.Context, participantID, conversationID string) error {
	p, err := s.participants.GetByID(ctx, participantID)
	if err != nil {
		return err
	}
	if !p.RemoveConversation(conversationID) {
		return nil
	}
	return s.participants.SaveLists(ctx, p)
}

// ListConversations returns the caller's conversations in cached order.
// Ids that no longer resolve to a conversation are pruned from the caller's
// record on the way.
func (s *chatServiceImpl) ListConversations(ctx context.Context, caller domain.Caller) ([]domain.ConversationSummary, error) {
	p, err := s.participants.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, classify(ctx, err, "list_conversations")
	}

	ids := append(slices.Clone(p.Conversations), p.UnreadConversationIDs...)
	convs, err := s.conversations.GetMany(ctx, ids)
	if err != nil {
		return nil, classify(ctx, err, "list_conversations")
	}

	pruned := false
	for _, id := range ids {
		if _, ok := convs[id]; !ok && p.RemoveConversation(id) {
			pruned = true
		}
	}
	if pruned {
		l := log.Ctx(ctx)
		if err := s.participants.SaveLists(ctx, p); err != nil {
			l.Warn().Err(err).Str(log.FieldParticipantID, p.ID).Msg("failed to prune dangling conversations")
		} else {
			l.Debug().Str(log.FieldParticipantID, p.ID).Msg("pruned dangling conversations")
		}
	}

	var memberIDs []string
	for _, id := range p.Conversations {
		for _, m := range convs[id].Participants {
			if !slices.Contains(memberIDs, m) {
				memberIDs = append(memberIDs, m)
			}
		}
	}
	members, err := s.participants.GetMany(ctx, memberIDs)
	if err != nil {
		return nil, classify(ctx, err, "list_conversations")
	}

	out := make([]domain.ConversationSummary, 0, len(p.Conversations))
	for _, id := range p.Conversations {
		c := convs[id]
		out = append(out, domain.ConversationSummary{
			ID:            c.ID,
			Participants:  summaries(c.Participants, members),
			LastMessageAt: c.LastMessageAt,
			Unread:        p.IsUnread(c.ID),
		})
	}
	return out, nil
}

func summaries(ids []string, found map[string]*domain.Participant) []domain.ParticipantSummary {
	out := make([]domain.ParticipantSummary, 0, len(ids))
	for _, id := range ids {
		if p, ok := found[id]; ok {
			out = append(out, p.Summary())
		}
	}
	return out
}
