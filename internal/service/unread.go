package service

import (
	"context"

	"github.com/coachhub/coach-chat/internal/repository"
)

// UnreadTracker flips conversation ids in and out of a participant's unread
// set. Both operations load, mutate and save the one participant record and
// skip the write when nothing changed.
type UnreadTracker struct {
	participants repository.ParticipantRepository
}

// NewUnreadTracker creates a tracker over the participant store.
func NewUnreadTracker(participants repository.ParticipantRepository) *UnreadTracker {
	return &UnreadTracker{participants: participants}
}

// MarkUnread adds conversationID to the participant's unread set.
func (t *UnreadTracker) MarkUnread(ctx context.Context, participantID, conversationID string) error {
	p, err := t.participants.GetByID(ctx, participantID)
	if err != nil {
		return err
	}
	if !p.MarkUnread(conversationID) {
		return nil
	}
	return t.participants.SaveLists(ctx, p)
}

// ClearUnread removes conversationID from the participant's unread set.
func (t *UnreadTracker) ClearUnread(ctx context.Context, participantID, conversationID string) error {
	p, err := t.participants.GetByID(ctx, participantID)
	if err != nil {
		return err
	}
	if !p.ClearUnread(conversationID) {
		return nil
	}
	return t.participants.SaveLists(ctx, p)
}
