package service

import (
	"context"
	"strings"

	"github.com/coachhub/coach-chat/internal/audit"
	"github.com/coachhub/coach-chat/internal/domain"
)

// UpsertParticipant registers the caller as a chat participant or renames
// it. The role comes from the caller's verified identity.
func (s *chatServiceImpl) UpsertParticipant(ctx context.Context, caller domain.Caller, name string) (*domain.Participant, error) {
	if err := validateID("participant id", caller.ID); err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(string(caller.Role))
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewError(domain.ErrBadRequest, "name must not be empty", nil)
	}

	if err := s.participants.Upsert(ctx, &domain.Participant{ID: caller.ID, Name: name, Role: role}); err != nil {
		return nil, classify(ctx, err, "upsert_participant")
	}
	p, err := s.participants.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, classify(ctx, err, "upsert_participant")
	}

	audit.LogWithDetail(ctx, audit.ActionUpsertParticipant, caller.ID, string(role), "participant upserted")
	return p, nil
}
