package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/coachhub/coach-chat/internal/domain"
	"github.com/coachhub/coach-chat/internal/repository"
	"github.com/coachhub/coach-chat/pkg/log"
)

// validateID rejects identifiers that are not UUIDs.
func validateID(what, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.NewError(domain.ErrBadRequest, fmt.Sprintf("%s '%s' is invalid", what, id), err)
	}
	return nil
}

// classify maps an error from the record store onto a domain error kind.
// Unclassified errors are logged and replaced by a generic internal error so
// storage details never reach clients.
func classify(ctx context.Context, err error, op string) error {
	if err == nil {
		return nil
	}

	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}

	switch {
	case errors.Is(err, repository.ErrConversationNotFound):
		return domain.NewError(domain.ErrNotFound, "conversation not found", err)
	case errors.Is(err, repository.ErrParticipantNotFound):
		return domain.NewError(domain.ErrNotFound, "participant not found", err)
	case errors.Is(err, repository.ErrMessageNotFound):
		return domain.NewError(domain.ErrNotFound, "message not found", err)
	case errors.Is(err, repository.ErrConversationExists):
		return domain.NewError(domain.ErrConflict, "conversation already exists", err)
	}

	l := log.Ctx(ctx)
	l.Error().Err(err).Str("op", op).Msg("chat operation failed")
	return domain.NewError(domain.ErrInternal, "server error", err)
}

func forbidden(msg string) error {
	return domain.NewError(domain.ErrForbidden, msg, nil)
}
