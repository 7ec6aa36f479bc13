package audit

import (
	"context"

	"github.com/coachhub/coach-chat/pkg/log"
)

// Audit actions for the chat service.
const (
	ActionCreateConversation = "conversation.create"
	ActionEnsureConversation = "conversation.ensure"
	ActionDeleteConversation = "conversation.delete"
	ActionAddMessage         = "message.add"
	ActionChannelLogIn       = "channel.log_in"
	ActionUpsertParticipant  = "participant.upsert"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogConversation emits an audit entry about a single conversation.
func LogConversation(ctx context.Context, action string, userID, conversationID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(log.FieldConversationID, conversationID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, userID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
