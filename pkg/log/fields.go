package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware keys)
	FieldUserID = "user_id"
	FieldRole   = "role"

	// Chat
	FieldConversationID  = "conversation_id"
	FieldMessageID       = "message_id"
	FieldParticipantID   = "participant_id"
	FieldConnectionToken = "connection_token"
	FieldClientID        = "client_id"

	// Service
	FieldService = "service"
	FieldNodeID  = "node_id"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
