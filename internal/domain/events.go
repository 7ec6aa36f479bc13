package domain

import "time"

// WebSocket message types from client.
const (
	MsgTypeLogIn = "log_in"
	MsgTypePing  = "ping"
)

// WebSocket message types to client.
const (
	MsgTypeLoggedIn         = "logged_in"
	MsgTypePong             = "pong"
	MsgTypeError            = "error"
	MsgTypeNewMessageInChat = "new_message_in_chat"
)

// BaseMessage is the envelope shared by every frame.
type BaseMessage struct {
	Type string `json:"type"`
}

// LogInMessage binds a connection to a user. Token is the caller's access
// token and doubles as the registry key for this connection.
type LogInMessage struct {
	Type   string `json:"type"`
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// LoggedInMessage acknowledges a successful log_in.
type LoggedInMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// NewMessageEvent tells a client that a conversation has a new message.
// It carries identifiers and a timestamp only, never message content.
type NewMessageEvent struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewMessageEventFor builds the event announcing msg.
func NewMessageEventFor(msg *Message) *NewMessageEvent {
	return &NewMessageEvent{
		Type:           MsgTypeNewMessageInChat,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		Timestamp:      msg.Timestamp,
	}
}

// ErrorMessage reports a protocol failure to the client.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorMessage builds an error frame.
func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{Type: MsgTypeError, Code: code, Message: message}
}
