package domain

import (
	"fmt"
	"slices"
	"time"
)

// Role is the closed set of user kinds that can take part in chats.
type Role string

const (
	RoleCoach  Role = "coach"
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleCoach, RoleClient, RoleAdmin:
		return r, nil
	default:
		return "", NewError(ErrBadRequest, fmt.Sprintf("unknown role %q", s), nil)
	}
}

// Participant is a user acting as a chat party. Conversations and
// UnreadConversationIDs are a cached view derived from Conversation records:
// the order of Conversations is a display sort key, and
// UnreadConversationIDs has set semantics.
type Participant struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Role                  Role      `json:"role"`
	Conversations         []string  `json:"conversations"`
	UnreadConversationIDs []string  `json:"unread_conversation_ids"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// ParticipantSummary is the public part of a participant embedded in
// conversation views.
type ParticipantSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Summary returns the public view of p.
func (p *Participant) Summary() ParticipantSummary {
	return ParticipantSummary{ID: p.ID, Name: p.Name, Role: p.Role}
}

// HasConversation reports whether conversationID is in p's cached list.
func (p *Participant) HasConversation(conversationID string) bool {
	return slices.Contains(p.Conversations, conversationID)
}

// IsUnread reports whether conversationID is flagged unread for p.
func (p *Participant) IsUnread(conversationID string) bool {
	return slices.Contains(p.UnreadConversationIDs, conversationID)
}

// AddConversation appends conversationID unless already present.
func (p *Participant) AddConversation(conversationID string) bool {
	if p.HasConversation(conversationID) {
		return false
	}
	p.Conversations = append(p.Conversations, conversationID)
	return true
}

// RemoveConversation drops conversationID from the list and the unread set.
func (p *Participant) RemoveConversation(conversationID string) bool {
	before := len(p.Conversations) + len(p.UnreadConversationIDs)
	p.Conversations = slices.DeleteFunc(p.Conversations, func(id string) bool { return id == conversationID })
	p.UnreadConversationIDs = slices.DeleteFunc(p.UnreadConversationIDs, func(id string) bool { return id == conversationID })
	return len(p.Conversations)+len(p.UnreadConversationIDs) != before
}

// MarkUnread inserts conversationID into the unread set. It reports whether
// the set changed.
func (p *Participant) MarkUnread(conversationID string) bool {
	if p.IsUnread(conversationID) {
		return false
	}
	p.UnreadConversationIDs = append(p.UnreadConversationIDs, conversationID)
	return true
}

// ClearUnread removes conversationID from the unread set. It reports whether
// the set changed.
func (p *Participant) ClearUnread(conversationID string) bool {
	n := len(p.UnreadConversationIDs)
	p.UnreadConversationIDs = slices.DeleteFunc(p.UnreadConversationIDs, func(id string) bool { return id == conversationID })
	return len(p.UnreadConversationIDs) != n
}

// UpsertParticipantRequest is the body of PUT /participants/me.
type UpsertParticipantRequest struct {
	Name string `json:"name" binding:"required,min=2,max=30"`
}

// Caller is the authenticated identity an operation runs on behalf of.
type Caller struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the caller holds the admin role.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}
