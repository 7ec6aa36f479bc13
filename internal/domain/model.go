package domain

import (
	"time"

	"github.com/coachhub/coach-chat/pkg/database"
)

// ParticipantModel is the GORM model for the participants table.
type ParticipantModel struct {
	ID                    string               `gorm:"type:varchar(36);primaryKey"`
	Name                  string               `gorm:"type:varchar(100)"`
	Role                  string               `gorm:"type:varchar(16);not null"`
	Conversations         database.StringArray `gorm:"type:text"`
	UnreadConversationIDs database.StringArray `gorm:"type:text"`
	CreatedAt             time.Time            `gorm:"autoCreateTime"`
	UpdatedAt             time.Time            `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for ParticipantModel.
func (ParticipantModel) TableName() string {
	return "participants"
}

// ToDomain converts ParticipantModel to a domain Participant.
func (m *ParticipantModel) ToDomain() *Participant {
	return &Participant{
		ID:                    m.ID,
		Name:                  m.Name,
		Role:                  Role(m.Role),
		Conversations:         nonNil(m.Conversations),
		UnreadConversationIDs: nonNil(m.UnreadConversationIDs),
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

// ParticipantToModel converts a domain Participant to ParticipantModel.
func ParticipantToModel(p *Participant) *ParticipantModel {
	return &ParticipantModel{
		ID:                    p.ID,
		Name:                  p.Name,
		Role:                  string(p.Role),
		Conversations:         database.StringArray(p.Conversations),
		UnreadConversationIDs: database.StringArray(p.UnreadConversationIDs),
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

// ConversationModel is the GORM model for the conversations table.
type ConversationModel struct {
	ID            string               `gorm:"type:varchar(36);primaryKey"`
	Participants  database.StringArray `gorm:"type:text;not null"`
	Messages      database.StringArray `gorm:"type:text"`
	LastMessageID *string              `gorm:"type:varchar(36)"`
	LastMessageAt *time.Time           `gorm:"index"`
	CreatedAt     time.Time            `gorm:"autoCreateTime"`
}

// TableName specifies the table name for ConversationModel.
func (ConversationModel) TableName() string {
	return "conversations"
}

// ToDomain converts ConversationModel to a domain Conversation.
func (m *ConversationModel) ToDomain() *Conversation {
	c := &Conversation{
		ID:            m.ID,
		Participants:  nonNil(m.Participants),
		Messages:      nonNil(m.Messages),
		LastMessageAt: m.LastMessageAt,
		CreatedAt:     m.CreatedAt,
	}
	if m.LastMessageID != nil {
		c.LastMessageID = *m.LastMessageID
	}
	return c
}

// ConversationToModel converts a domain Conversation to ConversationModel.
func ConversationToModel(c *Conversation) *ConversationModel {
	m := &ConversationModel{
		ID:            c.ID,
		Participants:  database.StringArray(c.Participants),
		Messages:      database.StringArray(c.Messages),
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
	}
	if c.LastMessageID != "" {
		id := c.LastMessageID
		m.LastMessageID = &id
	}
	return m
}

// MessageModel is the GORM model for the messages table.
type MessageModel struct {
	ID             string    `gorm:"type:varchar(36);primaryKey"`
	ConversationID string    `gorm:"type:varchar(36);index;not null"`
	AuthorID       string    `gorm:"type:varchar(36);not null"`
	Text           string    `gorm:"type:text"`
	Edited         bool      `gorm:"not null;default:false"`
	Timestamp      time.Time `gorm:"not null"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts MessageModel to a domain Message.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:             m.ID,
		Text:           m.Text,
		Timestamp:      m.Timestamp,
		AuthorID:       m.AuthorID,
		Edited:         m.Edited,
		ConversationID: m.ConversationID,
	}
}

// MessageToModel converts a domain Message to MessageModel.
func MessageToModel(msg *Message) *MessageModel {
	return &MessageModel{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		AuthorID:       msg.AuthorID,
		Text:           msg.Text,
		Edited:         msg.Edited,
		Timestamp:      msg.Timestamp,
	}
}

// Models lists every table for auto-migration.
func Models() []interface{} {
	return []interface{}{&ParticipantModel{}, &ConversationModel{}, &MessageModel{}}
}

func nonNil(a database.StringArray) []string {
	if a == nil {
		return []string{}
	}
	return []string(a)
}
