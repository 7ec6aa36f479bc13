package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/coachhub/coach-chat/internal/domain"
	"github.com/coachhub/coach-chat/pkg/database"
	"github.com/coachhub/coach-chat/pkg/log"
)

// GormConversationRepository implements ConversationRepository using GORM.
type GormConversationRepository struct {
	db *gorm.DB
}

// NewGormConversationRepository creates a new GORM-based conversation repository.
func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

// Create inserts a new conversation. An empty ID is filled with a fresh UUID.
func (r *GormConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	l := log.Ctx(ctx)

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Messages == nil {
		c.Messages = []string{}
	}

	model := domain.ConversationToModel(c)
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldConversationID, c.ID).Msg("failed to create conversation in db")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConversationExists
	}

	c.CreatedAt = model.CreatedAt
	l.Debug().Str(log.FieldConversationID, c.ID).Msg("conversation created in db")
	return nil
}

// GetByID retrieves a conversation by ID.
func (r *GormConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var model domain.ConversationModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldConversationID, id).Msg("failed to get conversation by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// Exists reports whether a conversation with id is stored.
func (r *GormConversationRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&domain.ConversationModel{}).Where("id = ?", id).Count(&count)
	if result.Error != nil {
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldConversationID, id).Msg("failed to check conversation")
		return false, result.Error
	}
	return count > 0, nil
}

// GetMany loads the conversations among ids that still exist.
func (r *GormConversationRepository) GetMany(ctx context.Context, ids []string) (map[string]*domain.Conversation, error) {
	out := make(map[string]*domain.Conversation, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var models []domain.ConversationModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Int("count", len(ids)).Msg("failed to load conversations")
		return nil, err
	}
	for i := range models {
		out[models[i].ID] = models[i].ToDomain()
	}
	return out, nil
}

// AppendMessage appends msg and moves the last-message pointer. The row is
// read under a row lock (ignored by sqlite, which serialises writers) so the
// message list and pointer are written together.
func (r *GormConversationRepository) AppendMessage(ctx context.Context, conversationID string, msg *domain.Message) (*domain.Conversation, error) {
	var updated *domain.Conversation

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model domain.ConversationModel
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, "id = ?", conversationID)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return ErrConversationNotFound
			}
			return result.Error
		}

		messages := append(database.StringArray{}, model.Messages...)
		messages = append(messages, msg.ID)
		lastID := msg.ID
		lastAt := msg.Timestamp

		result = tx.Model(&domain.ConversationModel{}).
			Where("id = ?", conversationID).
			Updates(map[string]interface{}{
				"messages":        messages,
				"last_message_id": lastID,
				"last_message_at": lastAt,
			})
		if result.Error != nil {
			return result.Error
		}

		model.Messages = messages
		model.LastMessageID = &lastID
		model.LastMessageAt = &lastAt
		updated = model.ToDomain()
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrConversationNotFound) {
			l := log.Ctx(ctx)
			l.Error().Err(err).
				Str(log.FieldConversationID, conversationID).
				Str(log.FieldMessageID, msg.ID).
				Msg("failed to append message to conversation")
		}
		return nil, err
	}
	return updated, nil
}

// Delete removes the conversation row.
func (r *GormConversationRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&domain.ConversationModel{}, "id = ?", id)
	if result.Error != nil {
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldConversationID, id).Msg("failed to delete conversation")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}
