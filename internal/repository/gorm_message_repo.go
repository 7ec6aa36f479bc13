package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coachhub/coach-chat/internal/domain"
	"github.com/coachhub/coach-chat/pkg/log"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Create inserts a message. An empty ID is filled with a fresh UUID.
func (r *GormMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(domain.MessageToModel(msg)).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).
			Str(log.FieldConversationID, msg.ConversationID).
			Msg("failed to create message in db")
		return err
	}
	return nil
}

// GetByIDs loads messages and returns them in the order of ids.
func (r *GormMessageRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Message, error) {
	if len(ids) == 0 {
		return []domain.Message{}, nil
	}

	var models []domain.MessageModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Int("count", len(ids)).Msg("failed to load messages")
		return nil, err
	}

	byID := make(map[string]*domain.MessageModel, len(models))
	for i := range models {
		byID[models[i].ID] = &models[i]
	}

	messages := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			messages = append(messages, *m.ToDomain())
		}
	}
	return messages, nil
}

// Delete removes a single message.
func (r *GormMessageRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&domain.MessageModel{}, "id = ?", id)
	if result.Error != nil {
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldMessageID, id).Msg("failed to delete message")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// DeleteByConversation removes every message of a conversation.
func (r *GormMessageRepository) DeleteByConversation(ctx context.Context, conversationID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).Delete(&domain.MessageModel{})
	if result.Error != nil {
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldConversationID, conversationID).Msg("failed to delete conversation messages")
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
