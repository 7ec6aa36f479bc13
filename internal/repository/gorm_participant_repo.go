package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/coachhub/coach-chat/internal/domain"
	"github.com/coachhub/coach-chat/pkg/database"
	"github.com/coachhub/coach-chat/pkg/log"
)

// GormParticipantRepository implements ParticipantRepository using GORM.
type GormParticipantRepository struct {
	db *gorm.DB
}

// NewGormParticipantRepository creates a new GORM-based participant repository.
func NewGormParticipantRepository(db *gorm.DB) *GormParticipantRepository {
	return &GormParticipantRepository{db: db}
}

// GetByID retrieves a participant by ID.
func (r *GormParticipantRepository) GetByID(ctx context.Context, id string) (*domain.Participant, error) {
	var model domain.ParticipantModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldParticipantID, id).Msg("failed to get participant by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// GetMany loads the participants among ids that exist.
func (r *GormParticipantRepository) GetMany(ctx context.Context, ids []string) (map[string]*domain.Participant, error) {
	out := make(map[string]*domain.Participant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var models []domain.ParticipantModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Int("count", len(ids)).Msg("failed to load participants")
		return nil, err
	}
	for i := range models {
		out[models[i].ID] = models[i].ToDomain()
	}
	return out, nil
}

// Upsert creates or renames a participant.
func (r *GormParticipantRepository) Upsert(ctx context.Context, p *domain.Participant) error {
	model := domain.ParticipantToModel(p)
	if model.Conversations == nil {
		model.Conversations = database.StringArray{}
	}
	if model.UnreadConversationIDs == nil {
		model.UnreadConversationIDs = database.StringArray{}
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "role", "updated_at"}),
	}).Create(model)
	if result.Error != nil {
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldParticipantID, p.ID).Msg("failed to upsert participant")
		return result.Error
	}
	return nil
}

// SaveLists persists the participant's conversation list and unread set.
func (r *GormParticipantRepository) SaveLists(ctx context.Context, p *domain.Participant) error {
	l := log.Ctx(ctx)

	conversations := database.StringArray(p.Conversations)
	if conversations == nil {
		conversations = database.StringArray{}
	}
	unread := database.StringArray(p.UnreadConversationIDs)
	if unread == nil {
		unread = database.StringArray{}
	}

	result := r.db.WithContext(ctx).Model(&domain.ParticipantModel{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"conversations":           conversations,
			"unread_conversation_ids": unread,
		})
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldParticipantID, p.ID).Msg("failed to save participant lists")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrParticipantNotFound
	}
	return nil
}
