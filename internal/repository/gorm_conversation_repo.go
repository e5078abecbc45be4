package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AbhishekPandey12345/CampusHub/internal/domain"
	"github.com/AbhishekPandey12345/CampusHub/pkg/log"
)

// isUniqueViolation reports whether err is a unique-constraint violation.
// pkg/database opens GORM with TranslateError, so all drivers wrap these
// as gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// GormConversationRepository implements ConversationRepository using GORM.
type GormConversationRepository struct {
	db *gorm.DB
}

// NewGormConversationRepository creates a new GORM-backed conversation repository.
func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

// CreateDirect inserts a direct conversation plus its two participant rows.
// The pair-key unique index arbitrates races: the losing transaction rolls
// back entirely and ErrConversationExists is returned.
func (r *GormConversationRepository) CreateDirect(ctx context.Context, conv *domain.Conversation) error {
	conv.ID = uuid.New().String()
	conv.Kind = domain.KindDirect

	model := domain.ConversationToModel(conv)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		return tx.Create(participantRows(conv.ID, conv.Participants)).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConversationExists
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to create direct conversation")
		return err
	}

	conv.CreatedAt = model.CreatedAt
	conv.UpdatedAt = model.UpdatedAt
	return nil
}

// GetDirectByPair looks up the direct conversation for an unordered pair.
func (r *GormConversationRepository) GetDirectByPair(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	var model domain.ConversationModel
	result := r.db.WithContext(ctx).First(&model, "pair_key = ?", domain.DirectPairKey(userA, userB))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, result.Error
	}
	return r.withParticipants(ctx, &model)
}

// CreateGroup inserts a group conversation and its participant rows in one
// transaction.
func (r *GormConversationRepository) CreateGroup(ctx context.Context, conv *domain.Conversation) error {
	conv.ID = uuid.New().String()
	conv.Kind = domain.KindGroup

	model := domain.ConversationToModel(conv)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		return tx.Create(participantRows(conv.ID, conv.Participants)).Error
	})
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to create group conversation")
		return err
	}

	conv.CreatedAt = model.CreatedAt
	conv.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID retrieves a conversation with its participant set attached.
func (r *GormConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var model domain.ConversationModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, result.Error
	}
	return r.withParticipants(ctx, &model)
}

// ListByUser returns all conversations containing userID, newest activity
// first, each with its participant set attached.
func (r *GormConversationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Conversation, error) {
	memberOf := r.db.Model(&domain.ParticipantModel{}).
		Select("conversation_id").
		Where("user_id = ?", userID)

	var models []domain.ConversationModel
	err := r.db.WithContext(ctx).
		Where("id IN (?)", memberOf).
		Order("updated_at DESC").
		Find(&models).Error
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to list conversations")
		return nil, err
	}

	if len(models) == 0 {
		return []domain.Conversation{}, nil
	}

	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}

	var rows []domain.ParticipantModel
	if err := r.db.WithContext(ctx).Where("conversation_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}

	byConversation := make(map[string][]string, len(models))
	for _, row := range rows {
		byConversation[row.ConversationID] = append(byConversation[row.ConversationID], row.UserID)
	}

	conversations := make([]domain.Conversation, len(models))
	for i, m := range models {
		conv := m.ToDomain()
		conv.Participants = byConversation[m.ID]
		conversations[i] = *conv
	}
	return conversations, nil
}

// UpdateName renames a conversation.
func (r *GormConversationRepository) UpdateName(ctx context.Context, id, name string) error {
	result := r.db.WithContext(ctx).Model(&domain.ConversationModel{}).
		Where("id = ?", id).
		Update("display_name", name)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// Delete hard-deletes the conversation, its participant rows, and all of
// its messages in one transaction.
func (r *GormConversationRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&domain.MessageModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&domain.ParticipantModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&domain.ConversationModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrConversationNotFound
		}
		return nil
	})
}

// AddParticipant inserts a membership row; a duplicate is an idempotent
// no-op thanks to uidx_conversation_member.
func (r *GormConversationRepository) AddParticipant(ctx context.Context, conversationID, userID string) error {
	row := domain.ParticipantModel{ConversationID: conversationID, UserID: userID}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	return r.touch(ctx, conversationID)
}

// RemoveParticipant deletes a membership row; an absent row is a no-op.
func (r *GormConversationRepository) RemoveParticipant(ctx context.Context, conversationID, userID string) error {
	result := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Delete(&domain.ParticipantModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return nil
	}
	return r.touch(ctx, conversationID)
}

// touch refreshes the conversation's updated_at after a membership change.
func (r *GormConversationRepository) touch(ctx context.Context, conversationID string) error {
	return r.db.WithContext(ctx).Model(&domain.ConversationModel{}).
		Where("id = ?", conversationID).
		Update("updated_at", time.Now()).Error
}

// withParticipants attaches the participant set to a conversation model.
func (r *GormConversationRepository) withParticipants(ctx context.Context, model *domain.ConversationModel) (*domain.Conversation, error) {
	var userIDs []string
	err := r.db.WithContext(ctx).Model(&domain.ParticipantModel{}).
		Where("conversation_id = ?", model.ID).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, err
	}

	conv := model.ToDomain()
	conv.Participants = userIDs
	return conv, nil
}

func participantRows(conversationID string, userIDs []string) []domain.ParticipantModel {
	rows := make([]domain.ParticipantModel, len(userIDs))
	for i, id := range userIDs {
		rows[i] = domain.ParticipantModel{ConversationID: conversationID, UserID: id}
	}
	return rows
}

// Ensure interface is satisfied at compile time.
var _ ConversationRepository = (*GormConversationRepository)(nil)
