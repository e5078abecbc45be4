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

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-backed message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Append inserts the message and advances the conversation's latest-message
// pointer in the same transaction, so readers never observe one without
// the other.
func (r *GormMessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	msg.ID = uuid.New().String()

	model := domain.MessageToModel(msg)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		result := tx.Model(&domain.ConversationModel{}).
			Where("id = ?", msg.ConversationID).
			Updates(map[string]interface{}{
				"latest_message_id": msg.ID,
				"updated_at":        time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrConversationNotFound
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrConversationNotFound) {
			l := log.Ctx(ctx)
			l.Error().Err(err).
				Str(log.FieldConversationID, msg.ConversationID).
				Msg("failed to append message")
		}
		return err
	}

	msg.CreatedAt = model.CreatedAt
	return nil
}

// ListByConversation returns all messages of a conversation in send order.
func (r *GormMessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	var models []domain.MessageModel
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).
			Str(log.FieldConversationID, conversationID).
			Msg("failed to list messages")
		return nil, err
	}

	messages := make([]domain.Message, len(models))
	for i, m := range models {
		messages[i] = *m.ToDomain()
	}
	return messages, nil
}

// GetByID retrieves a single message.
func (r *GormMessageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	var model domain.MessageModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// Ensure interface is satisfied at compile time.
var _ MessageRepository = (*GormMessageRepository)(nil)
