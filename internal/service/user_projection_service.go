package service

import (
	"context"

	"github.com/AbhishekPandey12345/CampusHub/internal/consumer"
	"github.com/AbhishekPandey12345/CampusHub/internal/domain"
	"github.com/AbhishekPandey12345/CampusHub/internal/repository"
	pkglog "github.com/AbhishekPandey12345/CampusHub/pkg/log"
)

// userProjectionService maintains the local users projection from upstream
// CDC events. The users table is never written by request handlers, only by
// this projector.
type userProjectionService struct {
	users repository.UserRepository
}

// NewUserProjectionService creates a new CDC handler for user events.
func NewUserProjectionService(users repository.UserRepository) consumer.CDCEventHandler {
	return &userProjectionService{users: users}
}

// HandleCDCEvent applies a Debezium user event to the local projection.
// Creates, updates, and snapshot reads all upsert; deletes remove the row.
func (s *userProjectionService) HandleCDCEvent(ctx context.Context, event *consumer.DebeziumMessage) error {
	l := pkglog.Ctx(ctx)
	op := event.Payload.Op

	switch op {
	case "c", "u", "r":
		if event.Payload.After == nil {
			l.Warn().Str("op", op).Msg("user CDC event missing 'after' field")
			return nil
		}
		user := recordToUser(event.Payload.After)
		if err := s.users.Upsert(ctx, user); err != nil {
			l.Error().Err(err).Str(pkglog.FieldUserID, user.ID).Msg("failed to upsert user projection")
			return err
		}

	case "d":
		if event.Payload.Before == nil {
			l.Warn().Msg("user CDC delete event missing 'before' field")
			return nil
		}
		if err := s.users.DeleteByID(ctx, event.Payload.Before.ID); err != nil {
			l.Error().Err(err).Str(pkglog.FieldUserID, event.Payload.Before.ID).Msg("failed to delete user projection")
			return err
		}

	default:
		l.Warn().Str("op", op).Msg("unknown CDC operation, skipping")
	}

	return nil
}

func recordToUser(record *consumer.DebeziumUserRecord) *domain.User {
	user := &domain.User{
		ID:            record.ID,
		Username:      record.Username,
		AllowChat:     record.AllowChat,
		AllowGroupAdd: record.AllowGroupAdd,
	}
	if record.DisplayName != nil {
		user.DisplayName = *record.DisplayName
	}
	if record.AvatarURL != nil {
		user.AvatarURL = *record.AvatarURL
	}
	return user
}

// Ensure interface is satisfied at compile time.
var _ consumer.CDCEventHandler = (*userProjectionService)(nil)
