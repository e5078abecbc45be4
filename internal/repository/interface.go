package repository

import (
	"context"
	"errors"

	"github.com/AbhishekPandey12345/CampusHub/internal/domain"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationExists   = errors.New("direct conversation already exists")
	ErrMessageNotFound      = errors.New("message not found")
	ErrFollowNotFound       = errors.New("follow edge not found")
	ErrFollowExists         = errors.New("follow edge already exists")
	ErrUserNotFound         = errors.New("user not found")
)

// ConversationRepository defines persistence operations for conversations
// and their participant sets.
type ConversationRepository interface {
	// CreateDirect inserts a two-participant direct conversation. The
	// normalized pair key's unique index arbitrates concurrent creation:
	// a losing insert returns ErrConversationExists.
	CreateDirect(ctx context.Context, conv *domain.Conversation) error

	// GetDirectByPair looks up the direct conversation for an unordered
	// user pair.
	GetDirectByPair(ctx context.Context, userA, userB string) (*domain.Conversation, error)

	// CreateGroup inserts a group conversation and its participant rows
	// in one transaction.
	CreateGroup(ctx context.Context, conv *domain.Conversation) error

	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Conversation, error)
	UpdateName(ctx context.Context, id, name string) error

	// Delete removes the conversation, its participant rows, and all of
	// its messages in one transaction.
	Delete(ctx context.Context, id string) error

	// AddParticipant inserts a membership row. A duplicate insert is an
	// idempotent no-op.
	AddParticipant(ctx context.Context, conversationID, userID string) error

	// RemoveParticipant deletes a membership row. An absent row is a
	// no-op, not an error.
	RemoveParticipant(ctx context.Context, conversationID, userID string) error
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	// Append inserts the message and updates the conversation's
	// latest-message pointer and updated_at in the same transaction, so
	// no reader can observe the pointer without the message row.
	Append(ctx context.Context, msg *domain.Message) error

	// ListByConversation returns messages ordered by created_at ascending.
	ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error)

	GetByID(ctx context.Context, id string) (*domain.Message, error)
}

// FollowRepository defines persistence operations for follow edges. The
// unique index on (follower_id, followed_id) is the source of truth for
// edge existence.
type FollowRepository interface {
	// Create inserts the edge; returns ErrFollowExists when the unique
	// constraint rejects a duplicate.
	Create(ctx context.Context, follow *domain.Follow) error

	// Delete removes the edge; returns ErrFollowNotFound when no row
	// was deleted.
	Delete(ctx context.Context, followerID, followedID string) error

	CountFollowers(ctx context.Context, userID string) (int64, error)
	CountFollowing(ctx context.Context, userID string) (int64, error)
}

// UserRepository reads and maintains the local user projection. Upsert
// and DeleteByID are called only by the CDC consumer.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.User, error)
	Upsert(ctx context.Context, user *domain.User) error
	DeleteByID(ctx context.Context, id string) error
}
