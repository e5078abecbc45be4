package service

import (
	"context"
	"errors"

	"github.com/AbhishekPandey12345/CampusHub/internal/domain"
)

var (
	ErrSelfChat             = errors.New("cannot start a conversation with yourself")
	ErrChatDisabled         = errors.New("target user does not accept new conversations")
	ErrSelfFollow           = errors.New("cannot follow yourself")
	ErrNotAdmin             = errors.New("only the group admin may perform this action")
	ErrNotParticipant       = errors.New("user is not a participant of this conversation")
	ErrNotGroup             = errors.New("operation only applies to group conversations")
	ErrGroupAddDisabled     = errors.New("target user does not accept group invitations")
	ErrTooFewMembers        = errors.New("a group needs at least two members besides the creator")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrUserNotFound         = errors.New("user not found")
)

// ConversationService defines the business logic for conversations,
// membership, and messages.
type ConversationService interface {
	FindOrCreateDirect(ctx context.Context, userID, targetID string) (*domain.ConversationView, error)
	CreateGroup(ctx context.Context, adminID, name, avatarURL string, memberIDs []string) (*domain.ConversationView, error)
	ListForUser(ctx context.Context, userID string) ([]domain.ConversationView, error)
	GetByID(ctx context.Context, userID, conversationID string) (*domain.ConversationView, error)
	Rename(ctx context.Context, userID, conversationID, name string) error
	Delete(ctx context.Context, userID, conversationID string) error
	AddMember(ctx context.Context, userID, conversationID, memberID string) error
	RemoveMember(ctx context.Context, userID, conversationID, memberID string) error
	AppendMessage(ctx context.Context, senderID, conversationID, content string) (*domain.MessageView, error)
	ListMessages(ctx context.Context, userID, conversationID string) ([]domain.MessageView, error)
}

// SocialGraphService defines the business logic for the follow graph.
type SocialGraphService interface {
	ToggleFollow(ctx context.Context, followerID, targetID string) (*domain.FollowToggleResult, error)
	GetFollowersCount(ctx context.Context, userID string) (int64, error)
	GetFollowingCount(ctx context.Context, userID string) (int64, error)
}
