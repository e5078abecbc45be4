package service

import (
	"context"
	"errors"

	"github.com/AbhishekPandey12345/CampusHub/internal/repository"
)

// AccessEvaluator decides whether a user may open a conversation with, or
// pull into a group, another user. Decisions are based on the target's
// privacy settings in the users projection.
type AccessEvaluator struct {
	users repository.UserRepository
}

// NewAccessEvaluator creates a new AccessEvaluator.
func NewAccessEvaluator(users repository.UserRepository) *AccessEvaluator {
	return &AccessEvaluator{users: users}
}

// CanStartDirect checks whether userID may open a direct conversation with
// targetID. Self chat is always denied, then the target's allow_chat
// setting is consulted.
func (e *AccessEvaluator) CanStartDirect(ctx context.Context, userID, targetID string) error {
	if userID == targetID {
		return ErrSelfChat
	}

	target, err := e.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !target.AllowChat {
		return ErrChatDisabled
	}
	return nil
}

// CanAddToGroup checks whether targetID accepts being added to group
// conversations.
func (e *AccessEvaluator) CanAddToGroup(ctx context.Context, targetID string) error {
	target, err := e.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !target.AllowGroupAdd {
		return ErrGroupAddDisabled
	}
	return nil
}
