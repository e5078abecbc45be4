package service

import (
	"context"
	"errors"

	"github.com/AbhishekPandey12345/CampusHub/internal/audit"
	"github.com/AbhishekPandey12345/CampusHub/internal/domain"
	"github.com/AbhishekPandey12345/CampusHub/internal/repository"
	"github.com/AbhishekPandey12345/CampusHub/internal/store"
	pkglog "github.com/AbhishekPandey12345/CampusHub/pkg/log"
)

// socialGraphService implements SocialGraphService.
type socialGraphService struct {
	follows repository.FollowRepository
	users   repository.UserRepository
	store   store.CountStore
}

// NewSocialGraphService creates a new SocialGraphService instance.
func NewSocialGraphService(follows repository.FollowRepository, users repository.UserRepository, counts store.CountStore) SocialGraphService {
	return &socialGraphService{
		follows: follows,
		users:   users,
		store:   counts,
	}
}

// ToggleFollow flips the follow edge from followerID to targetID and
// returns the resulting state with fresh counts. The toggle is idempotent
// under races: the edge's unique constraint makes concurrent duplicate
// creates collapse into one, and a lost delete race simply lands on the
// other state.
func (s *socialGraphService) ToggleFollow(ctx context.Context, followerID, targetID string) (*domain.FollowToggleResult, error) {
	l := pkglog.Ctx(ctx)

	if followerID == targetID {
		return nil, ErrSelfFollow
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	isFollowing := false
	err := s.follows.Delete(ctx, followerID, targetID)
	switch {
	case err == nil:
		// Edge existed and was removed.
		s.adjustCounts(ctx, followerID, targetID, false)
	case errors.Is(err, repository.ErrFollowNotFound):
		createErr := s.follows.Create(ctx, &domain.Follow{FollowerID: followerID, FollowedID: targetID})
		if createErr != nil && !errors.Is(createErr, repository.ErrFollowExists) {
			l.Error().Err(createErr).
				Str(pkglog.FieldUserID, followerID).
				Str(pkglog.FieldTargetID, targetID).
				Msg("failed to create follow edge")
			return nil, createErr
		}
		isFollowing = true
		if createErr == nil {
			s.adjustCounts(ctx, followerID, targetID, true)
		}
	default:
		l.Error().Err(err).
			Str(pkglog.FieldUserID, followerID).
			Str(pkglog.FieldTargetID, targetID).
			Msg("failed to delete follow edge")
		return nil, err
	}

	followers, err := s.GetFollowersCount(ctx, targetID)
	if err != nil {
		return nil, err
	}
	following, err := s.GetFollowingCount(ctx, followerID)
	if err != nil {
		return nil, err
	}

	audit.LogWithDetail(ctx, audit.ActionToggleFollow, followerID, targetID, "follow toggled")
	return &domain.FollowToggleResult{
		IsFollowing: isFollowing,
		Followers:   followers,
		Following:   following,
	}, nil
}

// GetFollowersCount returns the number of followers of userID. It checks
// Redis first; on miss it queries the DB and populates Redis.
func (s *socialGraphService) GetFollowersCount(ctx context.Context, userID string) (int64, error) {
	l := pkglog.Ctx(ctx)

	count, found, err := s.store.GetFollowersCount(ctx, userID)
	if err != nil {
		l.Warn().Err(err).Str(pkglog.FieldUserID, userID).Msg("redis get followers count failed, falling back to db")
	} else if found {
		return count, nil
	}

	count, err = s.follows.CountFollowers(ctx, userID)
	if err != nil {
		l.Error().Err(err).Str(pkglog.FieldUserID, userID).Msg("failed to count followers")
		return 0, err
	}

	if err := s.store.SetFollowersCount(ctx, userID, count); err != nil {
		l.Warn().Err(err).Str(pkglog.FieldUserID, userID).Msg("failed to cache followers count")
	}
	return count, nil
}

// GetFollowingCount returns the number of users userID follows, using the
// same cache-aside path as GetFollowersCount.
func (s *socialGraphService) GetFollowingCount(ctx context.Context, userID string) (int64, error) {
	l := pkglog.Ctx(ctx)

	count, found, err := s.store.GetFollowingCount(ctx, userID)
	if err != nil {
		l.Warn().Err(err).Str(pkglog.FieldUserID, userID).Msg("redis get following count failed, falling back to db")
	} else if found {
		return count, nil
	}

	count, err = s.follows.CountFollowing(ctx, userID)
	if err != nil {
		l.Error().Err(err).Str(pkglog.FieldUserID, userID).Msg("failed to count following")
		return 0, err
	}

	if err := s.store.SetFollowingCount(ctx, userID, count); err != nil {
		l.Warn().Err(err).Str(pkglog.FieldUserID, userID).Msg("failed to cache following count")
	}
	return count, nil
}

// adjustCounts nudges the cached counts after a confirmed edge change. The
// conditional scripts only touch keys that already exist, so a cold cache
// is left for the next read to seed from the DB.
func (s *socialGraphService) adjustCounts(ctx context.Context, followerID, targetID string, followed bool) {
	l := pkglog.Ctx(ctx)

	var err error
	if followed {
		err = s.store.CondIncrFollowersCount(ctx, targetID)
		if err == nil {
			err = s.store.CondIncrFollowingCount(ctx, followerID)
		}
	} else {
		err = s.store.CondDecrFollowersCount(ctx, targetID)
		if err == nil {
			err = s.store.CondDecrFollowingCount(ctx, followerID)
		}
	}
	if err != nil {
		l.Warn().Err(err).
			Str(pkglog.FieldUserID, followerID).
			Str(pkglog.FieldTargetID, targetID).
			Msg("failed to adjust cached follow counts")
	}
}

// Ensure interface is satisfied at compile time.
var _ SocialGraphService = (*socialGraphService)(nil)
