package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhishekPandey12345/CampusHub/internal/domain"
)

func TestFollowCreate_DuplicateRejected(t *testing.T) {
	db := setupDB(t)
	repo := NewGormFollowRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Follow{FollowerID: "alice", FollowedID: "bob"}))

	err := repo.Create(ctx, &domain.Follow{FollowerID: "alice", FollowedID: "bob"})
	assert.ErrorIs(t, err, ErrFollowExists)

	// The opposite direction is a distinct edge.
	require.NoError(t, repo.Create(ctx, &domain.Follow{FollowerID: "bob", FollowedID: "alice"}))
}

func TestFollowDelete(t *testing.T) {
	db := setupDB(t)
	repo := NewGormFollowRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Follow{FollowerID: "alice", FollowedID: "bob"}))
	require.NoError(t, repo.Delete(ctx, "alice", "bob"))

	assert.ErrorIs(t, repo.Delete(ctx, "alice", "bob"), ErrFollowNotFound)
}

func TestFollowCounts(t *testing.T) {
	db := setupDB(t)
	repo := NewGormFollowRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Follow{FollowerID: "alice", FollowedID: "bob"}))
	require.NoError(t, repo.Create(ctx, &domain.Follow{FollowerID: "carol", FollowedID: "bob"}))
	require.NoError(t, repo.Create(ctx, &domain.Follow{FollowerID: "alice", FollowedID: "carol"}))

	followers, err := repo.CountFollowers(ctx, "bob")
	require.NoError(t, err)
	assert.EqualValues(t, 2, followers)

	following, err := repo.CountFollowing(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 2, following)

	followers, err = repo.CountFollowers(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, followers)
}
