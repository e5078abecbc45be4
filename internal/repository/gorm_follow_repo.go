package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/AbhishekPandey12345/CampusHub/internal/domain"
	"github.com/AbhishekPandey12345/CampusHub/pkg/log"
)

// GormFollowRepository implements FollowRepository using GORM.
type GormFollowRepository struct {
	db *gorm.DB
}

// NewGormFollowRepository creates a new GORM-backed follow repository.
func NewGormFollowRepository(db *gorm.DB) *GormFollowRepository {
	return &GormFollowRepository{db: db}
}

// Create inserts a follow edge. The (follower, followed) unique index makes
// a concurrent duplicate surface as ErrFollowExists.
func (r *GormFollowRepository) Create(ctx context.Context, follow *domain.Follow) error {
	model := domain.FollowModel{
		FollowerID: follow.FollowerID,
		FollowedID: follow.FollowedID,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrFollowExists
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).
			Str(log.FieldUserID, follow.FollowerID).
			Str(log.FieldTargetID, follow.FollowedID).
			Msg("failed to create follow edge")
		return err
	}
	follow.CreatedAt = model.CreatedAt
	return nil
}

// Delete removes a follow edge, returning ErrFollowNotFound if no edge
// existed.
func (r *GormFollowRepository) Delete(ctx context.Context, followerID, followedID string) error {
	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&domain.FollowModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrFollowNotFound
	}
	return nil
}

// CountFollowers counts edges pointing at userID, served from the
// followed-side index.
func (r *GormFollowRepository) CountFollowers(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.FollowModel{}).
		Where("followed_id = ?", userID).
		Count(&count).Error
	return count, err
}

// CountFollowing counts edges originating from userID, served from the
// follower-side index.
func (r *GormFollowRepository) CountFollowing(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.FollowModel{}).
		Where("follower_id = ?", userID).
		Count(&count).Error
	return count, err
}

// Ensure interface is satisfied at compile time.
var _ FollowRepository = (*GormFollowRepository)(nil)
