package repository

import (
	"context"

	"ravencube/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository stores directed follow edges.
type FollowRepository interface {
	WithTx(tx *gorm.DB) FollowRepository
	Add(ctx context.Context, followerID, followingID uint) (bool, error)
	Remove(ctx context.Context, followerID, followingID uint) (bool, error)
	FollowerIDs(ctx context.Context, userID uint) ([]uint, error)
	FollowingIDs(ctx context.Context, userID uint) ([]uint, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new FollowRepository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) WithTx(tx *gorm.DB) FollowRepository {
	return &followRepository{db: tx}
}

// Add inserts the edge; false means it already existed.
func (r *followRepository) Add(ctx context.Context, followerID, followingID uint) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: followerID, FollowingID: followingID})
	return res.RowsAffected > 0, res.Error
}

// Remove deletes the edge; false means there was nothing to delete.
func (r *followRepository) Remove(ctx context.Context, followerID, followingID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	return res.RowsAffected > 0, res.Error
}

func (r *followRepository) FollowerIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("following_id = ?", userID).Order("created_at ASC, id ASC").
		Pluck("follower_id", &ids).Error
	return ids, err
}

func (r *followRepository) FollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).Order("created_at ASC, id ASC").
		Pluck("following_id", &ids).Error
	return ids, err
}
