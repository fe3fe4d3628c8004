package repository

import (
	"context"

	"ravencube/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository stores post likes. The unique (user_id, post_id) index is
// the final guard against duplicate likes.
type LikeRepository interface {
	WithTx(tx *gorm.DB) LikeRepository
	Add(ctx context.Context, userID, postID uint) (bool, error)
	Remove(ctx context.Context, userID, postID uint) (bool, error)
	DeleteByPost(ctx context.Context, postID uint) (int64, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new LikeRepository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) WithTx(tx *gorm.DB) LikeRepository {
	return &likeRepository{db: tx}
}

// Add inserts the like; false means it was already present.
func (r *likeRepository) Add(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Like{UserID: userID, PostID: postID})
	return res.RowsAffected > 0, res.Error
}

// Remove deletes the like; false means there was none.
func (r *likeRepository) Remove(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Like{})
	return res.RowsAffected > 0, res.Error
}

func (r *likeRepository) DeleteByPost(ctx context.Context, postID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Like{})
	return res.RowsAffected, res.Error
}
