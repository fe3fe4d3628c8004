package repository

import (
	"context"

	"ravencube/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	WithTx(tx *gorm.DB) CommentRepository
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	Delete(ctx context.Context, id uint) error
	DeleteByPost(ctx context.Context, postID uint) (int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) WithTx(tx *gorm.DB) CommentRepository {
	return &commentRepository{db: tx}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("User", selectUserSummary).First(&comment, id).Error; err != nil {
		return nil, notFound(err, "Comment")
	}
	return &comment, nil
}

func (r *commentRepository) GetForUpdate(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := forUpdate(r.db.WithContext(ctx)).First(&comment, id).Error; err != nil {
		return nil, notFound(err, "Comment")
	}
	return &comment, nil
}

// ListByPost returns the post's comments newest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	comments := []*models.Comment{}
	err := r.db.WithContext(ctx).Preload("User", selectUserSummary).
		Where("post_id = ?", postID).
		Order("created_at DESC, id DESC").
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundMessage("Comment not found")
	}
	return nil
}

func (r *commentRepository) DeleteByPost(ctx context.Context, postID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Comment{})
	return res.RowsAffected, res.Error
}
