package repository

import (
	"context"

	"ravencube/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines interface for post operations
type PostRepository interface {
	WithTx(tx *gorm.DB) PostRepository
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error)
	AdjustCommentCount(ctx context.Context, id uint, delta int) error
	AdjustLikeCount(ctx context.Context, id uint, delta int) error
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new PostRepository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) WithTx(tx *gorm.DB) PostRepository {
	return &postRepository{db: tx}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

// hydrated preloads the owner, the comments in insertion order and each
// comment owner.
func (r *postRepository) hydrated(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("User", selectUserSummary).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.id ASC")
		}).
		Preload("Comments.User", selectUserSummary)
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.hydrated(ctx).First(&post, id).Error; err != nil {
		return nil, notFound(err, "Post")
	}
	if err := r.attachLikes(ctx, []*models.Post{&post}); err != nil {
		return nil, err
	}
	return &post, nil
}

// GetForUpdate loads the bare post row, locked for the rest of the
// transaction on dialects that support row locks.
func (r *postRepository) GetForUpdate(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := forUpdate(r.db.WithContext(ctx)).First(&post, id).Error; err != nil {
		return nil, notFound(err, "Post")
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	q := r.hydrated(ctx).Order("posts.created_at DESC, posts.id DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, r.attachLikes(ctx, posts)
}

func (r *postRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	q := r.hydrated(ctx).Where("posts.user_id = ?", userID).Order("posts.created_at DESC, posts.id DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, r.attachLikes(ctx, posts)
}

// attachLikes fills Likes with liker ids in like order and normalizes empty
// collections so they encode as [].
func (r *postRepository) attachLikes(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}

	var likes []models.Like
	if err := r.db.WithContext(ctx).Where("post_id IN ?", ids).
		Order("created_at ASC, id ASC").Find(&likes).Error; err != nil {
		return err
	}
	byPost := make(map[uint][]uint, len(posts))
	for _, l := range likes {
		byPost[l.PostID] = append(byPost[l.PostID], l.UserID)
	}

	for _, p := range posts {
		p.Likes = byPost[p.ID]
		if p.Likes == nil {
			p.Likes = []uint{}
		}
		if p.Comments == nil {
			p.Comments = []models.Comment{}
		}
	}
	return nil
}

func (r *postRepository) AdjustCommentCount(ctx context.Context, id uint, delta int) error {
	return r.adjust(ctx, id, "comment_count", delta)
}

func (r *postRepository) AdjustLikeCount(ctx context.Context, id uint, delta int) error {
	return r.adjust(ctx, id, "like_count", delta)
}

func (r *postRepository) adjust(ctx context.Context, id uint, column string, delta int) error {
	expr := gorm.Expr(column+" + ?", delta)
	if delta < 0 {
		expr = gorm.Expr("CASE WHEN "+column+" + ? < 0 THEN 0 ELSE "+column+" + ? END", delta, delta)
	}
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).UpdateColumn(column, expr)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundMessage("Post not found")
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundMessage("Post not found")
	}
	return nil
}
