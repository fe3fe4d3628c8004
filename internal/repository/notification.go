package repository

import (
	"context"

	"ravencube/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationRepository defines interface for notification operations
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id uint) (*models.Notification, error)
	ListForRecipient(ctx context.Context, userID uint, limit int) ([]*models.Notification, error)
	Delete(ctx context.Context, id uint) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(n).Error
}

func (r *notificationRepository) GetByID(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, notFound(err, "Notification")
	}
	return &n, nil
}

// ListForRecipient returns the newest notifications first with the sender
// summary and previews of the referenced post and comment. References to
// deleted content hydrate as nil.
func (r *notificationRepository) ListForRecipient(ctx context.Context, userID uint, limit int) ([]*models.Notification, error) {
	items := []*models.Notification{}
	q := r.db.WithContext(ctx).Preload("From", selectUserSummary).
		Where("to_user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, r.attachPreviews(ctx, items)
}

func (r *notificationRepository) attachPreviews(ctx context.Context, items []*models.Notification) error {
	var postIDs, commentIDs []uint
	for _, n := range items {
		if n.PostID != nil {
			postIDs = append(postIDs, *n.PostID)
		}
		if n.CommentID != nil {
			commentIDs = append(commentIDs, *n.CommentID)
		}
	}

	posts := map[uint]*models.PostPreview{}
	if len(postIDs) > 0 {
		var rows []models.PostPreview
		if err := r.db.WithContext(ctx).Model(&models.Post{}).
			Select("id", "content", "image_url").
			Where("id IN ?", postIDs).Find(&rows).Error; err != nil {
			return err
		}
		for i := range rows {
			posts[rows[i].ID] = &rows[i]
		}
	}

	comments := map[uint]*models.CommentPreview{}
	if len(commentIDs) > 0 {
		var rows []models.CommentPreview
		if err := r.db.WithContext(ctx).Model(&models.Comment{}).
			Select("id", "content").
			Where("id IN ?", commentIDs).Find(&rows).Error; err != nil {
			return err
		}
		for i := range rows {
			comments[rows[i].ID] = &rows[i]
		}
	}

	for _, n := range items {
		if n.PostID != nil {
			n.Post = posts[*n.PostID]
		}
		if n.CommentID != nil {
			n.Comment = comments[*n.CommentID]
		}
	}
	return nil
}

func (r *notificationRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Notification{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundMessage("Notification not found")
	}
	return nil
}
