package models

import "time"

// NotificationType enumerates the kinds of notification a user can receive.
type NotificationType string

const (
	NotificationFollow  NotificationType = "follow"
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationMention NotificationType = "mention"
	NotificationReply   NotificationType = "reply"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationFollow, NotificationLike, NotificationComment, NotificationMention, NotificationReply:
		return true
	}
	return false
}

// Notification is owned by its recipient. Post and comment references are
// plain columns: they may outlive the content they point at.
type Notification struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	FromUserID uint             `gorm:"not null;index" json:"from_user_id"`
	From       User             `gorm:"foreignKey:FromUserID" json:"from"`
	ToUserID   uint             `gorm:"not null;index:idx_notifications_recipient" json:"to_user_id"`
	Type       NotificationType `gorm:"size:16;not null" json:"type"`
	PostID     *uint            `gorm:"index" json:"post_id,omitempty"`
	CommentID  *uint            `json:"comment_id,omitempty"`
	Post       *PostPreview     `gorm:"-" json:"post"`
	Comment    *CommentPreview  `gorm:"-" json:"comment"`
	CreatedAt  time.Time        `gorm:"index:idx_notifications_recipient" json:"created_at"`
}

// OwnerID returns the recipient, or 0 for a nil notification.
func (n *Notification) OwnerID() uint {
	if n == nil {
		return 0
	}
	return n.ToUserID
}

// PostPreview is the slice of a post shown alongside a notification.
type PostPreview struct {
	ID       uint   `json:"id"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
}

// CommentPreview is the slice of a comment shown alongside a notification.
type CommentPreview struct {
	ID      uint   `json:"id"`
	Content string `json:"content"`
}
