package models

import "time"

// Comment belongs to exactly one post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnerID returns the author of the comment, or 0 for a nil comment.
func (c *Comment) OwnerID() uint {
	if c == nil {
		return 0
	}
	return c.UserID
}
