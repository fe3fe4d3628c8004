package models

import "time"

// Post is a piece of content owned by a user. LikeCount and CommentCount are
// maintained in the same transaction as the rows they count.
type Post struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	User         User      `gorm:"foreignKey:UserID" json:"user"`
	Content      string    `gorm:"type:text" json:"content"`
	ImageURL     string    `json:"image_url"`
	LikeCount    int       `gorm:"not null;default:0" json:"like_count"`
	CommentCount int       `gorm:"not null;default:0" json:"comment_count"`
	Likes        []uint    `gorm:"-" json:"likes"`
	Comments     []Comment `gorm:"foreignKey:PostID" json:"comments"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OwnerID returns the author of the post, or 0 for a nil post.
func (p *Post) OwnerID() uint {
	if p == nil {
		return 0
	}
	return p.UserID
}

// Like records that a user liked a post. The (user_id, post_id) pair is unique.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
