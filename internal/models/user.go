// Package models contains the persisted domain types and the API error taxonomy.
package models

import "time"

// User is a member of the network. It is created on first sync from the
// identity provider and never hard-deleted.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AuthSubject    string    `gorm:"size:191;uniqueIndex;not null" json:"auth_subject,omitempty"`
	Email          string    `gorm:"size:255;index" json:"email,omitempty"`
	Username       string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	FirstName      string    `gorm:"size:100" json:"first_name"`
	LastName       string    `gorm:"size:100" json:"last_name"`
	ProfilePicture string    `json:"profile_picture"`
	BannerImage    string    `json:"banner_image,omitempty"`
	Bio            string    `gorm:"type:text" json:"bio,omitempty"`
	Location       string    `gorm:"size:100" json:"location,omitempty"`
	Followers      []uint    `gorm:"-" json:"followers"`
	Following      []uint    `gorm:"-" json:"following"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// OwnerID reports the user that owns this record, which is the user itself.
func (u *User) OwnerID() uint {
	if u == nil {
		return 0
	}
	return u.ID
}

// Summary returns the public subset hydrated for nested owners.
func (u *User) Summary() User {
	return User{
		ID:             u.ID,
		Username:       u.Username,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		ProfilePicture: u.ProfilePicture,
	}
}

// Follow is a directed edge in the social graph.
type Follow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FollowerID  uint      `gorm:"not null;uniqueIndex:idx_follows_pair" json:"follower_id"`
	FollowingID uint      `gorm:"not null;uniqueIndex:idx_follows_pair;index" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserSummaryColumns is the column set hydrated for nested owner summaries.
var UserSummaryColumns = []string{"id", "username", "first_name", "last_name", "profile_picture"}
