package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ravencube/internal/models"
	"ravencube/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_KeepsCountersConsistent(t *testing.T) {
	db := testutil.NewTestDB(t)
	seeder := NewSeeder(db, 42)

	summary, err := seeder.Run(context.Background(), Options{
		NumUsers:           6,
		NumPosts:           10,
		MaxCommentsPerPost: 3,
		LikeRatio:          0.5,
		FollowRatio:        0.3,
		MentionRatio:       0.5,
		Usernames:          []string{"alice", "bob"},
	})
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Users)
	assert.Equal(t, 10, summary.Posts)

	var users []models.User
	require.NoError(t, db.Order("id").Find(&users).Error)
	require.Len(t, users, 6)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	totalComments, totalLikes := 0, 0
	for _, p := range posts {
		var comments, likes int64
		require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", p.ID).Count(&comments).Error)
		require.NoError(t, db.Model(&models.Like{}).Where("post_id = ?", p.ID).Count(&likes).Error)
		assert.Equal(t, int(comments), p.CommentCount, "post %d comment_count", p.ID)
		assert.Equal(t, int(likes), p.LikeCount, "post %d like_count", p.ID)
		totalComments += int(comments)
		totalLikes += int(likes)
	}
	assert.Equal(t, summary.Comments, totalComments)
	assert.Equal(t, summary.Likes, totalLikes)

	var follows int64
	require.NoError(t, db.Model(&models.Follow{}).Count(&follows).Error)
	assert.Equal(t, int64(summary.Follows), follows)

	var selfNotifications int64
	require.NoError(t, db.Model(&models.Notification{}).Where("from_user_id = to_user_id").Count(&selfNotifications).Error)
	assert.Zero(t, selfNotifications)
}

func TestClearAll(t *testing.T) {
	db := testutil.NewTestDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	testutil.CreatePost(t, db, alice.ID, "hello")

	require.NoError(t, NewSeeder(db, 1).ClearAll(context.Background()))

	var users, posts int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.Zero(t, users)
	assert.Zero(t, posts)
}

func TestLoadPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.yml")
	require.NoError(t, os.WriteFile(path, []byte("users: 3\nposts: 4\nusernames: [alice]\nclean: false\nseed: 7\n"), 0o600))

	opts, err := LoadPreset(path)
	require.NoError(t, err)
	assert.Equal(t, 3, opts.NumUsers)
	assert.Equal(t, 4, opts.NumPosts)
	assert.Equal(t, []string{"alice"}, opts.Usernames)
	assert.False(t, opts.ShouldClean)
	assert.Equal(t, int64(7), opts.RandSeed)
	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultOptions().MaxCommentsPerPost, opts.MaxCommentsPerPost)

	_, err = LoadPreset(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
