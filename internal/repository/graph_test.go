package repository

import (
	"context"
	"testing"

	"ravencube/internal/database"
	"ravencube/internal/models"
	"ravencube/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeRepository_AddRemove(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	post := testutil.CreatePost(t, db, alice.ID, "post")

	added, err := repo.Add(ctx, alice.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.Add(ctx, alice.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, added, "duplicate like is a no-op")

	var count int64
	require.NoError(t, db.Model(&models.Like{}).Where("user_id = ? AND post_id = ?", alice.ID, post.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	removed, err := repo.Remove(ctx, alice.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Remove(ctx, alice.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestLikeRepository_UniquePair(t *testing.T) {
	db := testutil.NewTestDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	post := testutil.CreatePost(t, db, alice.ID, "post")

	require.NoError(t, db.Create(&models.Like{UserID: alice.ID, PostID: post.ID}).Error)
	err := db.Create(&models.Like{UserID: alice.ID, PostID: post.ID}).Error
	assert.True(t, database.IsUniqueViolation(err))
}

func TestFollowRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")

	for _, id := range []uint{bob.ID, carol.ID} {
		added, err := repo.Add(ctx, id, alice.ID)
		require.NoError(t, err)
		assert.True(t, added)
	}
	added, err := repo.Add(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, added)

	followers, err := repo.FollowerIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{bob.ID, carol.ID}, followers)

	following, err := repo.FollowingIDs(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{alice.ID}, following)

	removed, err := repo.Remove(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	following, err = repo.FollowingIDs(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, following)
}

func TestUserRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{AuthSubject: "sub|1", Username: "dana", Email: "dana@example.com"}
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.GetBySubject(ctx, "sub|1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	taken, err := repo.UsernameTaken(ctx, "dana", 0)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.UsernameTaken(ctx, "dana", user.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	require.NoError(t, repo.UpdateFields(ctx, user.ID, map[string]any{"bio": "hi"}))
	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Bio)
	assert.True(t, models.IsCode(repo.UpdateFields(ctx, 999, map[string]any{"bio": "x"}), models.CodeNotFound))

	found, err := repo.FindByUsernames(ctx, []string{"dana", "ghost"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Empty(t, found[0].AuthSubject)
}
