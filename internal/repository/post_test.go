package repository

import (
	"context"
	"testing"

	"ravencube/internal/models"
	"ravencube/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_GetByIDHydrates(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	post := testutil.CreatePost(t, db, alice.ID, "hello")

	comments := NewCommentRepository(db)
	require.NoError(t, comments.Create(ctx, &models.Comment{PostID: post.ID, UserID: bob.ID, Content: "first"}))
	require.NoError(t, comments.Create(ctx, &models.Comment{PostID: post.ID, UserID: alice.ID, Content: "second"}))
	_, err := NewLikeRepository(db).Add(ctx, bob.ID, post.ID)
	require.NoError(t, err)

	got, err := NewPostRepository(db).GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.User.Username)
	assert.Empty(t, got.User.AuthSubject, "nested owners carry the summary only")
	require.Len(t, got.Comments, 2)
	assert.Equal(t, "first", got.Comments[0].Content)
	assert.Equal(t, "bob", got.Comments[0].User.Username)
	assert.Equal(t, []uint{bob.ID}, got.Likes)
}

func TestPostRepository_EmptyCollections(t *testing.T) {
	db := testutil.NewTestDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	post := testutil.CreatePost(t, db, alice.ID, "quiet")

	got, err := NewPostRepository(db).GetByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.Likes)
	assert.NotNil(t, got.Comments)
	assert.Empty(t, got.Likes)
	assert.Empty(t, got.Comments)
}

func TestPostRepository_NotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 404)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	_, err = repo.GetForUpdate(ctx, 404)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	assert.True(t, models.IsCode(repo.Delete(ctx, 404), models.CodeNotFound))
}

func TestPostRepository_ListNewestFirst(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	p1 := testutil.CreatePost(t, db, alice.ID, "one")
	p2 := testutil.CreatePost(t, db, bob.ID, "two")
	p3 := testutil.CreatePost(t, db, alice.ID, "three")

	repo := NewPostRepository(db)
	all, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uint{p3.ID, p2.ID, p1.ID}, []uint{all[0].ID, all[1].ID, all[2].ID})

	page, err := repo.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, p2.ID, page[0].ID)

	mine, err := repo.ListByUser(ctx, alice.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, p3.ID, mine[0].ID)
}

func TestPostRepository_AdjustCounts(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	post := testutil.CreatePost(t, db, alice.ID, "counted")
	repo := NewPostRepository(db)

	require.NoError(t, repo.AdjustCommentCount(ctx, post.ID, 1))
	require.NoError(t, repo.AdjustLikeCount(ctx, post.ID, 1))
	require.NoError(t, repo.AdjustLikeCount(ctx, post.ID, -1))

	got, err := repo.GetForUpdate(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CommentCount)
	assert.Equal(t, 0, got.LikeCount)

	// counters floor at zero
	require.NoError(t, repo.AdjustLikeCount(ctx, post.ID, -1))
	got, err = repo.GetForUpdate(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.LikeCount)

	assert.True(t, models.IsCode(repo.AdjustLikeCount(ctx, 404, 1), models.CodeNotFound))
}
