package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"ravencube/internal/cache"
	"ravencube/internal/featureflags"
	"ravencube/internal/imagestore"
	"ravencube/internal/models"
	"ravencube/internal/observability"
	"ravencube/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const maxCommentLength = 2000

// WarningImageReleaseFailed is reported when a post was deleted but its image
// could not be released.
const WarningImageReleaseFailed = "image_release_failed"

// Coordinator runs the writes that touch more than one record. Each
// operation validates, commits one transaction, then runs best-effort side
// effects that never undo the commit.
type Coordinator struct {
	uow      repository.UnitOfWork
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	likes    repository.LikeRepository
	emitter  Emitter
	images   imagestore.Store
	mentions *mentionFanout
	rdb      *redis.Client
}

func NewCoordinator(
	uow repository.UnitOfWork,
	users repository.UserRepository,
	posts repository.PostRepository,
	comments repository.CommentRepository,
	likes repository.LikeRepository,
	emitter Emitter,
	images imagestore.Store,
	flags *featureflags.Manager,
	rdb *redis.Client,
) *Coordinator {
	return &Coordinator{
		uow:      uow,
		users:    users,
		posts:    posts,
		comments: comments,
		likes:    likes,
		emitter:  emitter,
		images:   images,
		mentions: &mentionFanout{users: users, emitter: emitter, flags: flags},
		rdb:      rdb,
	}
}

type CreateCommentInput struct {
	UserID  uint
	PostID  uint
	Content string
}

// CreateComment inserts a comment and bumps its post's comment count in one
// transaction, then notifies the post owner and any mentioned users.
func (c *Coordinator) CreateComment(ctx context.Context, in CreateCommentInput) (comment *models.Comment, err error) {
	done := observability.TrackCoordinator("create_comment")
	ctx, span := observability.StartSpan(ctx, "coordinator.create_comment",
		attribute.Int64("user.id", int64(in.UserID)), attribute.Int64("post.id", int64(in.PostID)))
	defer func() {
		observability.EndSpan(span, err)
		done(outcome(err))
	}()

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Comment content cannot be empty")
	}
	if len(content) > maxCommentLength {
		return nil, models.NewValidationError("Comment too long (max 2000 characters)")
	}
	author, err := c.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	var post *models.Post
	comment = &models.Comment{PostID: in.PostID, UserID: in.UserID, Content: content}
	err = c.uow.Commit(ctx,
		func(tx *gorm.DB) error {
			p, err := c.posts.WithTx(tx).GetForUpdate(ctx, in.PostID)
			post = p
			return err
		},
		func(tx *gorm.DB) error {
			return c.comments.WithTx(tx).Create(ctx, comment)
		},
		func(tx *gorm.DB) error {
			return c.posts.WithTx(tx).AdjustCommentCount(ctx, in.PostID, 1)
		},
	)
	if err != nil {
		return nil, err
	}
	comment.User = author.Summary()

	cache.Invalidate(ctx, c.rdb, cache.PostKey(in.PostID))

	if post.UserID != in.UserID && c.emitter != nil {
		_, err := c.emitter.Emit(ctx, EmitInput{
			Type:       models.NotificationComment,
			FromUserID: in.UserID,
			ToUserID:   post.UserID,
			PostID:     &post.ID,
			CommentID:  &comment.ID,
		})
		if err != nil {
			sideEffectFailed(ctx, "comment_notification", err,
				slog.Uint64("post_id", uint64(post.ID)), slog.Uint64("comment_id", uint64(comment.ID)))
		}
	}
	c.mentions.emit(ctx, in.UserID, content, post.ID, &comment.ID, post.UserID)

	return comment, nil
}

// DeletePostResult reports side effects that failed after the delete
// committed.
type DeletePostResult struct {
	Warnings []string
}

// DeletePost removes the post with its comments and likes, then releases its
// image.
func (c *Coordinator) DeletePost(ctx context.Context, userID, postID uint) (res *DeletePostResult, err error) {
	done := observability.TrackCoordinator("delete_post")
	ctx, span := observability.StartSpan(ctx, "coordinator.delete_post",
		attribute.Int64("user.id", int64(userID)), attribute.Int64("post.id", int64(postID)))
	defer func() {
		observability.EndSpan(span, err)
		done(outcome(err))
	}()

	var post *models.Post
	err = c.uow.Commit(ctx,
		func(tx *gorm.DB) error {
			p, err := c.posts.WithTx(tx).GetForUpdate(ctx, postID)
			if err != nil && !models.IsCode(err, models.CodeNotFound) {
				return err
			}
			post = p
			return authorizeErr(Authorize(userID, p, ActionDelete),
				"Post not found", "You can only delete your own posts")
		},
		func(tx *gorm.DB) error {
			_, err := c.comments.WithTx(tx).DeleteByPost(ctx, postID)
			return err
		},
		func(tx *gorm.DB) error {
			_, err := c.likes.WithTx(tx).DeleteByPost(ctx, postID)
			return err
		},
		func(tx *gorm.DB) error {
			return c.posts.WithTx(tx).Delete(ctx, postID)
		},
	)
	if err != nil {
		return nil, err
	}

	cache.Invalidate(ctx, c.rdb, cache.PostKey(postID))

	res = &DeletePostResult{Warnings: []string{}}
	if post.ImageURL != "" && c.images != nil {
		if err := c.images.Delete(ctx, post.ImageURL); err != nil {
			sideEffectFailed(ctx, "image_release", err,
				slog.Uint64("post_id", uint64(postID)), slog.String("image_url", post.ImageURL))
			res.Warnings = append(res.Warnings, WarningImageReleaseFailed)
		}
	}
	return res, nil
}

// DeleteComment removes a comment and decrements its post's comment count in
// one transaction.
func (c *Coordinator) DeleteComment(ctx context.Context, userID, commentID uint) (err error) {
	done := observability.TrackCoordinator("delete_comment")
	ctx, span := observability.StartSpan(ctx, "coordinator.delete_comment",
		attribute.Int64("user.id", int64(userID)), attribute.Int64("comment.id", int64(commentID)))
	defer func() {
		observability.EndSpan(span, err)
		done(outcome(err))
	}()

	var comment *models.Comment
	err = c.uow.Commit(ctx,
		func(tx *gorm.DB) error {
			cm, err := c.comments.WithTx(tx).GetForUpdate(ctx, commentID)
			if err != nil && !models.IsCode(err, models.CodeNotFound) {
				return err
			}
			comment = cm
			return authorizeErr(Authorize(userID, cm, ActionDelete),
				"Comment not found", "You can only delete your own comments")
		},
		func(tx *gorm.DB) error {
			return c.comments.WithTx(tx).Delete(ctx, commentID)
		},
		func(tx *gorm.DB) error {
			return c.posts.WithTx(tx).AdjustCommentCount(ctx, comment.PostID, -1)
		},
	)
	if err != nil {
		return err
	}

	cache.Invalidate(ctx, c.rdb, cache.PostKey(comment.PostID))
	return nil
}

// ToggleLike adds the user's like to the post, or removes it when present.
// It reports whether the post is liked afterwards.
func (c *Coordinator) ToggleLike(ctx context.Context, userID, postID uint) (liked bool, err error) {
	done := observability.TrackCoordinator("toggle_like")
	ctx, span := observability.StartSpan(ctx, "coordinator.toggle_like",
		attribute.Int64("user.id", int64(userID)), attribute.Int64("post.id", int64(postID)))
	defer func() {
		observability.EndSpan(span, err)
		done(outcome(err))
	}()

	if _, err := c.users.GetByID(ctx, userID); err != nil {
		return false, err
	}

	var (
		post  *models.Post
		added bool
	)
	err = c.uow.Commit(ctx,
		func(tx *gorm.DB) error {
			p, err := c.posts.WithTx(tx).GetForUpdate(ctx, postID)
			post = p
			return err
		},
		func(tx *gorm.DB) error {
			likes := c.likes.WithTx(tx)
			posts := c.posts.WithTx(tx)

			removed, err := likes.Remove(ctx, userID, postID)
			if err != nil {
				return err
			}
			if removed {
				return posts.AdjustLikeCount(ctx, postID, -1)
			}

			liked = true
			if added, err = likes.Add(ctx, userID, postID); err != nil || !added {
				return err
			}
			return posts.AdjustLikeCount(ctx, postID, 1)
		},
	)
	if err != nil {
		return false, err
	}

	cache.Invalidate(ctx, c.rdb, cache.PostKey(postID))

	if added && post.UserID != userID && c.emitter != nil {
		_, err := c.emitter.Emit(ctx, EmitInput{
			Type:       models.NotificationLike,
			FromUserID: userID,
			ToUserID:   post.UserID,
			PostID:     &post.ID,
		})
		if err != nil {
			sideEffectFailed(ctx, "like_notification", err, slog.Uint64("post_id", uint64(postID)))
		}
	}
	return liked, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code != models.CodeInternal {
		return strings.ToLower(appErr.Code)
	}
	return "error"
}
