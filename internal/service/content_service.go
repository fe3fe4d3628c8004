package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"ravencube/internal/cache"
	"ravencube/internal/featureflags"
	"ravencube/internal/imagestore"
	"ravencube/internal/models"
	"ravencube/internal/repository"

	"github.com/redis/go-redis/v9"
)

const (
	maxPageSize   = 100
	maxPostLength = 5000
)

// ContentService serves posts and comments outside the coordinated writes.
type ContentService struct {
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	images   imagestore.Store
	mentions *mentionFanout
	rdb      *redis.Client
	cacheTTL time.Duration
	folder   string
}

// ContentOptions tunes ContentService.
type ContentOptions struct {
	ImageFolder string
	CacheTTL    time.Duration
}

func NewContentService(
	users repository.UserRepository,
	posts repository.PostRepository,
	comments repository.CommentRepository,
	images imagestore.Store,
	emitter Emitter,
	flags *featureflags.Manager,
	rdb *redis.Client,
	opts ContentOptions,
) *ContentService {
	if opts.ImageFolder == "" {
		opts.ImageFolder = "RavenCube/posts"
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = cache.PostTTL
	}
	return &ContentService{
		users:    users,
		posts:    posts,
		comments: comments,
		images:   images,
		mentions: &mentionFanout{users: users, emitter: emitter, flags: flags},
		rdb:      rdb,
		cacheTTL: opts.CacheTTL,
		folder:   opts.ImageFolder,
	}
}

// CreatePostInput is a new post with an optional image attachment.
type CreatePostInput struct {
	UserID        uint
	Content       string
	Image         []byte
	ImageMimeType string
}

// CreatePost uploads the image if there is one, then stores the post.
func (s *ContentService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" && len(in.Image) == 0 {
		return nil, models.NewValidationError("Content or image is required")
	}
	if len(content) > maxPostLength {
		return nil, models.NewValidationError("Post too long (max 5000 characters)")
	}
	if _, err := s.users.GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}

	var imageURL string
	if len(in.Image) > 0 {
		if s.images == nil {
			return nil, models.NewDependencyError("Failed to upload image", nil)
		}
		url, err := s.images.Upload(ctx, in.Image, in.ImageMimeType, s.folder)
		if err != nil {
			if models.IsCode(err, models.CodeValidation) {
				return nil, err
			}
			return nil, models.NewDependencyError("Failed to upload image", err)
		}
		imageURL = url
	}

	post := &models.Post{UserID: in.UserID, Content: content, ImageURL: imageURL}
	if err := s.posts.Create(ctx, post); err != nil {
		if imageURL != "" {
			if delErr := s.images.Delete(ctx, imageURL); delErr != nil {
				sideEffectFailed(ctx, "image_release", delErr, slog.String("image_url", imageURL))
			}
		}
		return nil, err
	}

	s.mentions.emit(ctx, in.UserID, content, post.ID, nil, in.UserID)
	return s.posts.GetByID(ctx, post.ID)
}

// ListPosts returns posts newest first. A limit of zero returns every post.
func (s *ContentService) ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	limit, offset = normalizePage(limit, offset)
	return s.posts.List(ctx, limit, offset)
}

// ListByUsername returns one user's posts newest first. A limit of zero
// returns all of them.
func (s *ContentService) ListByUsername(ctx context.Context, username string, limit, offset int) ([]*models.Post, error) {
	user, err := s.users.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)
	return s.posts.ListByUser(ctx, user.ID, limit, offset)
}

// GetPost returns one hydrated post.
func (s *ContentService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, s.rdb, cache.PostKey(id), &post, s.cacheTTL, func() error {
		p, err := s.posts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		post = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// ListComments returns the comments on a post, newest first.
func (s *ContentService) ListComments(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.comments.ListByPost(ctx, postID)
}

func normalizePage(limit, offset int) (int, int) {
	if limit < 0 {
		limit = 0
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// mentionFanout turns @handles into mention notifications.
type mentionFanout struct {
	users   repository.UserRepository
	emitter Emitter
	flags   *featureflags.Manager
}

// emit notifies every mentioned user except the author and the users in skip.
func (m *mentionFanout) emit(ctx context.Context, authorID uint, text string, postID uint, commentID *uint, skip ...uint) {
	if m == nil || m.emitter == nil || !m.flags.Enabled(featureflags.MentionNotifications, authorID) {
		return
	}
	handles := ParseMentions(text)
	if len(handles) == 0 {
		return
	}
	mentioned, err := m.users.FindByUsernames(ctx, handles)
	if err != nil {
		sideEffectFailed(ctx, "mention_lookup", err, slog.Uint64("post_id", uint64(postID)))
		return
	}

	excluded := map[uint]struct{}{authorID: {}}
	for _, id := range skip {
		excluded[id] = struct{}{}
	}
	for _, u := range mentioned {
		if _, ok := excluded[u.ID]; ok {
			continue
		}
		_, err := m.emitter.Emit(ctx, EmitInput{
			Type:       models.NotificationMention,
			FromUserID: authorID,
			ToUserID:   u.ID,
			PostID:     &postID,
			CommentID:  commentID,
		})
		if err != nil {
			sideEffectFailed(ctx, "mention_notification", err,
				slog.Uint64("post_id", uint64(postID)), slog.Uint64("to_user_id", uint64(u.ID)))
		}
	}
}
