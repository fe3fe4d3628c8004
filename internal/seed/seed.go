// Package seed provides database seeding utilities for development and
// testing. All writes go through the services and the coordinator so seeded
// data satisfies the same invariants as live traffic.
package seed

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"ravencube/internal/auth"
	"ravencube/internal/featureflags"
	"ravencube/internal/models"
	"ravencube/internal/repository"
	"ravencube/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers           int      `yaml:"users"`
	NumPosts           int      `yaml:"posts"`
	MaxCommentsPerPost int      `yaml:"max_comments_per_post"`
	LikeRatio          float64  `yaml:"like_ratio"`
	FollowRatio        float64  `yaml:"follow_ratio"`
	MentionRatio       float64  `yaml:"mention_ratio"`
	Usernames          []string `yaml:"usernames"`
	ShouldClean        bool     `yaml:"clean"`
	// RandSeed makes runs reproducible; zero picks a random seed.
	RandSeed int64 `yaml:"seed"`
}

// DefaultOptions is the seeding profile used when no preset is given.
func DefaultOptions() Options {
	return Options{
		NumUsers:           50,
		NumPosts:           200,
		MaxCommentsPerPost: 5,
		LikeRatio:          0.15,
		FollowRatio:        0.1,
		MentionRatio:       0.1,
		ShouldClean:        true,
	}
}

// LoadPreset reads Options from a YAML file. Keys missing from the file keep
// their DefaultOptions values.
func LoadPreset(path string) (Options, error) {
	opts := DefaultOptions()
	raw, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read preset: %w", err)
	}
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return opts, fmt.Errorf("parse preset %s: %w", path, err)
	}
	return opts, nil
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Follows  int
	Posts    int
	Comments int
	Likes    int
}

// Seeder creates demo data through the service layer.
type Seeder struct {
	db          *gorm.DB
	graph       *service.GraphService
	content     *service.ContentService
	coordinator *service.Coordinator
	faker       *gofakeit.Faker
}

// NewSeeder wires a private service stack around db. Seeding never touches
// Redis or the image store.
func NewSeeder(db *gorm.DB, randSeed int64) *Seeder {
	uow := repository.NewUnitOfWork(db)
	users := repository.NewUserRepository(db)
	posts := repository.NewPostRepository(db)
	comments := repository.NewCommentRepository(db)
	likes := repository.NewLikeRepository(db)
	follows := repository.NewFollowRepository(db)
	emitter := service.NewNotificationEmitter(repository.NewNotificationRepository(db), nil)
	flags := featureflags.NewManager("")

	return &Seeder{
		db:          db,
		graph:       service.NewGraphService(uow, users, follows, emitter, nil, 0),
		content:     service.NewContentService(users, posts, comments, nil, emitter, flags, nil, service.ContentOptions{}),
		coordinator: service.NewCoordinator(uow, users, posts, comments, likes, emitter, nil, flags, nil),
		faker:       gofakeit.New(randSeed),
	}
}

// Run seeds according to opts.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	log.Printf("🌱 Seeding %d users and %d posts...", opts.NumUsers, opts.NumPosts)
	summary := &Summary{}

	if opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	users, err := s.SeedUsers(ctx, opts.NumUsers, opts.Usernames)
	if err != nil {
		return nil, fmt.Errorf("failed to create users: %w", err)
	}
	summary.Users = len(users)
	log.Printf("✓ %d users", summary.Users)

	if summary.Follows, err = s.SeedFollows(ctx, users, opts.FollowRatio); err != nil {
		return nil, fmt.Errorf("failed to create follows: %w", err)
	}
	log.Printf("✓ %d follows", summary.Follows)

	posts, err := s.SeedPosts(ctx, users, opts.NumPosts, opts.MentionRatio)
	if err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	summary.Posts = len(posts)
	log.Printf("✓ %d posts", summary.Posts)

	summary.Comments, summary.Likes, err = s.SeedEngagement(ctx, users, posts, opts.MaxCommentsPerPost, opts.LikeRatio)
	if err != nil {
		return nil, fmt.Errorf("failed to create engagement: %w", err)
	}
	log.Printf("✓ %d comments, %d likes", summary.Comments, summary.Likes)

	return summary, nil
}

// ClearAll deletes every row the application owns, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	log.Println("🗑️  Clearing existing data...")
	db := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{
		&models.Notification{},
		&models.Like{},
		&models.Comment{},
		&models.Post{},
		&models.Follow{},
		&models.User{},
	} {
		if err := db.Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedUsers syncs count synthetic identities. Fixed usernames come first.
func (s *Seeder) SeedUsers(ctx context.Context, count int, fixed []string) ([]*models.User, error) {
	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		identity := &auth.Identity{
			Subject:   "seed|" + uuid.NewString(),
			FirstName: s.faker.FirstName(),
			LastName:  s.faker.LastName(),
			Picture:   "https://i.pravatar.cc/150?u=" + s.faker.UUID(),
		}
		if i < len(fixed) {
			identity.Username = fixed[i]
		} else {
			identity.Username = strings.ToLower(s.faker.Username())
		}
		identity.Email = identity.Username + "@example.com"

		user, _, err := s.graph.Sync(ctx, identity)
		if err != nil {
			return nil, err
		}

		bio := s.faker.Sentence(10)
		location := s.faker.City()
		user, err = s.graph.UpdateProfile(ctx, user.ID, service.ProfileUpdate{Bio: &bio, Location: &location})
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// SeedFollows toggles a follow for each ordered pair with probability ratio.
func (s *Seeder) SeedFollows(ctx context.Context, users []*models.User, ratio float64) (int, error) {
	count := 0
	for _, follower := range users {
		for _, target := range users {
			if follower.ID == target.ID || !s.chance(ratio) {
				continue
			}
			following, err := s.graph.ToggleFollow(ctx, follower.ID, target.ID)
			if err != nil {
				return count, err
			}
			if following {
				count++
			}
		}
	}
	return count, nil
}

// SeedPosts creates count posts by random authors. With probability
// mentionRatio a post mentions another seeded user.
func (s *Seeder) SeedPosts(ctx context.Context, users []*models.User, count int, mentionRatio float64) ([]*models.Post, error) {
	if len(users) == 0 {
		return nil, nil
	}
	posts := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := s.pick(users)
		content := s.faker.Paragraph(1, s.faker.Number(1, 4), 12, " ")
		if len(users) > 1 && s.chance(mentionRatio) {
			content += " @" + s.pick(users).Username
		}

		post, err := s.content.CreatePost(ctx, service.CreatePostInput{UserID: author.ID, Content: content})
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)

		if i > 0 && i%100 == 0 {
			log.Printf("Created %d posts...", i)
		}
	}
	return posts, nil
}

// SeedEngagement adds up to maxComments comments per post and likes each
// post from each user with probability likeRatio.
func (s *Seeder) SeedEngagement(ctx context.Context, users []*models.User, posts []*models.Post, maxComments int, likeRatio float64) (comments, likes int, err error) {
	if len(users) == 0 {
		return 0, 0, nil
	}
	for _, post := range posts {
		n := 0
		if maxComments > 0 {
			n = s.faker.Number(0, maxComments)
		}
		for j := 0; j < n; j++ {
			_, err := s.coordinator.CreateComment(ctx, service.CreateCommentInput{
				UserID:  s.pick(users).ID,
				PostID:  post.ID,
				Content: s.faker.Sentence(8),
			})
			if err != nil {
				return comments, likes, err
			}
			comments++
		}

		for _, user := range users {
			if !s.chance(likeRatio) {
				continue
			}
			liked, err := s.coordinator.ToggleLike(ctx, user.ID, post.ID)
			if err != nil {
				return comments, likes, err
			}
			if liked {
				likes++
			}
		}
	}
	return comments, likes, nil
}

func (s *Seeder) chance(ratio float64) bool {
	if ratio <= 0 {
		return false
	}
	return s.faker.Float64Range(0, 1) < ratio
}

func (s *Seeder) pick(users []*models.User) *models.User {
	return users[s.faker.Number(0, len(users)-1)]
}
