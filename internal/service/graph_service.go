package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ravencube/internal/auth"
	"ravencube/internal/cache"
	"ravencube/internal/database"
	"ravencube/internal/models"
	"ravencube/internal/repository"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	maxUsernameAttempts = 50
	syncCreateAttempts  = 2
)

// GraphService manages users and the follow graph.
type GraphService struct {
	uow      repository.UnitOfWork
	users    repository.UserRepository
	follows  repository.FollowRepository
	emitter  Emitter
	rdb      *redis.Client
	cacheTTL time.Duration
}

func NewGraphService(
	uow repository.UnitOfWork,
	users repository.UserRepository,
	follows repository.FollowRepository,
	emitter Emitter,
	rdb *redis.Client,
	cacheTTL time.Duration,
) *GraphService {
	if cacheTTL <= 0 {
		cacheTTL = cache.ProfileTTL
	}
	return &GraphService{
		uow:      uow,
		users:    users,
		follows:  follows,
		emitter:  emitter,
		rdb:      rdb,
		cacheTTL: cacheTTL,
	}
}

// ProfileUpdate carries the user-editable profile fields. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	FirstName      *string `json:"firstName"`
	LastName       *string `json:"lastName"`
	Bio            *string `json:"bio"`
	Location       *string `json:"location"`
	ProfilePicture *string `json:"profilePicture"`
	BannerImage    *string `json:"bannerImage"`
}

// Sync creates the user for identity on first sight and refreshes the
// provider-owned attributes afterwards. It reports whether a user was created.
func (s *GraphService) Sync(ctx context.Context, identity *auth.Identity) (*models.User, bool, error) {
	if identity == nil || strings.TrimSpace(identity.Subject) == "" {
		return nil, false, models.NewValidationError("Identity subject is required")
	}

	existing, err := s.users.GetBySubject(ctx, identity.Subject)
	switch {
	case err == nil:
		user, err := s.refresh(ctx, existing, identity)
		return user, false, err
	case !models.IsCode(err, models.CodeNotFound):
		return nil, false, err
	}

	for attempt := 1; ; attempt++ {
		username, err := s.availableUsername(ctx, baseUsername(identity))
		if err != nil {
			return nil, false, err
		}
		user := &models.User{
			AuthSubject:    identity.Subject,
			Email:          strings.ToLower(strings.TrimSpace(identity.Email)),
			Username:       username,
			FirstName:      identity.FirstName,
			LastName:       identity.LastName,
			ProfilePicture: identity.Picture,
		}
		err = s.users.Create(ctx, user)
		if err == nil {
			user, err = s.hydrate(ctx, user)
			return user, true, err
		}
		if !database.IsUniqueViolation(err) {
			return nil, false, err
		}

		// A concurrent sync for the same subject won the insert.
		if winner, getErr := s.users.GetBySubject(ctx, identity.Subject); getErr == nil {
			user, err := s.hydrate(ctx, winner)
			return user, false, err
		}
		// Otherwise another subject took the username between the check and
		// the insert.
		if attempt == syncCreateAttempts {
			return nil, false, err
		}
	}
}

func (s *GraphService) refresh(ctx context.Context, user *models.User, identity *auth.Identity) (*models.User, error) {
	fields := map[string]any{}
	if email := strings.ToLower(strings.TrimSpace(identity.Email)); email != "" && email != user.Email {
		fields["email"] = email
	}
	if identity.FirstName != "" && identity.FirstName != user.FirstName {
		fields["first_name"] = identity.FirstName
	}
	if identity.LastName != "" && identity.LastName != user.LastName {
		fields["last_name"] = identity.LastName
	}
	if identity.Picture != "" && identity.Picture != user.ProfilePicture {
		fields["profile_picture"] = identity.Picture
	}
	if len(fields) > 0 {
		if err := s.users.UpdateFields(ctx, user.ID, fields); err != nil {
			return nil, err
		}
		cache.Invalidate(ctx, s.rdb, cache.ProfileKey(user.Username))
		updated, err := s.users.GetByID(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		user = updated
	}
	return s.hydrate(ctx, user)
}

func baseUsername(identity *auth.Identity) string {
	candidate := identity.Username
	if candidate == "" {
		candidate, _, _ = strings.Cut(identity.Email, "@")
	}
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(candidate)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.':
			b.WriteRune(r)
		}
	}
	name := strings.Trim(b.String(), ".")
	if len(name) > 50 {
		name = name[:50]
	}
	if name == "" {
		name = "user"
	}
	return name
}

func (s *GraphService) availableUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 1; i <= maxUsernameAttempts; i++ {
		taken, err := s.users.UsernameTaken(ctx, candidate, 0)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	return "", models.NewValidationError("Could not allocate a username")
}

// CurrentUser returns the caller's own record with its graph edges.
func (s *GraphService) CurrentUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, user)
}

// GetProfile returns the public profile for username.
func (s *GraphService) GetProfile(ctx context.Context, username string) (*models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, models.NewNotFoundMessage("User not found")
	}

	var profile models.User
	err := cache.Aside(ctx, s.rdb, cache.ProfileKey(username), &profile, s.cacheTTL, func() error {
		user, err := s.users.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		hydrated, err := s.hydrate(ctx, user)
		if err != nil {
			return err
		}
		profile = *hydrated
		profile.AuthSubject = ""
		profile.Email = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile applies the non-nil fields of in to the caller's profile.
func (s *GraphService) UpdateProfile(ctx context.Context, userID uint, in ProfileUpdate) (*models.User, error) {
	fields := map[string]any{}
	set := func(column string, v *string, maxLen int) error {
		if v == nil {
			return nil
		}
		value := strings.TrimSpace(*v)
		if maxLen > 0 && len(value) > maxLen {
			return models.NewValidationError(fmt.Sprintf("%s must be at most %d characters", column, maxLen))
		}
		fields[column] = value
		return nil
	}
	for _, f := range []struct {
		column string
		value  *string
		max    int
	}{
		{"first_name", in.FirstName, 100},
		{"last_name", in.LastName, 100},
		{"bio", in.Bio, 500},
		{"location", in.Location, 100},
		{"profile_picture", in.ProfilePicture, 0},
		{"banner_image", in.BannerImage, 0},
	} {
		if err := set(f.column, f.value, f.max); err != nil {
			return nil, err
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateFields(ctx, userID, fields); err != nil {
		return nil, err
	}
	cache.Invalidate(ctx, s.rdb, cache.ProfileKey(user.Username))
	return s.CurrentUser(ctx, userID)
}

// ToggleFollow follows targetID, or unfollows it when the edge already
// exists. It reports whether userID follows targetID afterwards.
func (s *GraphService) ToggleFollow(ctx context.Context, userID, targetID uint) (bool, error) {
	if userID == targetID {
		return false, models.NewSelfReferenceError("You cannot follow yourself")
	}
	actor, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return false, err
	}

	var following, added bool
	err = s.uow.Commit(ctx, func(tx *gorm.DB) error {
		follows := s.follows.WithTx(tx)
		removed, err := follows.Remove(ctx, userID, targetID)
		if err != nil || removed {
			return err
		}
		// A concurrent follow may have inserted the edge first; it owns the
		// notification.
		following = true
		added, err = follows.Add(ctx, userID, targetID)
		return err
	})
	if err != nil {
		return false, err
	}

	cache.Invalidate(ctx, s.rdb, cache.ProfileKey(actor.Username), cache.ProfileKey(target.Username))

	if added && s.emitter != nil {
		_, err := s.emitter.Emit(ctx, EmitInput{
			Type:       models.NotificationFollow,
			FromUserID: userID,
			ToUserID:   targetID,
		})
		if err != nil {
			sideEffectFailed(ctx, "follow_notification", err,
				slog.Uint64("user_id", uint64(userID)), slog.Uint64("target_id", uint64(targetID)))
		}
	}
	return following, nil
}

// hydrate fills the follower and following id sets.
func (s *GraphService) hydrate(ctx context.Context, user *models.User) (*models.User, error) {
	followers, err := s.follows.FollowerIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	following, err := s.follows.FollowingIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if followers == nil {
		followers = []uint{}
	}
	if following == nil {
		following = []uint{}
	}
	user.Followers = followers
	user.Following = following
	return user, nil
}
