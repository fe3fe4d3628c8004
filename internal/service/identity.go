package service

import (
	"context"
	"strings"

	"ravencube/internal/models"
	"ravencube/internal/repository"
)

// IdentityResolver maps identity-provider subjects to local users.
type IdentityResolver struct {
	users repository.UserRepository
}

func NewIdentityResolver(users repository.UserRepository) *IdentityResolver {
	return &IdentityResolver{users: users}
}

// Resolve returns the user synced for subject, or NOT_FOUND "User not found".
func (r *IdentityResolver) Resolve(ctx context.Context, subject string) (*models.User, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, models.NewNotFoundMessage("User not found")
	}
	return r.users.GetBySubject(ctx, subject)
}

// ResolveID is Resolve for callers that only need the id.
func (r *IdentityResolver) ResolveID(ctx context.Context, subject string) (uint, error) {
	user, err := r.Resolve(ctx, subject)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}
