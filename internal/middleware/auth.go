package middleware

import (
	"context"
	"log/slog"

	"ravencube/internal/auth"
	"ravencube/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	localIdentity = "identity"
	localUserID   = "userID"
)

// SubjectResolver maps a verified identity subject to a local user ID.
// It returns a NOT_FOUND AppError for subjects that have not synced yet.
type SubjectResolver interface {
	ResolveID(ctx context.Context, subject string) (uint, error)
}

// AuthRequired verifies the bearer token and stores the caller's identity in
// locals. When the subject already has a local account its user ID is stored
// too, so unsynced callers can still reach the sync endpoint.
func AuthRequired(verifier auth.Verifier, resolver SubjectResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		identity, err := verifier.Verify(c.UserContext(), token)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}
		c.Locals(localIdentity, identity)

		if resolver != nil {
			userID, err := resolver.ResolveID(c.UserContext(), identity.Subject)
			switch {
			case err == nil:
				c.Locals(localUserID, userID)
				c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
			case models.IsCode(err, models.CodeNotFound):
			default:
				Logger.ErrorContext(c.UserContext(), "identity resolution failed",
					slog.String("subject", identity.Subject), slog.String("error", err.Error()))
				return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
			}
		}

		return c.Next()
	}
}

// IdentityFrom returns the verified identity stored by AuthRequired.
func IdentityFrom(c *fiber.Ctx) (*auth.Identity, bool) {
	id, ok := c.Locals(localIdentity).(*auth.Identity)
	return id, ok && id != nil
}

// UserIDFrom returns the resolved local user ID stored by AuthRequired.
func UserIDFrom(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(localUserID).(uint)
	return id, ok && id != 0
}

// SetUserID records a resolved user ID for the rest of the request, e.g.
// right after the first sync creates the account.
func SetUserID(c *fiber.Ctx, userID uint) {
	c.Locals(localUserID, userID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
}
