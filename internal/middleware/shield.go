package middleware

import (
	"context"
	"log/slog"

	"ravencube/internal/models"
	"ravencube/internal/observability"
	"ravencube/internal/shield"

	"github.com/gofiber/fiber/v2"
)

// ShieldEvaluator is the abuse shield consulted before any handler runs.
type ShieldEvaluator interface {
	Evaluate(ctx context.Context, fp shield.Fingerprint) (shield.Decision, error)
}

// Shield rejects requests the evaluator denies. In dry-run mode denials are
// logged and counted but the request proceeds.
func Shield(evaluator ShieldEvaluator, dryRun bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		fp := shield.Fingerprint{
			IP:        c.IP(),
			UserAgent: c.Get(fiber.HeaderUserAgent),
			Method:    c.Method(),
			Path:      c.Path(),
			RawQuery:  string(c.Request().URI().QueryString()),
		}
		decision, err := evaluator.Evaluate(c.UserContext(), fp)
		if err != nil {
			Logger.WarnContext(c.UserContext(), "shield evaluation degraded",
				slog.String("ip", fp.IP), slog.String("error", err.Error()))
		}
		observability.ShieldDecisions.WithLabelValues(string(decision)).Inc()

		if !decision.Denied() {
			return c.Next()
		}
		if dryRun {
			Logger.InfoContext(c.UserContext(), "shield dry-run denial",
				slog.String("decision", string(decision)), slog.String("ip", fp.IP), slog.String("path", fp.Path))
			return c.Next()
		}

		Logger.WarnContext(c.UserContext(), "request denied by shield",
			slog.String("decision", string(decision)), slog.String("ip", fp.IP), slog.String("path", fp.Path))
		return respondShieldDenial(c, decision)
	}
}

func respondShieldDenial(c *fiber.Ctx, decision shield.Decision) error {
	switch decision {
	case shield.DenyRateLimit:
		return models.RespondWithError(c, fiber.StatusTooManyRequests,
			models.NewRateLimitedError("Too many requests, please try again later."))
	case shield.DenyBot:
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewBotDeniedError("Access denied for bots."))
	case shield.DenySpoofed:
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewBotDeniedError("Access denied for spoofed bots."))
	default:
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Access denied."))
	}
}
