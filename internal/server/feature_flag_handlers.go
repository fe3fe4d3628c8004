package server

import (
	"ravencube/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags returns each known flag evaluated for the caller.
// @Summary Evaluated feature flags for the caller
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]bool
// @Router /users/me/features [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, _ := middleware.UserIDFrom(c)
	return c.JSON(s.featureFlags.Snapshot(userID))
}
