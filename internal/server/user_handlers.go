package server

import (
	"ravencube/internal/middleware"
	"ravencube/internal/models"
	"ravencube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SyncUser handles POST /api/users/sync. It creates the local account for a
// verified identity on first call and refreshes it afterwards.
// @Summary Sync the caller's account from their token
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Success 201 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /users/sync [post]
func (s *Server) SyncUser(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
	}

	user, created, err := s.graph.Sync(c.UserContext(), identity)
	if err != nil {
		return respondError(c, err)
	}
	middleware.SetUserID(c, user.ID)

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(user)
}

// GetMe handles GET and POST /api/users/me
// @Summary Get the caller's profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}

	user, err := s.graph.CurrentUser(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateProfile handles PUT /api/users/profile
// @Summary Update the caller's profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.ProfileUpdate true "Fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /users/profile [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}

	var req service.ProfileUpdate
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.graph.UpdateProfile(c.UserContext(), userID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetUserProfile handles GET /api/users/profile/:username
// @Summary Get a public profile
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /users/profile/{username} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	user, err := s.graph.GetProfile(c.UserContext(), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// ToggleFollow handles POST /api/users/follow/:targetId
// @Summary Follow or unfollow a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param targetId path int true "User to follow"
// @Success 200 {object} object{message=string,following=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/follow/{targetId} [post]
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}
	targetID, err := parseID(c, "targetId")
	if err != nil {
		return nil
	}

	following, err := s.graph.ToggleFollow(c.UserContext(), userID, targetID)
	if err != nil {
		return respondError(c, err)
	}

	message := "User unfollowed successfully"
	if following {
		message = "User followed successfully"
	}
	return c.JSON(fiber.Map{"message": message, "following": following})
}
