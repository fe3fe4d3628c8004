package server

import (
	"io"

	"ravencube/internal/models"
	"ravencube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts
// @Summary List posts
// @Description Newest first, with owner, comments and like ids hydrated
// @Tags posts
// @Produce json
// @Param limit query int false "Page size (max 100); omit for every post"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Post
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 0)

	posts, err := s.content.ListPosts(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.content.GetPost(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// GetUserPosts handles GET /api/posts/user/:username
// @Summary List a user's posts
// @Tags posts
// @Produce json
// @Param username path string true "Username"
// @Param limit query int false "Page size (max 100); omit for every post"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/user/{username} [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 0)

	posts, err := s.content.ListByUsername(c.UserContext(), c.Params("username"), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/posts. It accepts JSON or a multipart form
// with an optional "image" file.
// @Summary Create a post
// @Tags posts
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param content formData string false "Post text"
// @Param image formData file false "Image attachment"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content" form:"content"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	}

	in := service.CreatePostInput{UserID: userID, Content: req.Content}
	if fh, err := c.FormFile("image"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid image upload"))
		}
		defer func() { _ = f.Close() }()

		in.Image, err = io.ReadAll(f)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid image upload"))
		}
		in.ImageMimeType = fh.Header.Get(fiber.HeaderContentType)
	}

	post, err := s.content.CreatePost(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// ToggleLike handles POST /api/posts/:id/like
// @Summary Like or unlike a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string,liked=bool}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	liked, err := s.coordinator.ToggleLike(c.UserContext(), userID, postID)
	if err != nil {
		return respondError(c, err)
	}

	message := "Post unliked"
	if liked {
		message = "Post liked"
	}
	return c.JSON(fiber.Map{"message": message, "liked": liked})
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post with its comments and likes
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string,warnings=[]string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	res, err := s.coordinator.DeletePost(c.UserContext(), userID, postID)
	if err != nil {
		return respondError(c, err)
	}

	body := fiber.Map{"message": "Post deleted successfully"}
	if res != nil && len(res.Warnings) > 0 {
		body["warnings"] = res.Warnings
	}
	return c.JSON(body)
}
