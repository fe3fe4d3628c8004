package server

import (
	"ravencube/internal/models"
	"ravencube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/comments/post/:postId
// @Summary List a post's comments
// @Tags comments
// @Produce json
// @Param postId path int true "Post ID"
// @Success 200 {array} models.Comment
// @Router /comments/post/{postId} [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}

	comments, err := s.content.ListComments(c.UserContext(), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comments)
}

// CreateComment handles POST /api/comments/post/:postId
// @Summary Comment on a post
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Param request body object{content=string} true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/post/{postId} [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content" form:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.coordinator.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID:  userID,
		PostID:  postID,
		Content: req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id
// @Summary Delete a comment
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}
	commentID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.coordinator.DeleteComment(c.UserContext(), userID, commentID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted successfully"})
}
