package server

import "github.com/gofiber/fiber/v2"

// GetNotifications handles GET /api/notifications
// @Summary List the caller's notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max items (default 50, max 100)"
// @Success 200 {array} models.Notification
// @Router /notifications [get]
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}

	items, err := s.notifications.List(c.UserContext(), userID, c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// DeleteNotification handles DELETE /api/notifications/:id
// @Summary Delete a notification
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /notifications/{id} [delete]
func (s *Server) DeleteNotification(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.notifications.Delete(c.UserContext(), userID, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Notification deleted successfully"})
}
