package service

import (
	"context"
	"log/slog"

	"ravencube/internal/middleware"
	"ravencube/internal/models"
	"ravencube/internal/notifications"
	"ravencube/internal/observability"
	"ravencube/internal/repository"
)

const defaultNotificationLimit = 50

// Publisher delivers a persisted notification to live listeners.
type Publisher interface {
	PublishEvent(ctx context.Context, ev notifications.Event) error
}

// Emitter is the fan-out surface used by the coordinator and graph service.
type Emitter interface {
	Emit(ctx context.Context, in EmitInput) (*models.Notification, error)
}

// EmitInput describes one notification to derive from a mutation.
type EmitInput struct {
	Type       models.NotificationType
	FromUserID uint
	ToUserID   uint
	PostID     *uint
	CommentID  *uint
}

// NotificationEmitter persists notifications and publishes them best-effort.
type NotificationEmitter struct {
	repo      repository.NotificationRepository
	publisher Publisher
}

func NewNotificationEmitter(repo repository.NotificationRepository, publisher Publisher) *NotificationEmitter {
	return &NotificationEmitter{repo: repo, publisher: publisher}
}

// Emit persists the notification described by in. It returns (nil, nil) when
// the notification is suppressed, which is always the case when sender and
// recipient are the same user.
func (e *NotificationEmitter) Emit(ctx context.Context, in EmitInput) (*models.Notification, error) {
	if in.ToUserID == 0 || in.FromUserID == in.ToUserID {
		observability.NotificationsSuppressed.WithLabelValues("self").Inc()
		return nil, nil
	}
	if !in.Type.Valid() {
		return nil, models.NewValidationError("Unknown notification type")
	}

	n := &models.Notification{
		FromUserID: in.FromUserID,
		ToUserID:   in.ToUserID,
		Type:       in.Type,
		PostID:     in.PostID,
		CommentID:  in.CommentID,
	}
	if err := e.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	observability.NotificationsEmitted.WithLabelValues(string(n.Type)).Inc()

	if e.publisher != nil {
		ev := notifications.Event{
			ID:         n.ID,
			Type:       string(n.Type),
			FromUserID: n.FromUserID,
			ToUserID:   n.ToUserID,
			PostID:     n.PostID,
			CommentID:  n.CommentID,
		}
		if err := e.publisher.PublishEvent(ctx, ev); err != nil {
			sideEffectFailed(ctx, "notification_publish", err, slog.Uint64("notification_id", uint64(n.ID)))
		}
	}
	return n, nil
}

// List returns the recipient's notifications, newest first.
func (e *NotificationEmitter) List(ctx context.Context, userID uint, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultNotificationLimit
	}
	return e.repo.ListForRecipient(ctx, userID, limit)
}

// Delete removes a notification owned by userID. Notifications owned by
// someone else are reported as missing.
func (e *NotificationEmitter) Delete(ctx context.Context, userID, notificationID uint) error {
	n, err := e.repo.GetByID(ctx, notificationID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.NewNotFoundMessage("Notification not found")
		}
		return err
	}
	if Authorize(userID, n, ActionDelete) != Allowed {
		return models.NewNotFoundMessage("Notification not found")
	}
	return e.repo.Delete(ctx, notificationID)
}

// sideEffectFailed records a best-effort step that failed after its primary
// write committed.
func sideEffectFailed(ctx context.Context, effect string, err error, attrs ...any) {
	observability.SideEffectFailures.WithLabelValues(effect).Inc()
	args := append([]any{slog.String("effect", effect), slog.String("error", err.Error())}, attrs...)
	middleware.Logger.WarnContext(ctx, "side effect failed", args...)
}
