//go:generate go run go.uber.org/mock/mockgen -source=notification_service.go -destination=../mocks/mock_notification_service.go -package=mocks
package services

import (
	"context"
	"fanous-live/contract"
	"fanous-live/domain"
	"fanous-live/errors"
	"fanous-live/observability"
	"fanous-live/repositories"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

type INotificationService interface {
	Notify(ctx context.Context, cmd domain.NotifyCommand) (domain.Notification, bool, error)
	List(ctx context.Context, userID string) (domain.NotificationList, error)
	MarkRead(ctx context.Context, userID string, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, userID string, notificationID uuid.UUID) error
	Clear(ctx context.Context, userID string) (int, error)
}

type NotificationService struct {
	log           *slog.Logger
	router        contract.IRouter
	notifications repositories.INotificationRepository
	monitoring    *observability.MonitoringManager
	now           func() time.Time
}

func NewNotificationService(
	log *slog.Logger,
	router contract.IRouter,
	notifications repositories.INotificationRepository,
	monitoring *observability.MonitoringManager,
) *NotificationService {
	return &NotificationService{
		log:           log,
		router:        router,
		notifications: notifications,
		monitoring:    monitoring,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Notify stores the notification then pushes it to the target when online.
// The boolean reports whether the push reached a connection.
func (s *NotificationService) Notify(ctx context.Context, cmd domain.NotifyCommand) (domain.Notification, bool, error) {
	cmd.TargetUserID = strings.TrimSpace(cmd.TargetUserID)
	cmd.Title = strings.TrimSpace(cmd.Title)
	if err := validate.Struct(cmd); err != nil {
		return domain.Notification{}, false, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}

	notification := domain.Notification{
		ID:        uuid.New(),
		UserID:    cmd.TargetUserID,
		Title:     cmd.Title,
		Body:      cmd.Body,
		CreatedAt: s.now(),
	}
	if err := s.notifications.Append(ctx, notification); err != nil {
		return domain.Notification{}, false, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	if s.monitoring != nil {
		s.monitoring.IncrNotifications()
	}

	delivered := s.router.Deliver(ctx, []string{notification.UserID}, domain.Envelope{
		Event: domain.EventNotification,
		Data:  notification,
	})
	return notification, delivered.Has(notification.UserID), nil
}

// List returns the visible notifications of userID with the unread count.
// An empty list is reported as ErrNotFound.
func (s *NotificationService) List(ctx context.Context, userID string) (domain.NotificationList, error) {
	if userID == "" {
		return domain.NotificationList{}, fmt.Errorf("%w: userId is required", errors.ErrInvalidPayload)
	}
	items, err := s.notifications.List(ctx, userID)
	if err != nil {
		return domain.NotificationList{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	if len(items) == 0 {
		return domain.NotificationList{}, errors.ErrNotFound
	}
	return domain.NewNotificationList(items), nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID string, notificationID uuid.UUID) error {
	return s.storeError(s.notifications.MarkRead(ctx, userID, notificationID))
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	count, err := s.notifications.MarkAllRead(ctx, userID)
	return count, s.storeError(err)
}

func (s *NotificationService) Delete(ctx context.Context, userID string, notificationID uuid.UUID) error {
	return s.storeError(s.notifications.Delete(ctx, userID, notificationID))
}

func (s *NotificationService) Clear(ctx context.Context, userID string) (int, error) {
	count, err := s.notifications.Clear(ctx, userID)
	return count, s.storeError(err)
}

// storeError keeps ErrNotFound visible and wraps anything else as a persistence failure.
func (s *NotificationService) storeError(err error) error {
	if err == nil || errors.IsNotFound(err) {
		return err
	}
	return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
}
