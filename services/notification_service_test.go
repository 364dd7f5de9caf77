package services

import (
	"context"
	"fanous-live/domain"
	"fanous-live/errors"
	"fanous-live/mocks"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newNotificationFixture(t *testing.T) (*mocks.MockIRouter, *mocks.MockINotificationRepository, *NotificationService) {
	ctrl := gomock.NewController(t)
	router := mocks.NewMockIRouter(ctrl)
	repo := mocks.NewMockINotificationRepository(ctrl)
	return router, repo, NewNotificationService(slog.Default(), router, repo, nil)
}

func TestNotificationService_Notify_Persists_Then_Pushes(t *testing.T) {
	req := require.New(t)
	router, repo, svc := newNotificationFixture(t)
	var stored domain.Notification

	gomock.InOrder(
		repo.EXPECT().Append(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, n domain.Notification) error {
				stored = n
				return nil
			}),
		router.EXPECT().Deliver(gomock.Any(), []string{"u1"}, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ []string, env domain.Envelope) domain.UserSet {
				req.Equal(domain.EventNotification, env.Event)
				return domain.NewUserSet("u1")
			}),
	)

	notification, delivered, err := svc.Notify(context.Background(), domain.NotifyCommand{TargetUserID: "u1", Title: "Order shipped", Body: "On its way"})

	req.NoError(err)
	req.True(delivered)
	req.Equal(stored, notification)
	req.Equal("Order shipped", notification.Title)
	req.False(notification.Read)
}

func TestNotificationService_Notify_Offline_Target(t *testing.T) {
	router, repo, svc := newNotificationFixture(t)
	repo.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	router.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).Return(domain.NewUserSet())

	_, delivered, err := svc.Notify(context.Background(), domain.NotifyCommand{TargetUserID: "u1", Title: "t"})

	require.NoError(t, err)
	require.False(t, delivered)
}

func TestNotificationService_Notify_Validation_And_Persistence(t *testing.T) {
	req := require.New(t)
	router, repo, svc := newNotificationFixture(t)
	router.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, _, err := svc.Notify(context.Background(), domain.NotifyCommand{TargetUserID: "u1"})
	req.ErrorIs(err, errors.ErrInvalidPayload)

	repo.EXPECT().Append(gomock.Any(), gomock.Any()).Return(fmt.Errorf("closed"))
	_, _, err = svc.Notify(context.Background(), domain.NotifyCommand{TargetUserID: "u1", Title: "t"})
	req.ErrorIs(err, errors.ErrPersistence)
}

func TestNotificationService_List(t *testing.T) {
	req := require.New(t)
	_, repo, svc := newNotificationFixture(t)
	items := []domain.Notification{{ID: uuid.New(), UserID: "u1"}, {ID: uuid.New(), UserID: "u1", Read: true}}
	repo.EXPECT().List(gomock.Any(), "u1").Return(items, nil)
	repo.EXPECT().List(gomock.Any(), "u2").Return(nil, nil)

	list, err := svc.List(context.Background(), "u1")
	req.NoError(err)
	req.Equal(items, list.Data)
	req.Equal(1, list.UnreadCount)

	// Then an empty inbox is reported as not found
	_, err = svc.List(context.Background(), "u2")
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestNotificationService_Mutations_Keep_Not_Found(t *testing.T) {
	req := require.New(t)
	_, repo, svc := newNotificationFixture(t)
	id := uuid.New()
	repo.EXPECT().MarkRead(gomock.Any(), "u1", id).Return(fmt.Errorf("%w: notification", errors.ErrNotFound))
	repo.EXPECT().Delete(gomock.Any(), "u1", id).Return(fmt.Errorf("io"))
	repo.EXPECT().MarkAllRead(gomock.Any(), "u1").Return(2, nil)
	repo.EXPECT().Clear(gomock.Any(), "u1").Return(3, nil)

	req.ErrorIs(svc.MarkRead(context.Background(), "u1", id), errors.ErrNotFound)
	req.ErrorIs(svc.Delete(context.Background(), "u1", id), errors.ErrPersistence)

	count, err := svc.MarkAllRead(context.Background(), "u1")
	req.NoError(err)
	req.Equal(2, count)

	count, err = svc.Clear(context.Background(), "u1")
	req.NoError(err)
	req.Equal(3, count)
}
