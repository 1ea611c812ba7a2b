package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"ridedesk/internal/ids"
	"ridedesk/internal/models"
	"ridedesk/internal/realtime"
	"ridedesk/internal/repository"
)

func TestNotificationsReadState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "client@example.com", models.UserRoleClient, models.UserStatusVerified)

	first, err := f.notifications.Notify(ctx, user.ID, "Order shipped", "/orders")
	require.NoError(t, err)
	_, err = f.notifications.Notify(ctx, user.ID, "Order delivered", "/orders")
	require.NoError(t, err)
	require.Equal(t, []string{realtime.EventNotificationCreated, realtime.EventNotificationCreated}, f.store.Events().Types(user.ID))

	list, err := f.notifications.List(ctx, user.ID, false, 10)
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	require.Equal(t, 2, list.Unread)

	require.NoError(t, f.notifications.MarkRead(ctx, user.ID, first.ID))
	require.ErrorIs(t, f.notifications.MarkRead(ctx, "someone-else", first.ID), repository.ErrNotificationNotFound)

	list, err = f.notifications.List(ctx, user.ID, true, 10)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, "Order delivered", list.Items[0].Message)

	n, err := f.notifications.MarkAllRead(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestDashboards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.seedUser(t, "admin@example.com", models.UserRoleAdmin, models.UserStatusVerified)
	client := f.seedUser(t, "client@example.com", models.UserRoleClient, models.UserStatusVerified)
	driver := f.seedUser(t, "rider@example.com", models.UserRoleDriver, models.UserStatusPending)
	f.seedUser(t, "rider2@example.com", models.UserRoleDriver, models.UserStatusPending)

	order := placeOrder(t, f, client)
	placeOrder(t, f, client)
	_, err := f.notifications.Notify(ctx, client.ID, "hello", "/")
	require.NoError(t, err)

	cd, err := f.dashboard.Client(ctx, client.ID)
	require.NoError(t, err)
	require.Equal(t, 2, cd.Orders.Total)
	require.Len(t, cd.Recent, 2)
	require.Equal(t, 1, cd.Unread)

	dd, err := f.dashboard.Driver(ctx, driver)
	require.NoError(t, err)
	require.Equal(t, models.UserStatusPending, dd.Status)
	require.Nil(t, dd.Verification)

	require.NoError(t, f.store.Verifications().Create(ctx, models.Verification{
		ID: ids.New(), UserID: driver.ID, Status: models.VerificationUnderReview,
	}, models.Notification{ID: ids.New(), UserID: driver.ID, Message: "submitted"}))
	dd, err = f.dashboard.Driver(ctx, driver)
	require.NoError(t, err)
	require.NotNil(t, dd.Verification)
	require.Equal(t, models.VerificationUnderReview, dd.Verification.Status)

	_, err = f.orders.SetStatus(ctx, admin.ID, order.ID, models.OrderStatusProcessing, false)
	require.NoError(t, err)

	ad, err := f.dashboard.Admin(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, ad.PendingReviews)
	require.Equal(t, 1, ad.Users[models.UserRoleClient][models.UserStatusVerified])
	require.Equal(t, 2, ad.Orders.Total)
	require.Equal(t, 1, ad.Orders.ByStatus[models.OrderStatusProcessing])
}
