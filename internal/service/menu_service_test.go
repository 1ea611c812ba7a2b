package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"ridedesk/internal/models"
	"ridedesk/internal/realtime"
	"ridedesk/internal/repository"
	"ridedesk/internal/service"
)

func TestMenuLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.seedUser(t, "client@example.com", models.UserRoleClient, models.UserStatusVerified)
	other := f.seedUser(t, "other@example.com", models.UserRoleClient, models.UserStatusVerified)

	item, err := f.menu.Create(ctx, client.ID, service.MenuItemInput{
		Name:        "  Lasagna ",
		Description: "Baked with ragu and bechamel",
		Price:       12.5,
	})
	require.NoError(t, err)
	require.Equal(t, "Lasagna", item.Name)
	require.Equal(t, service.DefaultMenuImageURL(item.ID), item.ImageURL)

	updated, err := f.menu.Update(ctx, client.ID, item.ID, service.MenuItemInput{
		Name:        "Lasagna",
		Description: "Baked with ragu and bechamel",
		Price:       13,
		ImageURL:    "https://cdn.example.com/lasagna.jpg",
	})
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/lasagna.jpg", updated.ImageURL)

	_, err = f.menu.Update(ctx, other.ID, item.ID, service.MenuItemInput{
		Name: "Stolen", Description: "Not my menu item at all", Price: 1,
	})
	require.ErrorIs(t, err, repository.ErrMenuItemNotFound)

	items, err := f.menu.List(ctx, client.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.InDelta(t, 13, items[0].Price, 0.001)

	require.ErrorIs(t, f.menu.Delete(ctx, other.ID, item.ID), repository.ErrMenuItemNotFound)
	require.NoError(t, f.menu.Delete(ctx, client.ID, item.ID))

	require.Equal(t, []string{
		realtime.EventMenuCreated,
		realtime.EventMenuUpdated,
		realtime.EventMenuDeleted,
	}, f.store.Events().Types(client.ID))
}

func TestMenuValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.seedUser(t, "client@example.com", models.UserRoleClient, models.UserStatusVerified)

	cases := []service.MenuItemInput{
		{Name: "A", Description: "Long enough description", Price: 1},
		{Name: "Soup", Description: "Short", Price: 1},
		{Name: "Soup", Description: "Long enough description", Price: 0},
		{Name: "Soup", Description: "Long enough description", Price: 1, ImageURL: "ftp://host/x.png"},
		{Name: "Soup", Description: "Long enough description", Price: 1, ImageURL: "/relative.png"},
	}
	for i, input := range cases {
		_, err := f.menu.Create(ctx, client.ID, input)
		require.ErrorIs(t, err, service.ErrInvalidMenuItem, "case %d", i)
	}
}
