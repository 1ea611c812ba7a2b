package lifecycle_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ridedesk/internal/lifecycle"
	"ridedesk/internal/models"
)

var allUserStatuses = []models.UserStatus{
	models.UserStatusUnverified,
	models.UserStatusPending,
	models.UserStatusVerified,
	models.UserStatusSuspended,
}

func TestDriverCanNeverSelfVerify(t *testing.T) {
	for _, from := range allUserStatuses {
		err := lifecycle.CanTransitionUser(from, models.UserStatusVerified, lifecycle.ActorDriver)
		require.ErrorIs(t, err, lifecycle.ErrInvalidTransition, "from %s", from)
	}
}

func TestAdminVerifiesOnlyPending(t *testing.T) {
	require.NoError(t, lifecycle.CanTransitionUser(models.UserStatusPending, models.UserStatusVerified, lifecycle.ActorAdmin))
	require.Error(t, lifecycle.CanTransitionUser(models.UserStatusUnverified, models.UserStatusVerified, lifecycle.ActorAdmin))
	require.Error(t, lifecycle.CanTransitionUser(models.UserStatusSuspended, models.UserStatusVerified, lifecycle.ActorAdmin))
}

func TestOnlyAdminApprovalVerifiesExistingUsers(t *testing.T) {
	for _, actor := range []lifecycle.Actor{lifecycle.ActorDriver, lifecycle.ActorClient} {
		for _, from := range allUserStatuses {
			require.Error(t, lifecycle.CanTransitionUser(from, models.UserStatusVerified, actor), "%s from %s", actor, from)
		}
	}
}

func TestDriverSubmissionRoundTrip(t *testing.T) {
	require.NoError(t, lifecycle.CanTransitionUser(models.UserStatusUnverified, models.UserStatusPending, lifecycle.ActorDriver))
	require.NoError(t, lifecycle.CanTransitionUser(models.UserStatusPending, models.UserStatusUnverified, lifecycle.ActorDriver))
	require.Error(t, lifecycle.CanTransitionUser(models.UserStatusVerified, models.UserStatusPending, lifecycle.ActorDriver))
}

func TestValidUserTransitionsFrom(t *testing.T) {
	require.ElementsMatch(t,
		[]models.UserStatus{models.UserStatusVerified, models.UserStatusUnverified, models.UserStatusSuspended},
		lifecycle.ValidUserTransitionsFrom(models.UserStatusPending, lifecycle.ActorAdmin),
	)
	require.Empty(t, lifecycle.ValidUserTransitionsFrom(models.UserStatusVerified, lifecycle.ActorDriver))
}

func TestOrderTransitions(t *testing.T) {
	cases := []struct {
		from, to models.OrderStatus
		actor    lifecycle.Actor
		ok       bool
	}{
		{models.OrderStatusPending, models.OrderStatusCancelled, lifecycle.ActorClient, true},
		{models.OrderStatusProcessing, models.OrderStatusCancelled, lifecycle.ActorClient, false},
		{models.OrderStatusProcessing, models.OrderStatusShipped, lifecycle.ActorDriver, true},
		{models.OrderStatusShipped, models.OrderStatusDelivered, lifecycle.ActorDriver, true},
		{models.OrderStatusPending, models.OrderStatusShipped, lifecycle.ActorDriver, false},
		{models.OrderStatusDelivered, models.OrderStatusCancelled, lifecycle.ActorAdmin, false},
		{models.OrderStatusPending, models.OrderStatusProcessing, lifecycle.ActorAdmin, true},
	}
	for _, tc := range cases {
		err := lifecycle.CanTransitionOrder(tc.from, tc.to, tc.actor)
		if tc.ok {
			require.NoError(t, err, "%s -> %s by %s", tc.from, tc.to, tc.actor)
		} else {
			require.ErrorIs(t, err, lifecycle.ErrInvalidTransition, "%s -> %s by %s", tc.from, tc.to, tc.actor)
		}
	}

	require.Empty(t, lifecycle.ValidOrderTransitionsFrom(models.OrderStatusDelivered, lifecycle.ActorAdmin))
}
