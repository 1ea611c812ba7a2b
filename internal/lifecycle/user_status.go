package lifecycle

import "ridedesk/internal/models"

// An existing user reaches verified only by an admin approving a pending application.
// Accounts created verified (password clients, first OAuth sign-in) never pass through here.
var userTransitions = newTable([]transition[models.UserStatus]{
	{models.UserStatusUnverified, models.UserStatusPending, ActorDriver},
	{models.UserStatusPending, models.UserStatusUnverified, ActorDriver},

	{models.UserStatusPending, models.UserStatusVerified, ActorAdmin},
	{models.UserStatusPending, models.UserStatusUnverified, ActorAdmin},
	{models.UserStatusUnverified, models.UserStatusSuspended, ActorAdmin},
	{models.UserStatusPending, models.UserStatusSuspended, ActorAdmin},
	{models.UserStatusVerified, models.UserStatusSuspended, ActorAdmin},
	{models.UserStatusSuspended, models.UserStatusUnverified, ActorAdmin},
})

func CanTransitionUser(from, to models.UserStatus, actor Actor) error {
	return userTransitions.check(from, to, actor)
}

func ValidUserTransitionsFrom(from models.UserStatus, actor Actor) []models.UserStatus {
	return userTransitions.next(from, actor)
}
