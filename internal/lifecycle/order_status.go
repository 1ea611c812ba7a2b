package lifecycle

import "ridedesk/internal/models"

var orderTransitions = newTable([]transition[models.OrderStatus]{
	{models.OrderStatusPending, models.OrderStatusCancelled, ActorClient},

	{models.OrderStatusProcessing, models.OrderStatusShipped, ActorDriver},
	{models.OrderStatusShipped, models.OrderStatusDelivered, ActorDriver},

	{models.OrderStatusPending, models.OrderStatusProcessing, ActorAdmin},
	{models.OrderStatusPending, models.OrderStatusCancelled, ActorAdmin},
	{models.OrderStatusProcessing, models.OrderStatusCancelled, ActorAdmin},
	{models.OrderStatusProcessing, models.OrderStatusShipped, ActorAdmin},
	{models.OrderStatusShipped, models.OrderStatusDelivered, ActorAdmin},
})

func CanTransitionOrder(from, to models.OrderStatus, actor Actor) error {
	return orderTransitions.check(from, to, actor)
}

func ValidOrderTransitionsFrom(from models.OrderStatus, actor Actor) []models.OrderStatus {
	return orderTransitions.next(from, actor)
}
