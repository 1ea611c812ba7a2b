package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"ridedesk/internal/ids"
	"ridedesk/internal/lifecycle"
	"ridedesk/internal/models"
	"ridedesk/internal/realtime"
	"ridedesk/internal/repository"
)

var (
	ErrInvalidOrder      = errors.New("invalid order")
	ErrDriverNotVerified = errors.New("driver not verified")
	ErrNotOrderOwner     = errors.New("order belongs to another user")
)

const minAddressLength = 10

type OrderService struct {
	orders  OrderStore
	menu    MenuStore
	numbers *ids.OrderNumbers
	events  EventPublisher
	log     zerolog.Logger
}

func NewOrderService(orders OrderStore, menu MenuStore, numbers *ids.OrderNumbers, events EventPublisher, log zerolog.Logger) *OrderService {
	return &OrderService{
		orders:  orders,
		menu:    menu,
		numbers: numbers,
		events:  events,
		log:     log,
	}
}

type OrderLineInput struct {
	MenuItemID string
	Name       string
	Quantity   int
	Price      float64
}

type CreateOrderInput struct {
	Items           []OrderLineInput
	DeliveryAddress string
	Notes           string
}

// Create places an order for a client. Lines naming a menu item take their
// name and price from the client's menu.
func (s *OrderService) Create(ctx context.Context, customer models.User, input CreateOrderInput) (models.Order, error) {
	address := strings.TrimSpace(input.DeliveryAddress)
	if len(address) < minAddressLength {
		return models.Order{}, fmt.Errorf("%w: delivery address too short", ErrInvalidOrder)
	}
	if len(input.Items) == 0 {
		return models.Order{}, fmt.Errorf("%w: no items", ErrInvalidOrder)
	}

	order := models.Order{
		ID:              ids.New(),
		Number:          s.numbers.Next(),
		CustomerID:      customer.ID,
		CustomerName:    customer.DisplayName(),
		CustomerEmail:   customer.Email,
		Status:          models.OrderStatusPending,
		DeliveryAddress: address,
		Notes:           strings.TrimSpace(input.Notes),
		Items:           make([]models.OrderItem, 0, len(input.Items)),
	}

	for i, line := range input.Items {
		if line.Quantity < 1 {
			return models.Order{}, fmt.Errorf("%w: item %d quantity must be at least 1", ErrInvalidOrder, i)
		}
		item := models.OrderItem{Quantity: line.Quantity}
		if line.MenuItemID != "" {
			menuItem, err := s.menu.Get(ctx, customer.ID, line.MenuItemID)
			if err != nil {
				if errors.Is(err, repository.ErrMenuItemNotFound) {
					return models.Order{}, fmt.Errorf("%w: unknown menu item %s", ErrInvalidOrder, line.MenuItemID)
				}
				return models.Order{}, err
			}
			item.ID = menuItem.ID
			item.Name = menuItem.Name
			item.Price = menuItem.Price
		} else {
			item.ID = ids.New()
			item.Name = strings.TrimSpace(line.Name)
			item.Price = line.Price
			if len(item.Name) < 2 {
				return models.Order{}, fmt.Errorf("%w: item %d name too short", ErrInvalidOrder, i)
			}
			if item.Price < 0 {
				return models.Order{}, fmt.Errorf("%w: item %d price negative", ErrInvalidOrder, i)
			}
		}
		order.Amount += item.Price * float64(item.Quantity)
		order.Items = append(order.Items, item)
	}
	order.Amount = math.Round(order.Amount*100) / 100

	if err := s.orders.Create(ctx, order); err != nil {
		return models.Order{}, err
	}
	s.log.Info().Str("order_id", order.ID).Str("number", order.Number).Float64("amount", order.Amount).Msg("order created")
	return order, nil
}

func (s *OrderService) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidOrder, filter.Status)
	}
	return s.orders.List(ctx, filter)
}

func (s *OrderService) Stats(ctx context.Context, filter models.OrderFilter) (models.OrderStats, error) {
	return s.orders.Stats(ctx, filter)
}

// GetForCustomer hides other customers' orders behind ErrOrderNotFound.
func (s *OrderService) GetForCustomer(ctx context.Context, customerID, id string) (models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	if order.CustomerID != customerID {
		return models.Order{}, repository.ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) Cancel(ctx context.Context, customerID, id string) (models.Order, error) {
	order, err := s.GetForCustomer(ctx, customerID, id)
	if err != nil {
		return models.Order{}, err
	}
	return s.transition(ctx, order, models.OrderStatusCancelled, lifecycle.ActorClient)
}

// Claim assigns an available order to a verified driver.
func (s *OrderService) Claim(ctx context.Context, driver models.User, id string) (models.Order, error) {
	if driver.Status != models.UserStatusVerified {
		return models.Order{}, ErrDriverNotVerified
	}
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	if order.Status != models.OrderStatusProcessing || order.DriverID != nil {
		return models.Order{}, repository.ErrOrderConflict
	}
	if err := s.orders.Assign(ctx, id, driver.ID, models.OrderStatusProcessing); err != nil {
		return models.Order{}, err
	}
	driverID := driver.ID
	order.DriverID = &driverID
	s.log.Info().Str("order_id", id).Str("driver_id", driver.ID).Msg("order claimed")
	s.notifyCustomer(ctx, order)
	return order, nil
}

// Advance moves a driver's own delivery forward.
func (s *OrderService) Advance(ctx context.Context, driver models.User, id string, to models.OrderStatus) (models.Order, error) {
	if driver.Status != models.UserStatusVerified {
		return models.Order{}, ErrDriverNotVerified
	}
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	if order.DriverID == nil || *order.DriverID != driver.ID {
		return models.Order{}, ErrNotOrderOwner
	}
	return s.transition(ctx, order, to, lifecycle.ActorDriver)
}

type DriverOrders struct {
	Assigned  []models.Order
	Available []models.Order
}

func (s *OrderService) ForDriver(ctx context.Context, driverID string, limit int) (DriverOrders, error) {
	assigned, err := s.orders.List(ctx, models.OrderFilter{DriverID: driverID, Limit: limit})
	if err != nil {
		return DriverOrders{}, err
	}
	available, err := s.orders.List(ctx, models.OrderFilter{Status: models.OrderStatusProcessing, Unassigned: true, Limit: limit})
	if err != nil {
		return DriverOrders{}, err
	}
	return DriverOrders{Assigned: assigned, Available: available}, nil
}

// SetStatus is the admin path. Transitions outside the admin table are allowed
// only with force and are logged as overrides.
func (s *OrderService) SetStatus(ctx context.Context, actorID, id string, to models.OrderStatus, force bool) (models.Order, error) {
	if !to.Valid() {
		return models.Order{}, fmt.Errorf("%w: unknown status %q", ErrInvalidOrder, to)
	}
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	if err := lifecycle.CanTransitionOrder(order.Status, to, lifecycle.ActorAdmin); err != nil {
		if !force || order.Status == to {
			return models.Order{}, err
		}
		s.log.Warn().
			Str("actor_id", actorID).
			Str("order_id", id).
			Str("from", string(order.Status)).
			Str("to", string(to)).
			Msg("order status override")
	}
	if err := s.orders.UpdateStatus(ctx, id, order.Status, to); err != nil {
		return models.Order{}, err
	}
	order.Status = to
	s.notifyCustomer(ctx, order)
	return order, nil
}

func (s *OrderService) transition(ctx context.Context, order models.Order, to models.OrderStatus, actor lifecycle.Actor) (models.Order, error) {
	if err := lifecycle.CanTransitionOrder(order.Status, to, actor); err != nil {
		return models.Order{}, err
	}
	if err := s.orders.UpdateStatus(ctx, order.ID, order.Status, to); err != nil {
		return models.Order{}, err
	}
	s.log.Info().
		Str("order_id", order.ID).
		Str("actor", string(actor)).
		Str("from", string(order.Status)).
		Str("to", string(to)).
		Msg("order status changed")
	order.Status = to
	s.notifyCustomer(ctx, order)
	return order, nil
}

func (s *OrderService) notifyCustomer(ctx context.Context, order models.Order) {
	publishEvent(ctx, s.events, s.log, realtime.EventOrderUpdated, order.CustomerID, map[string]any{
		"id":       order.ID,
		"number":   order.Number,
		"status":   order.Status,
		"driverId": order.DriverID,
	})
}
