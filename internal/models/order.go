package models

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, status := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type OrderItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price,omitempty"`
}

type Order struct {
	ID              string
	Number          string
	CustomerID      string
	CustomerName    string
	CustomerEmail   string
	DriverID        *string
	Status          OrderStatus
	Amount          float64
	DeliveryAddress string
	Notes           string
	Items           []OrderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OrderFilter struct {
	CustomerID string
	DriverID   string
	Status     OrderStatus
	Unassigned bool
	Limit      int
	Offset     int
}

type OrderStats struct {
	Total    int
	Amount   float64
	ByStatus map[OrderStatus]int
}
