package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ridedesk/internal/models"
)

var orderExportHeader = []string{"Number", "Customer", "Email", "Status", "Amount", "Items", "Delivery Address", "Driver", "Created At"}

func orderRecord(o models.Order) []string {
	items := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
	}
	driver := ""
	if o.DriverID != nil {
		driver = *o.DriverID
	}
	return []string{
		o.Number,
		o.CustomerName,
		o.CustomerEmail,
		string(o.Status),
		strconv.FormatFloat(o.Amount, 'f', 2, 64),
		strings.Join(items, "; "),
		o.DeliveryAddress,
		driver,
		o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Export writes every order matching filter, up to a fixed row cap.
func (s *OrderService) Export(ctx context.Context, w io.Writer, format ExportFormat, filter models.OrderFilter) (int, error) {
	all, err := collectPages(func(limit, offset int) ([]models.Order, error) {
		filter.Limit, filter.Offset = limit, offset
		return s.orders.List(ctx, filter)
	})
	if err != nil {
		return 0, err
	}
	return len(all), WriteOrders(w, format, all)
}

func WriteOrders(w io.Writer, format ExportFormat, orders []models.Order) error {
	t := exportTable{
		sheet:   "Orders",
		header:  orderExportHeader,
		numeric: map[int]bool{4: true},
	}
	docs := make([]orderDocument, 0, len(orders))
	for _, o := range orders {
		t.rows = append(t.rows, orderRecord(o))
		docs = append(docs, orderDocument{
			ID:              o.ID,
			Number:          o.Number,
			CustomerName:    o.CustomerName,
			CustomerEmail:   o.CustomerEmail,
			Status:          o.Status,
			Amount:          o.Amount,
			Items:           o.Items,
			DeliveryAddress: o.DeliveryAddress,
			DriverID:        o.DriverID,
			Date:            o.CreatedAt.UTC().Format("2006-01-02"),
		})
	}
	t.docs = docs
	return writeTable(w, format, t)
}

type orderDocument struct {
	ID              string             `json:"id"`
	Number          string             `json:"number"`
	CustomerName    string             `json:"customerName"`
	CustomerEmail   string             `json:"customerEmail"`
	Status          models.OrderStatus `json:"status"`
	Amount          float64            `json:"amount"`
	Items           []models.OrderItem `json:"items"`
	DeliveryAddress string             `json:"deliveryAddress"`
	DriverID        *string            `json:"driverId"`
	Date            string             `json:"date"`
}
