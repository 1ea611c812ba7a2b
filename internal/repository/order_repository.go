package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ridedesk/internal/models"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrOrderConflict = errors.New("order changed concurrently")
)

const orderColumns = `id, number, customer_id, customer_name, customer_email, driver_id, status, amount, delivery_address, notes, items, created_at, updated_at`

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) Create(ctx context.Context, order models.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}

	const query = `
		INSERT INTO orders (
			id, number, customer_id, customer_name, customer_email, driver_id, status, amount, delivery_address, notes, items, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW()
		)
	`
	_, err = r.pool.Exec(ctx, query,
		order.ID,
		order.Number,
		order.CustomerID,
		order.CustomerName,
		order.CustomerEmail,
		order.DriverID,
		order.Status,
		order.Amount,
		order.DeliveryAddress,
		order.Notes,
		items,
	)
	return err
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(r.pool.QueryRow(ctx, query, id))
}

func (r *OrderRepository) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	where, args := orderWhere(filter)
	query := `SELECT ` + orderColumns + ` FROM orders` + where
	args = append(args, limitOrDefault(filter.Limit), filter.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// Stats aggregates the orders matching filter. Limit and offset are ignored.
func (r *OrderRepository) Stats(ctx context.Context, filter models.OrderFilter) (models.OrderStats, error) {
	where, args := orderWhere(filter)
	query := `SELECT status, COUNT(*), COALESCE(SUM(amount), 0) FROM orders` + where + ` GROUP BY status`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return models.OrderStats{}, err
	}
	defer rows.Close()

	stats := models.OrderStats{ByStatus: make(map[models.OrderStatus]int)}
	for rows.Next() {
		var (
			status models.OrderStatus
			count  int
			amount float64
		)
		if err := rows.Scan(&status, &count, &amount); err != nil {
			return models.OrderStats{}, err
		}
		stats.ByStatus[status] = count
		stats.Total += count
		if status != models.OrderStatusCancelled {
			stats.Amount += amount
		}
	}
	return stats, rows.Err()
}

// UpdateStatus applies a transition only if the order is still in from.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error {
	const query = `UPDATE orders SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`
	cmd, err := r.pool.Exec(ctx, query, id, from, to)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrOrderConflict
	}
	return nil
}

// Assign hands an unassigned order to a driver.
func (r *OrderRepository) Assign(ctx context.Context, id, driverID string, status models.OrderStatus) error {
	const query = `
		UPDATE orders SET driver_id = $2, updated_at = NOW()
		WHERE id = $1 AND driver_id IS NULL AND status = $3
	`
	cmd, err := r.pool.Exec(ctx, query, id, driverID, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrOrderConflict
	}
	return nil
}

func orderWhere(filter models.OrderFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		where = append(where, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.DriverID != "" {
		args = append(args, filter.DriverID)
		where = append(where, fmt.Sprintf("driver_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Unassigned {
		where = append(where, "driver_id IS NULL")
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func scanOrder(row pgx.Row) (models.Order, error) {
	var (
		order models.Order
		items []byte
	)
	if err := row.Scan(
		&order.ID,
		&order.Number,
		&order.CustomerID,
		&order.CustomerName,
		&order.CustomerEmail,
		&order.DriverID,
		&order.Status,
		&order.Amount,
		&order.DeliveryAddress,
		&order.Notes,
		&items,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, ErrOrderNotFound
		}
		return models.Order{}, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &order.Items); err != nil {
			return models.Order{}, fmt.Errorf("decode items: %w", err)
		}
	}
	return order, nil
}
