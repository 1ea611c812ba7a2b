package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ridedesk/internal/models"
)

var ErrMenuItemNotFound = errors.New("menu item not found")

type MenuRepository struct {
	pool *pgxpool.Pool
}

func NewMenuRepository(pool *pgxpool.Pool) *MenuRepository {
	return &MenuRepository{pool: pool}
}

func (r *MenuRepository) ListByClient(ctx context.Context, clientID string) ([]models.MenuItem, error) {
	const query = `
		SELECT id, client_id, name, description, price, image_url, created_at, updated_at
		FROM menu_items WHERE client_id = $1
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.MenuItem
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *MenuRepository) Get(ctx context.Context, clientID, id string) (models.MenuItem, error) {
	const query = `
		SELECT id, client_id, name, description, price, image_url, created_at, updated_at
		FROM menu_items WHERE client_id = $1 AND id = $2
	`
	return scanMenuItem(r.pool.QueryRow(ctx, query, clientID, id))
}

func (r *MenuRepository) Create(ctx context.Context, item models.MenuItem) error {
	const query = `
		INSERT INTO menu_items (id, client_id, name, description, price, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query, item.ID, item.ClientID, item.Name, item.Description, item.Price, item.ImageURL)
	return err
}

func (r *MenuRepository) Update(ctx context.Context, item models.MenuItem) error {
	const query = `
		UPDATE menu_items
		SET name = $3, description = $4, price = $5, image_url = $6, updated_at = NOW()
		WHERE client_id = $1 AND id = $2
	`
	cmd, err := r.pool.Exec(ctx, query, item.ClientID, item.ID, item.Name, item.Description, item.Price, item.ImageURL)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrMenuItemNotFound
	}
	return nil
}

func (r *MenuRepository) Delete(ctx context.Context, clientID, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM menu_items WHERE client_id = $1 AND id = $2`, clientID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrMenuItemNotFound
	}
	return nil
}

func scanMenuItem(row pgx.Row) (models.MenuItem, error) {
	var item models.MenuItem
	if err := row.Scan(
		&item.ID,
		&item.ClientID,
		&item.Name,
		&item.Description,
		&item.Price,
		&item.ImageURL,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.MenuItem{}, ErrMenuItemNotFound
		}
		return models.MenuItem{}, err
	}
	return item, nil
}
