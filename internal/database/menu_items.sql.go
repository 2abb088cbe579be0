package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, name, description, price, image_url, is_available, created_at, updated_at`

func scanMenuItem(row interface{ Scan(...interface{}) error }) (MenuItem, error) {
	var i MenuItem
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.ImageUrl,
		&i.IsAvailable,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createMenuItem = `-- name: CreateMenuItem :one
INSERT INTO menu_items (name, description, price, image_url, is_available)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + menuItemColumns

type CreateMenuItemParams struct {
	Name        string         `json:"name"`
	Description pgtype.Text    `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	ImageUrl    pgtype.Text    `json:"image_url"`
	IsAvailable bool           `json:"is_available"`
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.ImageUrl,
		arg.IsAvailable,
	)
	return scanMenuItem(row)
}

const getMenuItem = `-- name: GetMenuItem :one
SELECT ` + menuItemColumns + ` FROM menu_items
WHERE id = $1`

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	row := q.db.QueryRow(ctx, getMenuItem, id)
	return scanMenuItem(row)
}

const getMenuItemByName = `-- name: GetMenuItemByName :one
SELECT ` + menuItemColumns + ` FROM menu_items
WHERE name = $1
LIMIT 1`

func (q *Queries) GetMenuItemByName(ctx context.Context, name string) (MenuItem, error) {
	row := q.db.QueryRow(ctx, getMenuItemByName, name)
	return scanMenuItem(row)
}

const listMenuItems = `-- name: ListMenuItems :many
SELECT ` + menuItemColumns + ` FROM menu_items
WHERE ($1::boolean = false OR is_available = true)
ORDER BY name`

func (q *Queries) ListMenuItems(ctx context.Context, onlyAvailable bool) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems, onlyAvailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItem{}
	for rows.Next() {
		i, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateMenuItem = `-- name: UpdateMenuItem :one
UPDATE menu_items
SET name = $2, description = $3, price = $4, image_url = $5, is_available = $6, updated_at = now()
WHERE id = $1
RETURNING ` + menuItemColumns

type UpdateMenuItemParams struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description pgtype.Text    `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	ImageUrl    pgtype.Text    `json:"image_url"`
	IsAvailable bool           `json:"is_available"`
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, updateMenuItem,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.ImageUrl,
		arg.IsAvailable,
	)
	return scanMenuItem(row)
}
