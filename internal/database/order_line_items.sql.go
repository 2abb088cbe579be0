package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createOrderLineItem = `-- name: CreateOrderLineItem :one
INSERT INTO order_line_items (order_id, menu_item_id, child_id, child_name, child_class,
    delivery_date, order_date, quantity, unit_price, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, order_id, menu_item_id, child_id, child_name, child_class,
    delivery_date, order_date, quantity, unit_price, notes, created_at`

type CreateOrderLineItemParams struct {
	OrderID      uuid.UUID      `json:"order_id"`
	MenuItemID   uuid.UUID      `json:"menu_item_id"`
	ChildID      uuid.UUID      `json:"child_id"`
	ChildName    string         `json:"child_name"`
	ChildClass   pgtype.Text    `json:"child_class"`
	DeliveryDate pgtype.Date    `json:"delivery_date"`
	OrderDate    pgtype.Date    `json:"order_date"`
	Quantity     int32          `json:"quantity"`
	UnitPrice    pgtype.Numeric `json:"unit_price"`
	Notes        pgtype.Text    `json:"notes"`
}

func (q *Queries) CreateOrderLineItem(ctx context.Context, arg CreateOrderLineItemParams) (OrderLineItem, error) {
	row := q.db.QueryRow(ctx, createOrderLineItem,
		arg.OrderID,
		arg.MenuItemID,
		arg.ChildID,
		arg.ChildName,
		arg.ChildClass,
		arg.DeliveryDate,
		arg.OrderDate,
		arg.Quantity,
		arg.UnitPrice,
		arg.Notes,
	)
	var i OrderLineItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.MenuItemID,
		&i.ChildID,
		&i.ChildName,
		&i.ChildClass,
		&i.DeliveryDate,
		&i.OrderDate,
		&i.Quantity,
		&i.UnitPrice,
		&i.Notes,
		&i.CreatedAt,
	)
	return i, err
}

const listLineItemsByOrderIDs = `-- name: ListLineItemsByOrderIDs :many
SELECT li.id, li.order_id, li.menu_item_id, li.child_id, li.child_name, li.child_class,
    li.delivery_date, li.order_date, li.quantity, li.unit_price, li.notes, li.created_at,
    m.name AS menu_item_name, m.image_url AS menu_item_image_url
FROM order_line_items li
JOIN menu_items m ON m.id = li.menu_item_id
WHERE li.order_id = ANY($1::uuid[])
ORDER BY li.delivery_date, li.child_name, li.created_at`

type ListLineItemsByOrderIDsRow struct {
	OrderLineItem    OrderLineItem `json:"order_line_item"`
	MenuItemName     string        `json:"menu_item_name"`
	MenuItemImageUrl pgtype.Text   `json:"menu_item_image_url"`
}

func (q *Queries) ListLineItemsByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) ([]ListLineItemsByOrderIDsRow, error) {
	rows, err := q.db.Query(ctx, listLineItemsByOrderIDs, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListLineItemsByOrderIDsRow{}
	for rows.Next() {
		var i ListLineItemsByOrderIDsRow
		if err := rows.Scan(
			&i.OrderLineItem.ID,
			&i.OrderLineItem.OrderID,
			&i.OrderLineItem.MenuItemID,
			&i.OrderLineItem.ChildID,
			&i.OrderLineItem.ChildName,
			&i.OrderLineItem.ChildClass,
			&i.OrderLineItem.DeliveryDate,
			&i.OrderLineItem.OrderDate,
			&i.OrderLineItem.Quantity,
			&i.OrderLineItem.UnitPrice,
			&i.OrderLineItem.Notes,
			&i.OrderLineItem.CreatedAt,
			&i.MenuItemName,
			&i.MenuItemImageUrl,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listReportLineItemsByOrderDate = `-- name: ListReportLineItemsByOrderDate :many
SELECT li.order_id, m.name AS menu_item_name, li.child_name, li.child_class,
    li.delivery_date, o.order_date, li.quantity, li.unit_price
FROM order_line_items li
JOIN orders o ON o.id = li.order_id
JOIN menu_items m ON m.id = li.menu_item_id
WHERE o.order_date >= $1 AND o.order_date < $2
  AND o.status <> 'cancelled'
ORDER BY o.created_at, li.created_at`

const listReportLineItemsByDeliveryDate = `-- name: ListReportLineItemsByDeliveryDate :many
SELECT li.order_id, m.name AS menu_item_name, li.child_name, li.child_class,
    li.delivery_date, o.order_date, li.quantity, li.unit_price
FROM order_line_items li
JOIN orders o ON o.id = li.order_id
JOIN menu_items m ON m.id = li.menu_item_id
WHERE li.delivery_date >= $1 AND li.delivery_date < $2
  AND o.status <> 'cancelled'
ORDER BY li.delivery_date, li.child_class, li.child_name`

type ReportDateRangeParams struct {
	StartDate pgtype.Date `json:"start_date"`
	EndDate   pgtype.Date `json:"end_date"`
}

type ReportLineItemRow struct {
	OrderID      uuid.UUID      `json:"order_id"`
	MenuItemName string         `json:"menu_item_name"`
	ChildName    string         `json:"child_name"`
	ChildClass   pgtype.Text    `json:"child_class"`
	DeliveryDate pgtype.Date    `json:"delivery_date"`
	OrderDate    pgtype.Date    `json:"order_date"`
	Quantity     int32          `json:"quantity"`
	UnitPrice    pgtype.Numeric `json:"unit_price"`
}

// ListReportLineItemsByOrderDate bounds on the order's order_date, end exclusive.
func (q *Queries) ListReportLineItemsByOrderDate(ctx context.Context, arg ReportDateRangeParams) ([]ReportLineItemRow, error) {
	return q.listReportLineItems(ctx, listReportLineItemsByOrderDate, arg)
}

// ListReportLineItemsByDeliveryDate bounds on each line item's delivery_date, end exclusive.
func (q *Queries) ListReportLineItemsByDeliveryDate(ctx context.Context, arg ReportDateRangeParams) ([]ReportLineItemRow, error) {
	return q.listReportLineItems(ctx, listReportLineItemsByDeliveryDate, arg)
}

func (q *Queries) listReportLineItems(ctx context.Context, sql string, arg ReportDateRangeParams) ([]ReportLineItemRow, error) {
	rows, err := q.db.Query(ctx, sql, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ReportLineItemRow{}
	for rows.Next() {
		var i ReportLineItemRow
		if err := rows.Scan(
			&i.OrderID,
			&i.MenuItemName,
			&i.ChildName,
			&i.ChildClass,
			&i.DeliveryDate,
			&i.OrderDate,
			&i.Quantity,
			&i.UnitPrice,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (order_id, menu_item_id, quantity, price)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, menu_item_id, quantity, price`

type CreateOrderItemParams struct {
	OrderID    uuid.UUID      `json:"order_id"`
	MenuItemID uuid.UUID      `json:"menu_item_id"`
	Quantity   int32          `json:"quantity"`
	Price      pgtype.Numeric `json:"price"`
}

// CreateOrderItem writes a legacy order_items row.
func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.MenuItemID,
		arg.Quantity,
		arg.Price,
	)
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.MenuItemID,
		&i.Quantity,
		&i.Price,
	)
	return i, err
}
