package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, user_id, order_number, total_amount, status, payment_status, payment_method,
    order_date, parent_notes, notes, gateway_order_id, snap_token, created_at, updated_at`

const orderColumnsPrefixed = `o.id, o.user_id, o.order_number, o.total_amount, o.status, o.payment_status, o.payment_method,
    o.order_date, o.parent_notes, o.notes, o.gateway_order_id, o.snap_token, o.created_at, o.updated_at`

func orderScanDest(i *Order) []interface{} {
	return []interface{}{
		&i.ID,
		&i.UserID,
		&i.OrderNumber,
		&i.TotalAmount,
		&i.Status,
		&i.PaymentStatus,
		&i.PaymentMethod,
		&i.OrderDate,
		&i.ParentNotes,
		&i.Notes,
		&i.GatewayOrderID,
		&i.SnapToken,
		&i.CreatedAt,
		&i.UpdatedAt,
	}
}

func scanOrder(row interface{ Scan(...interface{}) error }) (Order, error) {
	var i Order
	err := row.Scan(orderScanDest(&i)...)
	return i, err
}

func collectOrders(q *Queries, ctx context.Context, sql string, args ...interface{}) ([]Order, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
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

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (user_id, order_number, total_amount, order_date, parent_notes, gateway_order_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	UserID         uuid.UUID      `json:"user_id"`
	OrderNumber    string         `json:"order_number"`
	TotalAmount    pgtype.Numeric `json:"total_amount"`
	OrderDate      pgtype.Date    `json:"order_date"`
	ParentNotes    pgtype.Text    `json:"parent_notes"`
	GatewayOrderID pgtype.Text    `json:"gateway_order_id"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.UserID,
		arg.OrderNumber,
		arg.TotalAmount,
		arg.OrderDate,
		arg.ParentNotes,
		arg.GatewayOrderID,
	)
	return scanOrder(row)
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, id)
	return scanOrder(row)
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1
FOR NO KEY UPDATE`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderForUpdate, id)
	return scanOrder(row)
}

const listOrdersByGatewayIDForUpdate = `-- name: ListOrdersByGatewayIDForUpdate :many
SELECT ` + orderColumns + ` FROM orders
WHERE gateway_order_id = $1
   OR id IN (SELECT order_id FROM batch_orders WHERE batch_id = $1)
ORDER BY created_at
FOR NO KEY UPDATE`

// ListOrdersByGatewayIDForUpdate resolves both single and batch gateway ids.
func (q *Queries) ListOrdersByGatewayIDForUpdate(ctx context.Context, gatewayOrderID string) ([]Order, error) {
	return collectOrders(q, ctx, listOrdersByGatewayIDForUpdate, gatewayOrderID)
}

const listOrdersByUser = `-- name: ListOrdersByUser :many
SELECT ` + orderColumns + ` FROM orders
WHERE user_id = $1
  AND ($2::text IS NULL OR status = $2::order_status)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`

type ListOrdersByUserParams struct {
	UserID uuid.UUID   `json:"user_id"`
	Status pgtype.Text `json:"status"`
	Limit  int32       `json:"limit"`
	Offset int32       `json:"offset"`
}

func (q *Queries) ListOrdersByUser(ctx context.Context, arg ListOrdersByUserParams) ([]Order, error) {
	return collectOrders(q, ctx, listOrdersByUser, arg.UserID, arg.Status, arg.Limit, arg.Offset)
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumnsPrefixed + `,
    u.full_name AS parent_name,
    u.email AS parent_email,
    COALESCE((SELECT string_agg(DISTINCT li.child_name, ', ') FROM order_line_items li WHERE li.order_id = o.id), '')::text AS child_names
FROM orders o
JOIN users u ON u.id = o.user_id
WHERE ($1::text IS NULL OR o.status = $1::order_status)
  AND ($2::text IS NULL OR o.payment_status = $2::payment_status)
  AND ($3::text IS NULL
       OR o.order_number ILIKE '%' || $3::text || '%'
       OR u.full_name ILIKE '%' || $3::text || '%'
       OR EXISTS (SELECT 1 FROM order_line_items li
                  WHERE li.order_id = o.id AND li.child_name ILIKE '%' || $3::text || '%'))
ORDER BY o.created_at DESC
LIMIT $4 OFFSET $5`

type ListOrdersParams struct {
	Status        pgtype.Text `json:"status"`
	PaymentStatus pgtype.Text `json:"payment_status"`
	Search        pgtype.Text `json:"search"`
	Limit         int32       `json:"limit"`
	Offset        int32       `json:"offset"`
}

type ListOrdersRow struct {
	Order       Order  `json:"order"`
	ParentName  string `json:"parent_name"`
	ParentEmail string `json:"parent_email"`
	ChildNames  string `json:"child_names"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]ListOrdersRow, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.Status,
		arg.PaymentStatus,
		arg.Search,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListOrdersRow{}
	for rows.Next() {
		var i ListOrdersRow
		dest := append(orderScanDest(&i.Order), &i.ParentName, &i.ParentEmail, &i.ChildNames)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listPayableOrdersByIDs = `-- name: ListPayableOrdersByIDs :many
SELECT ` + orderColumns + ` FROM orders
WHERE user_id = $1
  AND id = ANY($2::uuid[])
  AND payment_status = 'pending'
  AND status <> 'cancelled'
ORDER BY created_at`

type ListPayableOrdersByIDsParams struct {
	UserID uuid.UUID   `json:"user_id"`
	Ids    []uuid.UUID `json:"ids"`
}

func (q *Queries) ListPayableOrdersByIDs(ctx context.Context, arg ListPayableOrdersByIDsParams) ([]Order, error) {
	return collectOrders(q, ctx, listPayableOrdersByIDs, arg.UserID, arg.Ids)
}

const listOrdersForReport = `-- name: ListOrdersForReport :many
SELECT ` + orderColumns + ` FROM orders
WHERE order_date >= $1 AND order_date < $2
  AND status <> 'cancelled'
ORDER BY order_date DESC, created_at DESC`

type ListOrdersForReportParams struct {
	StartDate pgtype.Date `json:"start_date"`
	EndDate   pgtype.Date `json:"end_date"`
}

func (q *Queries) ListOrdersForReport(ctx context.Context, arg ListOrdersForReportParams) ([]Order, error) {
	return collectOrders(q, ctx, listOrdersForReport, arg.StartDate, arg.EndDate)
}

const updateOrderPaymentSession = `-- name: UpdateOrderPaymentSession :one
UPDATE orders
SET gateway_order_id = $2, snap_token = $3, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderPaymentSessionParams struct {
	ID             uuid.UUID   `json:"id"`
	GatewayOrderID pgtype.Text `json:"gateway_order_id"`
	SnapToken      pgtype.Text `json:"snap_token"`
}

func (q *Queries) UpdateOrderPaymentSession(ctx context.Context, arg UpdateOrderPaymentSessionParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderPaymentSession, arg.ID, arg.GatewayOrderID, arg.SnapToken)
	return scanOrder(row)
}

const updateOrderPaymentStatus = `-- name: UpdateOrderPaymentStatus :one
UPDATE orders
SET payment_status = $2,
    status = CASE WHEN $2::payment_status = 'paid' AND status = 'pending' THEN 'confirmed'::order_status ELSE status END,
    payment_method = COALESCE($3, payment_method),
    updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderPaymentStatusParams struct {
	ID            uuid.UUID         `json:"id"`
	PaymentStatus PaymentStatus     `json:"payment_status"`
	PaymentMethod NullPaymentMethod `json:"payment_method"`
}

// UpdateOrderPaymentStatus confirms a pending order in the same statement that marks it paid.
func (q *Queries) UpdateOrderPaymentStatus(ctx context.Context, arg UpdateOrderPaymentStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderPaymentStatus, arg.ID, arg.PaymentStatus, arg.PaymentMethod)
	return scanOrder(row)
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID            uuid.UUID   `json:"id"`
	Status        OrderStatus `json:"status"`
	CurrentStatus OrderStatus `json:"current_status"`
}

// UpdateOrderStatus only matches while the order still has CurrentStatus.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.CurrentStatus)
	return scanOrder(row)
}

const updateOrderNotes = `-- name: UpdateOrderNotes :exec
UPDATE orders SET notes = $2, updated_at = now()
WHERE id = $1`

type UpdateOrderNotesParams struct {
	ID    uuid.UUID   `json:"id"`
	Notes pgtype.Text `json:"notes"`
}

func (q *Queries) UpdateOrderNotes(ctx context.Context, arg UpdateOrderNotesParams) error {
	_, err := q.db.Exec(ctx, updateOrderNotes, arg.ID, arg.Notes)
	return err
}
