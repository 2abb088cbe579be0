package database

import (
	"context"

	"github.com/google/uuid"
)

const createBatchOrder = `-- name: CreateBatchOrder :one
INSERT INTO batch_orders (batch_id, order_id)
VALUES ($1, $2)
ON CONFLICT (batch_id, order_id) DO UPDATE SET batch_id = EXCLUDED.batch_id
RETURNING id, batch_id, order_id, created_at`

type CreateBatchOrderParams struct {
	BatchID string    `json:"batch_id"`
	OrderID uuid.UUID `json:"order_id"`
}

func (q *Queries) CreateBatchOrder(ctx context.Context, arg CreateBatchOrderParams) (BatchOrder, error) {
	row := q.db.QueryRow(ctx, createBatchOrder, arg.BatchID, arg.OrderID)
	var i BatchOrder
	err := row.Scan(
		&i.ID,
		&i.BatchID,
		&i.OrderID,
		&i.CreatedAt,
	)
	return i, err
}
