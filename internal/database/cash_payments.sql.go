package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createCashPayment = `-- name: CreateCashPayment :one
INSERT INTO cash_payments (order_id, cashier_id, amount, received_amount, change_amount, payment_date, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, order_id, cashier_id, amount, received_amount, change_amount, payment_date, notes`

type CreateCashPaymentParams struct {
	OrderID        uuid.UUID      `json:"order_id"`
	CashierID      uuid.UUID      `json:"cashier_id"`
	Amount         pgtype.Numeric `json:"amount"`
	ReceivedAmount pgtype.Numeric `json:"received_amount"`
	ChangeAmount   pgtype.Numeric `json:"change_amount"`
	PaymentDate    time.Time      `json:"payment_date"`
	Notes          pgtype.Text    `json:"notes"`
}

func (q *Queries) CreateCashPayment(ctx context.Context, arg CreateCashPaymentParams) (CashPayment, error) {
	row := q.db.QueryRow(ctx, createCashPayment,
		arg.OrderID,
		arg.CashierID,
		arg.Amount,
		arg.ReceivedAmount,
		arg.ChangeAmount,
		arg.PaymentDate,
		arg.Notes,
	)
	var i CashPayment
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.CashierID,
		&i.Amount,
		&i.ReceivedAmount,
		&i.ChangeAmount,
		&i.PaymentDate,
		&i.Notes,
	)
	return i, err
}

const listCashPayments = `-- name: ListCashPayments :many
SELECT cp.id, cp.order_id, cp.cashier_id, cp.amount, cp.received_amount, cp.change_amount, cp.payment_date, cp.notes,
    o.order_number,
    u.full_name AS cashier_name,
    COALESCE((SELECT string_agg(DISTINCT li.child_name, ', ') FROM order_line_items li WHERE li.order_id = o.id), '')::text AS child_names
FROM cash_payments cp
JOIN orders o ON o.id = cp.order_id
JOIN users u ON u.id = cp.cashier_id
WHERE cp.payment_date >= $1 AND cp.payment_date < $2
ORDER BY cp.payment_date DESC`

type ListCashPaymentsParams struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type ListCashPaymentsRow struct {
	CashPayment CashPayment `json:"cash_payment"`
	OrderNumber string      `json:"order_number"`
	CashierName string      `json:"cashier_name"`
	ChildNames  string      `json:"child_names"`
}

func (q *Queries) ListCashPayments(ctx context.Context, arg ListCashPaymentsParams) ([]ListCashPaymentsRow, error) {
	rows, err := q.db.Query(ctx, listCashPayments, arg.StartTime, arg.EndTime)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListCashPaymentsRow{}
	for rows.Next() {
		var i ListCashPaymentsRow
		if err := rows.Scan(
			&i.CashPayment.ID,
			&i.CashPayment.OrderID,
			&i.CashPayment.CashierID,
			&i.CashPayment.Amount,
			&i.CashPayment.ReceivedAmount,
			&i.CashPayment.ChangeAmount,
			&i.CashPayment.PaymentDate,
			&i.CashPayment.Notes,
			&i.OrderNumber,
			&i.CashierName,
			&i.ChildNames,
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
