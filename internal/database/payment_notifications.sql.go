package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createPaymentNotification = `-- name: CreatePaymentNotification :one
INSERT INTO payment_notifications (gateway_order_id, transaction_status, status_code, gross_amount,
    payment_type, fraud_status, payload)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, gateway_order_id, transaction_status, status_code, gross_amount,
    payment_type, fraud_status, payload, received_at`

type CreatePaymentNotificationParams struct {
	GatewayOrderID    string      `json:"gateway_order_id"`
	TransactionStatus string      `json:"transaction_status"`
	StatusCode        string      `json:"status_code"`
	GrossAmount       string      `json:"gross_amount"`
	PaymentType       pgtype.Text `json:"payment_type"`
	FraudStatus       pgtype.Text `json:"fraud_status"`
	Payload           []byte      `json:"payload"`
}

func (q *Queries) CreatePaymentNotification(ctx context.Context, arg CreatePaymentNotificationParams) (PaymentNotification, error) {
	row := q.db.QueryRow(ctx, createPaymentNotification,
		arg.GatewayOrderID,
		arg.TransactionStatus,
		arg.StatusCode,
		arg.GrossAmount,
		arg.PaymentType,
		arg.FraudStatus,
		arg.Payload,
	)
	var i PaymentNotification
	err := row.Scan(
		&i.ID,
		&i.GatewayOrderID,
		&i.TransactionStatus,
		&i.StatusCode,
		&i.GrossAmount,
		&i.PaymentType,
		&i.FraudStatus,
		&i.Payload,
		&i.ReceivedAt,
	)
	return i, err
}
