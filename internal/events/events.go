// Package events carries order and payment changes to other processes.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	TypeOrderCreated         = "order.created"
	TypePaymentStatusChanged = "payment.status_changed"
	TypePaymentSettled       = "payment.settled"
	TypeOrderStatusChanged   = "order.status_changed"
)

// Event is the JSON payload written to the bus and pushed to websocket clients.
type Event struct {
	Type          string    `json:"type"`
	OrderID       uuid.UUID `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	UserID        uuid.UUID `json:"user_id"`
	Email         string    `json:"email,omitempty"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	TotalAmount   string    `json:"total_amount"`
	ChangeAmount  string    `json:"change_amount,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
