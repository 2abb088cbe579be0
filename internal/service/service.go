// Package service holds the order and payment reconciliation rules.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/sekolah-catering/api/internal/database"
	"github.com/sekolah-catering/api/internal/events"
	"github.com/sekolah-catering/api/internal/payment"
)

// Errors shared by the order services.
var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrAlreadyPaid          = errors.New("order is already paid")
	ErrOrderCancelled       = errors.New("order is cancelled")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PaymentCreator requests a gateway session. Satisfied by *payment.Service.
type PaymentCreator interface {
	CreatePayment(ctx context.Context, req payment.CreatePaymentRequest) (*payment.Session, error)
}

var jakarta = mustLoadLocation("Asia/Jakarta")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("WIB", 7*60*60)
	}
	return loc
}

// customerFor builds gateway customer details from a profile.
func customerFor(u database.User) *payment.Customer {
	c := &payment.Customer{
		FirstName: u.FullName,
		Email:     u.Email,
		Phone:     u.Phone.String,
	}
	if c.FirstName == "" {
		if local, _, ok := strings.Cut(u.Email, "@"); ok && local != "" {
			c.FirstName = local
		}
	}
	return c
}

// childNames returns distinct child names in first-seen order.
func childNames(rows []database.ListLineItemsByOrderIDsRow) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range rows {
		n := r.OrderLineItem.ChildName
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	return names
}

func lineItemName(menu, child string, delivery pgtype.Date) string {
	if !delivery.Valid {
		return menu + " - " + child
	}
	return menu + " - " + child + " (" + delivery.Time.Format("2006-01-02") + ")"
}

func orderEvent(typ string, o database.Order, email string, now time.Time) events.Event {
	e := events.Event{
		Type:          typ,
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		Email:         email,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		TotalAmount:   numericToDecimal(o.TotalAmount).StringFixed(2),
		OccurredAt:    now,
	}
	if o.PaymentMethod.Valid {
		e.PaymentMethod = string(o.PaymentMethod.PaymentMethod)
	}
	return e
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func uuidsOf(orders []database.Order) []uuid.UUID {
	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return ids
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
