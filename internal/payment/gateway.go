// Package payment talks to the payment gateway and owns the payment status rules.
package payment

import (
	"context"
	"fmt"
)

// Customer is the payer block sent to the gateway.
type Customer struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Item is one gateway line. Price is in whole rupiah.
type Item struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int32  `json:"quantity"`
}

// SessionRequest asks the gateway for a pop-up session.
type SessionRequest struct {
	OrderID  string
	Amount   int64
	Customer Customer
	Items    []Item
}

// Session is what the browser needs to open the pop-up.
type Session struct {
	Token       string `json:"snap_token"`
	RedirectURL string `json:"redirect_url"`
}

// Gateway creates payment sessions. Implemented by *MidtransGateway.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}

// GatewayError is a non-2xx or transport failure reported by the gateway.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("Midtrans API error: %d - %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("Midtrans API call failed: %s", e.Message)
}
