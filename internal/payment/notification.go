package payment

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"github.com/sekolah-catering/api/internal/database"
)

var (
	ErrInvalidSignature  = errors.New("invalid notification signature")
	ErrUnhandledStatus   = errors.New("unhandled transaction status")
	ErrInvalidTransition = errors.New("invalid payment status transition")
)

// Notification is the HTTP notification body Midtrans posts after a status change.
type Notification struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	PaymentType       string `json:"payment_type"`
	SignatureKey      string `json:"signature_key"`
}

// Signature computes SHA512(order_id + status_code + gross_amount + server_key) in hex.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks n.SignatureKey against the server key.
func VerifySignature(n Notification, serverKey string) error {
	if serverKey == "" {
		return ErrServerKeyMissing
	}
	want := Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	if subtle.ConstantTimeCompare([]byte(want), []byte(n.SignatureKey)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}

// StatusFromNotification maps a gateway transaction status to our payment status.
func StatusFromNotification(n Notification) (database.PaymentStatus, error) {
	switch n.TransactionStatus {
	case "capture":
		switch n.FraudStatus {
		case "", "accept":
			return database.PaymentStatusPaid, nil
		case "challenge":
			return database.PaymentStatusAwaitingConfirmation, nil
		default:
			return database.PaymentStatusFailed, nil
		}
	case "settlement":
		return database.PaymentStatusPaid, nil
	case "pending":
		return database.PaymentStatusAwaitingConfirmation, nil
	case "deny", "cancel", "expire", "failure":
		return database.PaymentStatusFailed, nil
	}
	return "", ErrUnhandledStatus
}
