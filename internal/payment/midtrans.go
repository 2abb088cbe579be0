package payment

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// MidtransGateway creates Snap transactions.
type MidtransGateway struct {
	client snap.Client
}

// NewMidtransGateway builds a Snap client. env is "production" or anything else for sandbox.
// A zero timeout keeps the SDK default.
func NewMidtransGateway(serverKey, env string, timeout time.Duration) *MidtransGateway {
	g := &MidtransGateway{}
	g.client.New(serverKey, midtransEnv(env))
	if timeout > 0 {
		g.client.HttpClient = &midtrans.HttpClientImplementation{
			HttpClient: &http.Client{Timeout: timeout},
			Logger:     midtrans.GetDefaultLogger(midtransEnv(env)),
		}
	}
	return g
}

func midtransEnv(env string) midtrans.EnvironmentType {
	if strings.EqualFold(env, "production") {
		return midtrans.Production
	}
	return midtrans.Sandbox
}

func (g *MidtransGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := make([]midtrans.ItemDetails, len(req.Items))
	for i, it := range req.Items {
		items[i] = midtrans.ItemDetails{
			ID:    it.ID,
			Name:  truncateName(it.Name),
			Price: it.Price,
			Qty:   it.Quantity,
		}
	}

	resp, mErr := g.client.CreateTransaction(&snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: req.Amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.Customer.FirstName,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
		Items:      &items,
		CreditCard: &snap.CreditCardDetails{Secure: true},
	})
	if mErr != nil {
		return nil, &GatewayError{StatusCode: mErr.GetStatusCode(), Message: mErr.GetMessage()}
	}
	if resp == nil || resp.Token == "" {
		return nil, &GatewayError{Message: "Snap token tidak diterima"}
	}
	return &Session{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// Snap rejects item names longer than 50 characters.
func truncateName(name string) string {
	const max = 50
	r := []rune(name)
	if len(r) <= max {
		return name
	}
	return string(r[:max])
}
