package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sekolah-catering/api/internal/database"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Errors returned by CreatePayment.
var (
	ErrOrderIDRequired   = errors.New("order id is required")
	ErrInvalidAmount     = errors.New("valid amount is required")
	ErrItemsMismatch     = errors.New("item details do not add up to the amount")
	ErrServerKeyMissing  = errors.New("midtrans server key not configured")
	ErrBatchMappingWrite = errors.New("failed to save batch mapping")

	ErrBatchIDFormat         = errors.New("batch payments need a BATCH gateway order id")
	ErrBatchOrdersNotPayable = errors.New("batch orders must be your own unpaid orders")
	ErrBatchAmountMismatch   = errors.New("amount does not match the batch total")
)

// DefaultCustomer fills any customer field the caller leaves empty.
var DefaultCustomer = Customer{
	FirstName: "Customer",
	Email:     "customer@example.com",
	Phone:     "08123456789",
}

// CreatePaymentRequest is the create-payment function body.
type CreatePaymentRequest struct {
	OrderID         string          `json:"orderId"`
	Amount          decimal.Decimal `json:"amount"`
	CustomerDetails *Customer       `json:"customerDetails"`
	ItemDetails     []Item          `json:"itemDetails"`
	BatchOrderIDs   []uuid.UUID     `json:"batchOrderIds"`
}

// BatchStore records which orders a batch gateway id pays for and checks
// that a caller may pay for them. Satisfied by *database.Queries.
type BatchStore interface {
	CreateBatchOrder(ctx context.Context, arg database.CreateBatchOrderParams) (database.BatchOrder, error)
	ListPayableOrdersByIDs(ctx context.Context, arg database.ListPayableOrdersByIDsParams) ([]database.Order, error)
}

// Service implements the create-payment function.
type Service struct {
	gateway   Gateway
	serverKey string
	batches   BatchStore
	log       *zap.Logger
}

// NewService creates a Service. batches may be nil, in which case batch
// mappings are skipped with a logged error.
func NewService(gateway Gateway, serverKey string, batches BatchStore, log *zap.Logger) *Service {
	return &Service{gateway: gateway, serverKey: serverKey, batches: batches, log: log}
}

func (req CreatePaymentRequest) validate() error {
	if req.OrderID == "" {
		return ErrOrderIDRequired
	}
	if !req.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// CreatePaymentFor is CreatePayment on behalf of an authenticated caller.
// A batch mapping is only accepted under a BATCH id, for orders the caller
// owns that are still pending, and for exactly their combined total.
func (s *Service) CreatePaymentFor(ctx context.Context, callerID uuid.UUID, req CreatePaymentRequest) (*Session, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if len(req.BatchOrderIDs) > 0 && s.batches != nil {
		if err := s.authorizeBatch(ctx, callerID, req); err != nil {
			s.log.Warn("rejected batch payment request",
				zap.String("order_id", req.OrderID),
				zap.String("user_id", callerID.String()),
				zap.Error(err))
			return nil, err
		}
	}
	return s.CreatePayment(ctx, req)
}

func (s *Service) authorizeBatch(ctx context.Context, callerID uuid.UUID, req CreatePaymentRequest) error {
	if !IsBatchID(req.OrderID) {
		return ErrBatchIDFormat
	}
	ids := make([]uuid.UUID, 0, len(req.BatchOrderIDs))
	seen := make(map[uuid.UUID]bool, len(req.BatchOrderIDs))
	for _, id := range req.BatchOrderIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	orders, err := s.batches.ListPayableOrdersByIDs(ctx, database.ListPayableOrdersByIDsParams{
		UserID: callerID,
		Ids:    ids,
	})
	if err != nil {
		return fmt.Errorf("list batch orders: %w", err)
	}
	if len(orders) != len(ids) {
		return ErrBatchOrdersNotPayable
	}

	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(numericAmount(o.TotalAmount))
	}
	if !req.Amount.Equal(total) {
		return ErrBatchAmountMismatch
	}
	return nil
}

func numericAmount(n pgtype.Numeric) decimal.Decimal {
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

// CreatePayment validates the request, records any batch mapping, then asks the
// gateway for a session token. Callers must have vetted BatchOrderIDs.
func (s *Service) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*Session, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if s.serverKey == "" {
		s.log.Error("midtrans server key not configured")
		return nil, ErrServerKeyMissing
	}

	amount := req.Amount.Round(0).IntPart()
	sessReq := SessionRequest{
		OrderID:  req.OrderID,
		Amount:   amount,
		Customer: MergeCustomer(req.CustomerDetails),
		Items:    req.ItemDetails,
	}
	if len(sessReq.Items) == 0 {
		sessReq.Items = []Item{{ID: req.OrderID, Name: "Payment", Price: amount, Quantity: 1}}
	}
	if sum := itemsTotal(sessReq.Items); sum != amount {
		s.log.Error("item details do not match gross amount",
			zap.String("order_id", req.OrderID),
			zap.Int64("amount", amount),
			zap.Int64("items_total", sum))
		return nil, ErrItemsMismatch
	}

	if len(req.BatchOrderIDs) > 0 {
		if err := s.recordBatch(ctx, req.OrderID, req.BatchOrderIDs); err != nil {
			return nil, err
		}
	}

	sess, err := s.gateway.CreateSession(ctx, sessReq)
	if err != nil {
		s.log.Error("create payment session",
			zap.String("order_id", req.OrderID),
			zap.Int64("amount", amount),
			zap.Error(err))
		return nil, err
	}

	s.log.Info("payment session created",
		zap.String("order_id", req.OrderID),
		zap.Int64("amount", amount),
		zap.Int("items", len(sessReq.Items)),
		zap.Int("batch_orders", len(req.BatchOrderIDs)))
	return sess, nil
}

func itemsTotal(items []Item) int64 {
	var sum int64
	for _, it := range items {
		sum += it.Price * int64(it.Quantity)
	}
	return sum
}

func (s *Service) recordBatch(ctx context.Context, batchID string, orderIDs []uuid.UUID) error {
	if s.batches == nil {
		s.log.Error("batch mapping store not configured, continuing without mapping",
			zap.String("batch_id", batchID),
			zap.Int("orders", len(orderIDs)))
		return nil
	}
	for _, id := range orderIDs {
		if _, err := s.batches.CreateBatchOrder(ctx, database.CreateBatchOrderParams{
			BatchID: batchID,
			OrderID: id,
		}); err != nil {
			return fmt.Errorf("%w: %w", ErrBatchMappingWrite, err)
		}
	}
	return nil
}

// MergeCustomer overlays the non-empty fields of c on DefaultCustomer.
func MergeCustomer(c *Customer) Customer {
	out := DefaultCustomer
	if c == nil {
		return out
	}
	if c.FirstName != "" {
		out.FirstName = c.FirstName
	}
	if c.Email != "" {
		out.Email = c.Email
	}
	if c.Phone != "" {
		out.Phone = c.Phone
	}
	return out
}

// FunctionError is the 500 body returned by the create-payment endpoint.
type FunctionError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
	Type    string `json:"type"`
}

// NewFunctionError classifies err for the create-payment error body.
func NewFunctionError(err error) FunctionError {
	fe := FunctionError{Error: err.Error(), Details: err.Error(), Type: "Error"}
	var gwErr *GatewayError
	switch {
	case errors.Is(err, ErrOrderIDRequired), errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrItemsMismatch),
		errors.Is(err, ErrBatchIDFormat), errors.Is(err, ErrBatchOrdersNotPayable),
		errors.Is(err, ErrBatchAmountMismatch):
		fe.Type = "ValidationError"
	case errors.Is(err, ErrServerKeyMissing):
		fe.Type = "ConfigurationError"
	case errors.Is(err, ErrBatchMappingWrite):
		fe.Error = ErrBatchMappingWrite.Error()
		fe.Type = "DatabaseError"
	case errors.As(err, &gwErr):
		fe.Type = "GatewayError"
	}
	return fe
}
