package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sekolah-catering/api/internal/database"
	"github.com/sekolah-catering/api/internal/events"
)

var (
	ErrInsufficientTender = errors.New("Jumlah yang diterima kurang dari total pembayaran")
	ErrInvalidTender      = errors.New("received_amount must be > 0")
)

// SettlementStore defines the DB methods needed to record cashier payments.
// Satisfied by *database.Queries (and its WithTx variant).
type SettlementStore interface {
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListLineItemsByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) ([]database.ListLineItemsByOrderIDsRow, error)
	CreateCashPayment(ctx context.Context, arg database.CreateCashPaymentParams) (database.CashPayment, error)
	UpdateOrderPaymentStatus(ctx context.Context, arg database.UpdateOrderPaymentStatusParams) (database.Order, error)
	UpdateOrderNotes(ctx context.Context, arg database.UpdateOrderNotesParams) error
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
}

type NewSettlementStore func(db database.DBTX) SettlementStore

type SettlementService struct {
	pool      TxBeginner
	newStore  NewSettlementStore
	publisher events.Publisher
	log       *zap.Logger
	now       func() time.Time
}

func NewSettlementService(pool TxBeginner, newStore NewSettlementStore, publisher events.Publisher, log *zap.Logger) *SettlementService {
	return &SettlementService{
		pool:      pool,
		newStore:  newStore,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

type SettleCashRequest struct {
	OrderID   uuid.UUID
	CashierID uuid.UUID
	Received  decimal.Decimal
}

type SettlementResult struct {
	Order   database.Order
	Payment *database.CashPayment // nil for transfer
	Change  decimal.Decimal
}

// SettleCash records a cash payment with change and marks the order paid.
// The order row stays locked from the status check to the flip, so a gateway
// notification for the same order waits for this transaction.
func (s *SettlementService) SettleCash(ctx context.Context, req SettleCashRequest) (*SettlementResult, error) {
	if !req.Received.IsPositive() {
		return nil, ErrInvalidTender
	}
	return s.settle(ctx, req.OrderID, req.CashierID, database.PaymentMethodCash, &req.Received)
}

type MarkPaidRequest struct {
	OrderID   uuid.UUID
	CashierID uuid.UUID
	Method    string
}

// MarkPaid flips an order to paid for money collected outside the gateway.
// Cash is recorded as an exact-amount settlement; transfer leaves no row.
func (s *SettlementService) MarkPaid(ctx context.Context, req MarkPaidRequest) (*SettlementResult, error) {
	switch database.PaymentMethod(req.Method) {
	case database.PaymentMethodCash, database.PaymentMethodTransfer:
	default:
		return nil, ErrInvalidPaymentMethod
	}
	return s.settle(ctx, req.OrderID, req.CashierID, database.PaymentMethod(req.Method), nil)
}

func (s *SettlementService) settle(ctx context.Context, orderID, cashierID uuid.UUID, method database.PaymentMethod, received *decimal.Decimal) (*SettlementResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.PaymentStatus == database.PaymentStatusPaid {
		return nil, ErrAlreadyPaid
	}
	if order.Status == database.OrderStatusCancelled {
		return nil, ErrOrderCancelled
	}

	total := numericToDecimal(order.TotalAmount)
	tendered := total
	if received != nil {
		tendered = *received
	}
	if tendered.LessThan(total) {
		return nil, ErrInsufficientTender
	}
	change := tendered.Sub(total)

	result := &SettlementResult{Change: change}
	if method == database.PaymentMethodCash {
		lines, err := store.ListLineItemsByOrderIDs(ctx, []uuid.UUID{order.ID})
		if err != nil {
			return nil, fmt.Errorf("list line items: %w", err)
		}
		note := CashNote(order.OrderNumber, childNames(lines))

		cp, err := store.CreateCashPayment(ctx, database.CreateCashPaymentParams{
			OrderID:        order.ID,
			CashierID:      cashierID,
			Amount:         decimalToNumeric(total),
			ReceivedAmount: decimalToNumeric(tendered),
			ChangeAmount:   decimalToNumeric(change),
			PaymentDate:    s.now(),
			Notes:          textOrNull(note),
		})
		if err != nil {
			return nil, fmt.Errorf("create cash payment: %w", err)
		}
		result.Payment = &cp

		if err := store.UpdateOrderNotes(ctx, database.UpdateOrderNotesParams{
			ID:    order.ID,
			Notes: textOrNull(note),
		}); err != nil {
			return nil, fmt.Errorf("update order notes: %w", err)
		}
	}

	updated, err := store.UpdateOrderPaymentStatus(ctx, database.UpdateOrderPaymentStatusParams{
		ID:            order.ID,
		PaymentStatus: database.PaymentStatusPaid,
		PaymentMethod: database.NullPaymentMethod{PaymentMethod: method, Valid: true},
	})
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}
	result.Order = updated

	owner, err := store.GetUserByID(ctx, order.UserID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get order owner: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	e := orderEvent(events.TypePaymentSettled, updated, owner.Email, s.now())
	e.ChangeAmount = change.StringFixed(2)
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Warn("publish payment.settled", zap.String("order_number", updated.OrderNumber), zap.Error(err))
	}
	s.log.Info("order settled",
		zap.String("order_number", updated.OrderNumber),
		zap.String("method", string(method)),
		zap.String("cashier_id", cashierID.String()),
		zap.String("change", change.StringFixed(2)))
	return result, nil
}

// CashNote is the note stored with a cash settlement. It names the children on
// the order, or the order number when there are none.
func CashNote(orderNumber string, children []string) string {
	subject := orderNumber
	if len(children) > 0 {
		subject = strings.Join(children, ", ")
	}
	return "Pembayaran tunai untuk pesanan " + subject
}
