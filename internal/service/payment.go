package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sekolah-catering/api/internal/database"
	"github.com/sekolah-catering/api/internal/events"
	"github.com/sekolah-catering/api/internal/payment"
)

var (
	ErrInvalidOutcome  = errors.New("invalid payment outcome")
	ErrNoPayableOrders = errors.New("no payable orders selected")
	ErrPaymentGateway  = errors.New("payment gateway request failed")
)

// PaymentStore defines the DB methods used by PaymentService.
// Satisfied by *database.Queries (and its WithTx variant).
type PaymentStore interface {
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrdersByGatewayIDForUpdate(ctx context.Context, gatewayOrderID string) ([]database.Order, error)
	ListPayableOrdersByIDs(ctx context.Context, arg database.ListPayableOrdersByIDsParams) ([]database.Order, error)
	ListLineItemsByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) ([]database.ListLineItemsByOrderIDsRow, error)
	UpdateOrderPaymentSession(ctx context.Context, arg database.UpdateOrderPaymentSessionParams) (database.Order, error)
	UpdateOrderPaymentStatus(ctx context.Context, arg database.UpdateOrderPaymentStatusParams) (database.Order, error)
	CreatePaymentNotification(ctx context.Context, arg database.CreatePaymentNotificationParams) (database.PaymentNotification, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
}

type NewPaymentStore func(db database.DBTX) PaymentStore

type PaymentService struct {
	pool      TxBeginner
	newStore  NewPaymentStore
	payments  PaymentCreator
	publisher events.Publisher
	serverKey string
	log       *zap.Logger
	now       func() time.Time
}

func NewPaymentService(pool TxBeginner, newStore NewPaymentStore, payments PaymentCreator, publisher events.Publisher, serverKey string, log *zap.Logger) *PaymentService {
	return &PaymentService{
		pool:      pool,
		newStore:  newStore,
		payments:  payments,
		publisher: publisher,
		serverKey: serverKey,
		log:       log,
		now:       time.Now,
	}
}

// --- Pop-up outcome ---

const (
	OutcomeSuccess = "success"
	OutcomePending = "pending"
	OutcomeError   = "error"
	OutcomeClosed  = "closed"
)

// OutcomeNotice is what the client shows after the pop-up reports back.
type OutcomeNotice struct {
	Outcome   string `json:"outcome"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	ClearCart bool   `json:"clear_cart"`
}

var outcomeNotices = map[string]OutcomeNotice{
	OutcomeSuccess: {OutcomeSuccess, "Pembayaran Berhasil!", "Pesanan Anda telah dibayar dan akan segera diproses.", true},
	OutcomePending: {OutcomePending, "Menunggu Pembayaran", "Silakan selesaikan pembayaran Anda.", true},
	OutcomeError:   {OutcomeError, "Pembayaran Gagal", "Terjadi kesalahan saat memproses pembayaran. Silakan coba lagi.", false},
	OutcomeClosed:  {OutcomeClosed, "Pembayaran Dibatalkan", "Anda menutup jendela pembayaran sebelum selesai.", false},
}

// Outcome maps a client-reported pop-up outcome to its notice. It never
// touches payment_status; gateway notifications own that.
func Outcome(outcome string) (OutcomeNotice, error) {
	n, ok := outcomeNotices[outcome]
	if !ok {
		return OutcomeNotice{}, ErrInvalidOutcome
	}
	return n, nil
}

// --- Retry ---

type RetryResult struct {
	Order   database.Order
	Session payment.Session
	Reused  bool
}

// RetryPayment returns the stored token when there is one. Otherwise, or when
// the last session failed, it issues a fresh gateway order id and token and a
// failed order goes back to pending.
func (s *PaymentService) RetryPayment(ctx context.Context, orderID, callerID uuid.UUID, staff bool) (*RetryResult, error) {
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
	if !staff && order.UserID != callerID {
		return nil, ErrOrderNotFound
	}
	if order.PaymentStatus == database.PaymentStatusPaid {
		return nil, ErrAlreadyPaid
	}
	if order.Status == database.OrderStatusCancelled {
		return nil, ErrOrderCancelled
	}

	// a failed session's token is expired at the gateway
	if order.SnapToken.Valid && order.SnapToken.String != "" && order.PaymentStatus != database.PaymentStatusFailed {
		return &RetryResult{Order: order, Session: payment.Session{Token: order.SnapToken.String}, Reused: true}, nil
	}

	owner, err := store.GetUserByID(ctx, order.UserID)
	if err != nil {
		return nil, fmt.Errorf("get order owner: %w", err)
	}
	lines, err := store.ListLineItemsByOrderIDs(ctx, []uuid.UUID{order.ID})
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}

	gatewayID := payment.NewGatewayOrderID(payment.RetryPrefix, s.now())
	sess, err := s.payments.CreatePayment(ctx, payment.CreatePaymentRequest{
		OrderID:         gatewayID,
		Amount:          numericToDecimal(order.TotalAmount),
		CustomerDetails: customerFor(owner),
		ItemDetails:     lineGatewayItems(lines, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentGateway, err)
	}

	if order.PaymentStatus == database.PaymentStatusFailed {
		if _, err := payment.Transition(order.PaymentStatus, database.PaymentStatusPending); err != nil {
			return nil, err
		}
		if _, err := store.UpdateOrderPaymentStatus(ctx, database.UpdateOrderPaymentStatusParams{
			ID:            order.ID,
			PaymentStatus: database.PaymentStatusPending,
		}); err != nil {
			return nil, fmt.Errorf("reset payment status: %w", err)
		}
	}

	order, err = store.UpdateOrderPaymentSession(ctx, database.UpdateOrderPaymentSessionParams{
		ID:             order.ID,
		GatewayOrderID: pgtype.Text{String: gatewayID, Valid: true},
		SnapToken:      pgtype.Text{String: sess.Token, Valid: true},
	})
	if err != nil {
		return nil, fmt.Errorf("save payment session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &RetryResult{Order: order, Session: *sess}, nil
}

// --- Gateway notification ---

type NotificationResult struct {
	Status  database.PaymentStatus
	Updated []database.Order
}

// HandleNotification verifies a gateway notification, records it, and moves
// every order behind its gateway id through the payment status machine.
// Transitions the machine rejects are logged and skipped.
func (s *PaymentService) HandleNotification(ctx context.Context, n payment.Notification, payload []byte) (*NotificationResult, error) {
	if err := payment.VerifySignature(n, s.serverKey); err != nil {
		return nil, err
	}

	next, statusErr := payment.StatusFromNotification(n)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	if _, err := store.CreatePaymentNotification(ctx, database.CreatePaymentNotificationParams{
		GatewayOrderID:    n.OrderID,
		TransactionStatus: n.TransactionStatus,
		StatusCode:        n.StatusCode,
		GrossAmount:       n.GrossAmount,
		PaymentType:       textOrNull(n.PaymentType),
		FraudStatus:       textOrNull(n.FraudStatus),
		Payload:           payload,
	}); err != nil {
		return nil, fmt.Errorf("record notification: %w", err)
	}

	if statusErr != nil {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit tx: %w", err)
		}
		s.log.Warn("unhandled transaction status",
			zap.String("gateway_order_id", n.OrderID),
			zap.String("transaction_status", n.TransactionStatus))
		return &NotificationResult{}, nil
	}

	orders, err := store.ListOrdersByGatewayIDForUpdate(ctx, n.OrderID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if len(orders) == 0 {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit tx: %w", err)
		}
		s.log.Warn("payment notification for unknown gateway id",
			zap.String("gateway_order_id", n.OrderID),
			zap.String("transaction_status", n.TransactionStatus))
		return &NotificationResult{Status: next}, nil
	}

	if next == database.PaymentStatusPaid {
		if expected, ok := grossMatches(n.GrossAmount, orders); !ok {
			if err := tx.Commit(ctx); err != nil {
				return nil, fmt.Errorf("commit tx: %w", err)
			}
			s.log.Error("gross amount mismatch, payment not applied",
				zap.String("gateway_order_id", n.OrderID),
				zap.String("gross_amount", n.GrossAmount),
				zap.String("expected", expected.String()),
				zap.Int("orders", len(orders)))
			return &NotificationResult{Status: next}, nil
		}
	}

	method := database.NullPaymentMethod{}
	if next == database.PaymentStatusPaid {
		method = database.NullPaymentMethod{PaymentMethod: database.PaymentMethodMidtrans, Valid: true}
	}

	result := &NotificationResult{Status: next}
	emails := make(map[uuid.UUID]string)
	for _, o := range orders {
		changed, err := payment.Transition(o.PaymentStatus, next)
		if err != nil {
			s.log.Warn("skip payment transition",
				zap.String("order_number", o.OrderNumber),
				zap.String("gateway_order_id", n.OrderID),
				zap.Error(err))
			continue
		}
		if !changed {
			continue
		}
		updated, err := store.UpdateOrderPaymentStatus(ctx, database.UpdateOrderPaymentStatusParams{
			ID:            o.ID,
			PaymentStatus: next,
			PaymentMethod: method,
		})
		if err != nil {
			return nil, fmt.Errorf("update payment status: %w", err)
		}
		if _, ok := emails[o.UserID]; !ok {
			if u, err := store.GetUserByID(ctx, o.UserID); err == nil {
				emails[o.UserID] = u.Email
			}
		}
		result.Updated = append(result.Updated, updated)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	now := s.now()
	for _, o := range result.Updated {
		if err := s.publisher.Publish(ctx, orderEvent(events.TypePaymentStatusChanged, o, emails[o.UserID], now)); err != nil {
			s.log.Warn("publish payment.status_changed", zap.String("order_number", o.OrderNumber), zap.Error(err))
		}
	}
	s.log.Info("payment notification applied",
		zap.String("gateway_order_id", n.OrderID),
		zap.String("status", string(next)),
		zap.Int("orders", len(orders)),
		zap.Int("updated", len(result.Updated)))
	return result, nil
}

// grossMatches reports whether a notification's gross amount equals what the
// session charged for orders: their combined total in whole rupiah.
func grossMatches(gross string, orders []database.Order) (decimal.Decimal, bool) {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(numericToDecimal(o.TotalAmount))
	}
	expected := total.Round(0)
	paid, err := decimal.NewFromString(gross)
	if err != nil {
		return expected, false
	}
	return expected, paid.Equal(expected)
}

// --- Batch payment ---

type BatchResult struct {
	BatchID string
	Orders  []database.Order
	Total   decimal.Decimal
	Session *payment.Session
}

// BatchPay opens one gateway session for several of the caller's unpaid orders.
// Orders that are not the caller's or not payable are dropped silently.
func (s *PaymentService) BatchPay(ctx context.Context, userID uuid.UUID, orderIDs []uuid.UUID) (*BatchResult, error) {
	if len(orderIDs) == 0 {
		return nil, ErrNoPayableOrders
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	orders, err := store.ListPayableOrdersByIDs(ctx, database.ListPayableOrdersByIDsParams{
		UserID: userID,
		Ids:    orderIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("list payable orders: %w", err)
	}
	if len(orders) == 0 {
		return nil, ErrNoPayableOrders
	}

	owner, err := store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	lines, err := store.ListLineItemsByOrderIDs(ctx, uuidsOf(orders))
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}

	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(numericToDecimal(o.TotalAmount))
	}

	var items []payment.Item
	for _, o := range orders {
		var own []database.ListLineItemsByOrderIDsRow
		for _, l := range lines {
			if l.OrderLineItem.OrderID == o.ID {
				own = append(own, l)
			}
		}
		items = append(items, lineGatewayItems(own, o.OrderNumber)...)
	}

	batchID := payment.NewGatewayOrderID(payment.BatchPrefix, s.now())
	sess, err := s.payments.CreatePayment(ctx, payment.CreatePaymentRequest{
		OrderID:         batchID,
		Amount:          total,
		CustomerDetails: customerFor(owner),
		ItemDetails:     items,
		BatchOrderIDs:   uuidsOf(orders),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentGateway, err)
	}

	// read-only; commit releases the snapshot
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &BatchResult{BatchID: batchID, Orders: orders, Total: total, Session: sess}, nil
}

// lineGatewayItems maps stored line items to gateway items. With an order
// number the ids become "<order>-<n>" so several orders can share one session.
func lineGatewayItems(lines []database.ListLineItemsByOrderIDsRow, orderNumber string) []payment.Item {
	items := make([]payment.Item, 0, len(lines))
	for i, l := range lines {
		id := l.OrderLineItem.ID.String()
		if orderNumber != "" {
			id = fmt.Sprintf("%s-%d", orderNumber, i+1)
		}
		items = append(items, payment.Item{
			ID:       id,
			Name:     lineItemName(l.MenuItemName, l.OrderLineItem.ChildName, l.OrderLineItem.DeliveryDate),
			Price:    numericToDecimal(l.OrderLineItem.UnitPrice).Round(0).IntPart(),
			Quantity: l.OrderLineItem.Quantity,
		})
	}
	return items
}
