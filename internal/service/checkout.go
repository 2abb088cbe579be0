package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sekolah-catering/api/internal/cart"
	"github.com/sekolah-catering/api/internal/database"
	"github.com/sekolah-catering/api/internal/events"
	"github.com/sekolah-catering/api/internal/payment"
)

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInvalidDeliveryDate = errors.New("invalid delivery_date")
	// ErrPaymentSession means the order was committed but no token was issued.
	ErrPaymentSession = errors.New("payment session could not be created")
)

// CheckoutStore defines the DB methods needed to submit a cart.
// Satisfied by *database.Queries (and its WithTx variant).
type CheckoutStore interface {
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderLineItem(ctx context.Context, arg database.CreateOrderLineItemParams) (database.OrderLineItem, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	UpdateOrderPaymentSession(ctx context.Context, arg database.UpdateOrderPaymentSessionParams) (database.Order, error)
}

// NewCheckoutStore creates a CheckoutStore from a DBTX (pool or tx).
type NewCheckoutStore func(db database.DBTX) CheckoutStore

type CheckoutRequest struct {
	User  database.User
	Cart  *cart.Cart
	Notes string
}

type CheckoutResult struct {
	Order   database.Order
	Lines   []database.OrderLineItem
	Session *payment.Session
}

type CheckoutService struct {
	pool        TxBeginner
	newStore    NewCheckoutStore
	payments    PaymentCreator
	publisher   events.Publisher
	legacyItems bool
	log         *zap.Logger
	now         func() time.Time
}

// NewCheckoutService creates a CheckoutService. legacyItems also writes one
// order_items row per line for older readers.
func NewCheckoutService(pool TxBeginner, newStore NewCheckoutStore, payments PaymentCreator, publisher events.Publisher, legacyItems bool, log *zap.Logger) *CheckoutService {
	return &CheckoutService{
		pool:        pool,
		newStore:    newStore,
		payments:    payments,
		publisher:   publisher,
		legacyItems: legacyItems,
		log:         log,
		now:         time.Now,
	}
}

type preparedLine struct {
	item     cart.Item
	delivery pgtype.Date
}

// Checkout writes the cart as one order and requests a payment token for it.
//
// When the token request fails after the order is committed, the result still
// carries the order and the error wraps ErrPaymentSession, so callers can offer
// a retry instead of creating a second order.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if req.Cart == nil || req.Cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	lines := make([]preparedLine, 0, len(req.Cart.Items))
	for i, item := range req.Cart.Items {
		d, err := time.Parse("2006-01-02", item.DeliveryDate)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidDeliveryDate)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, cart.ErrInvalidQuantity)
		}
		lines = append(lines, preparedLine{item: item, delivery: pgtype.Date{Time: d, Valid: true}})
	}

	now := s.now()
	total := req.Cart.TotalAmount()
	orderNumber := payment.NewGatewayOrderID(payment.OrderPrefix, now)

	result, err := s.createOrderTx(ctx, req, lines, orderNumber, total, now)
	if err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, orderEvent(events.TypeOrderCreated, result.Order, req.User.Email, now)); err != nil {
		s.log.Warn("publish order.created", zap.String("order_number", orderNumber), zap.Error(err))
	}

	sess, err := s.payments.CreatePayment(ctx, payment.CreatePaymentRequest{
		OrderID:         orderNumber,
		Amount:          total,
		CustomerDetails: customerFor(req.User),
		ItemDetails:     gatewayItems(lines),
	})
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrPaymentSession, err)
	}

	order, err := s.saveSession(ctx, result.Order, sess.Token)
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrPaymentSession, err)
	}
	result.Order = order
	result.Session = sess
	return result, nil
}

func (s *CheckoutService) createOrderTx(ctx context.Context, req CheckoutRequest, lines []preparedLine, orderNumber string, total decimal.Decimal, now time.Time) (*CheckoutResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	orderDate := pgtype.Date{Time: dateOnly(now.In(jakarta)), Valid: true}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		UserID:         req.User.ID,
		OrderNumber:    orderNumber,
		TotalAmount:    decimalToNumeric(total),
		OrderDate:      orderDate,
		ParentNotes:    textOrNull(req.Notes),
		GatewayOrderID: pgtype.Text{String: orderNumber, Valid: true},
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	created := make([]database.OrderLineItem, 0, len(lines))
	for _, l := range lines {
		li, err := store.CreateOrderLineItem(ctx, database.CreateOrderLineItemParams{
			OrderID:      order.ID,
			MenuItemID:   l.item.MenuItemID,
			ChildID:      l.item.ChildID,
			ChildName:    l.item.ChildName,
			ChildClass:   textOrNull(l.item.ChildClass),
			DeliveryDate: l.delivery,
			OrderDate:    orderDate,
			Quantity:     l.item.Quantity,
			UnitPrice:    decimalToNumeric(l.item.UnitPrice),
			Notes:        textOrNull(l.item.Notes),
		})
		if err != nil {
			return nil, fmt.Errorf("create order line item: %w", err)
		}
		created = append(created, li)

		if s.legacyItems {
			if _, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
				OrderID:    order.ID,
				MenuItemID: l.item.MenuItemID,
				Quantity:   l.item.Quantity,
				Price:      decimalToNumeric(l.item.UnitPrice),
			}); err != nil {
				return nil, fmt.Errorf("create order item: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &CheckoutResult{Order: order, Lines: created}, nil
}

func (s *CheckoutService) saveSession(ctx context.Context, order database.Order, token string) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return order, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	updated, err := s.newStore(tx).UpdateOrderPaymentSession(ctx, database.UpdateOrderPaymentSessionParams{
		ID:             order.ID,
		GatewayOrderID: order.GatewayOrderID,
		SnapToken:      pgtype.Text{String: token, Valid: true},
	})
	if err != nil {
		return order, fmt.Errorf("save payment token: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return order, fmt.Errorf("commit tx: %w", err)
	}
	return updated, nil
}

func gatewayItems(lines []preparedLine) []payment.Item {
	items := make([]payment.Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, payment.Item{
			ID:       l.item.MenuItemID.String(),
			Name:     lineItemName(l.item.MenuItemName, l.item.ChildName, l.delivery),
			Price:    l.item.UnitPrice.Round(0).IntPart(),
			Quantity: l.item.Quantity,
		})
	}
	return items
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
