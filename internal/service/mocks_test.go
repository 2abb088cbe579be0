package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sekolah-catering/api/internal/database"
	"github.com/sekolah-catering/api/internal/events"
	"github.com/sekolah-catering/api/internal/payment"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	commits     int
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.commits++
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockStore implements CheckoutStore, PaymentStore and SettlementStore.
// A nil function field panics when called.
type mockStore struct {
	createOrderFn                    func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderLineItemFn            func(ctx context.Context, arg database.CreateOrderLineItemParams) (database.OrderLineItem, error)
	createOrderItemFn                func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	updateOrderPaymentSessionFn      func(ctx context.Context, arg database.UpdateOrderPaymentSessionParams) (database.Order, error)
	getOrderForUpdateFn              func(ctx context.Context, id uuid.UUID) (database.Order, error)
	listOrdersByGatewayIDForUpdateFn func(ctx context.Context, gatewayOrderID string) ([]database.Order, error)
	listPayableOrdersByIDsFn         func(ctx context.Context, arg database.ListPayableOrdersByIDsParams) ([]database.Order, error)
	listLineItemsByOrderIDsFn        func(ctx context.Context, orderIDs []uuid.UUID) ([]database.ListLineItemsByOrderIDsRow, error)
	updateOrderPaymentStatusFn       func(ctx context.Context, arg database.UpdateOrderPaymentStatusParams) (database.Order, error)
	createPaymentNotificationFn      func(ctx context.Context, arg database.CreatePaymentNotificationParams) (database.PaymentNotification, error)
	getUserByIDFn                    func(ctx context.Context, id uuid.UUID) (database.User, error)
	createCashPaymentFn              func(ctx context.Context, arg database.CreateCashPaymentParams) (database.CashPayment, error)
	updateOrderNotesFn               func(ctx context.Context, arg database.UpdateOrderNotesParams) error
}

func (m *mockStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockStore) CreateOrderLineItem(ctx context.Context, arg database.CreateOrderLineItemParams) (database.OrderLineItem, error) {
	return m.createOrderLineItemFn(ctx, arg)
}
func (m *mockStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}
func (m *mockStore) UpdateOrderPaymentSession(ctx context.Context, arg database.UpdateOrderPaymentSessionParams) (database.Order, error) {
	return m.updateOrderPaymentSessionFn(ctx, arg)
}
func (m *mockStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderForUpdateFn(ctx, id)
}
func (m *mockStore) ListOrdersByGatewayIDForUpdate(ctx context.Context, gatewayOrderID string) ([]database.Order, error) {
	return m.listOrdersByGatewayIDForUpdateFn(ctx, gatewayOrderID)
}
func (m *mockStore) ListPayableOrdersByIDs(ctx context.Context, arg database.ListPayableOrdersByIDsParams) ([]database.Order, error) {
	return m.listPayableOrdersByIDsFn(ctx, arg)
}
func (m *mockStore) ListLineItemsByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) ([]database.ListLineItemsByOrderIDsRow, error) {
	return m.listLineItemsByOrderIDsFn(ctx, orderIDs)
}
func (m *mockStore) UpdateOrderPaymentStatus(ctx context.Context, arg database.UpdateOrderPaymentStatusParams) (database.Order, error) {
	return m.updateOrderPaymentStatusFn(ctx, arg)
}
func (m *mockStore) CreatePaymentNotification(ctx context.Context, arg database.CreatePaymentNotificationParams) (database.PaymentNotification, error) {
	return m.createPaymentNotificationFn(ctx, arg)
}
func (m *mockStore) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	return m.getUserByIDFn(ctx, id)
}
func (m *mockStore) CreateCashPayment(ctx context.Context, arg database.CreateCashPaymentParams) (database.CashPayment, error) {
	return m.createCashPaymentFn(ctx, arg)
}
func (m *mockStore) UpdateOrderNotes(ctx context.Context, arg database.UpdateOrderNotesParams) error {
	return m.updateOrderNotesFn(ctx, arg)
}

// mockPayments implements PaymentCreator.
type mockPayments struct {
	calls []payment.CreatePaymentRequest
	sess  *payment.Session
	err   error
}

func (m *mockPayments) CreatePayment(ctx context.Context, req payment.CreatePaymentRequest) (*payment.Session, error) {
	m.calls = append(m.calls, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.sess, nil
}

// recordingPublisher implements events.Publisher.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

// --- Test helpers ---

var nopLog = zap.NewNop()

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func testUser() database.User {
	return database.User{
		ID:       uuid.New(),
		Email:    "ibu.sari@example.com",
		FullName: "Sari Wulandari",
		Phone:    pgtype.Text{String: "081234000111", Valid: true},
		Role:     database.UserRoleParent,
	}
}

func pendingOrder(userID uuid.UUID, total string) database.Order {
	return database.Order{
		ID:             uuid.New(),
		UserID:         userID,
		OrderNumber:    "ORDER-1760857200000-k3j9x0abc",
		TotalAmount:    makeNumeric(total),
		Status:         database.OrderStatusPending,
		PaymentStatus:  database.PaymentStatusPending,
		GatewayOrderID: pgtype.Text{String: "ORDER-1760857200000-k3j9x0abc", Valid: true},
	}
}

func lineRow(orderID uuid.UUID, menu, child, price string, qty int32) database.ListLineItemsByOrderIDsRow {
	return database.ListLineItemsByOrderIDsRow{
		OrderLineItem: database.OrderLineItem{
			ID:           uuid.New(),
			OrderID:      orderID,
			MenuItemID:   uuid.New(),
			ChildID:      uuid.New(),
			ChildName:    child,
			DeliveryDate: pgtype.Date{Time: mustDate("2026-10-20"), Valid: true},
			Quantity:     qty,
			UnitPrice:    makeNumeric(price),
		},
		MenuItemName: menu,
	}
}
