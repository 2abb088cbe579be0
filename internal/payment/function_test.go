package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sekolah-catering/api/internal/database"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type mockGateway struct {
	createSessionFn func(ctx context.Context, req SessionRequest) (*Session, error)
	calls           []SessionRequest
}

func (m *mockGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	m.calls = append(m.calls, req)
	if m.createSessionFn != nil {
		return m.createSessionFn(ctx, req)
	}
	return &Session{Token: "snap-token", RedirectURL: "https://app.sandbox.midtrans.com/snap/v2/vtweb/snap-token"}, nil
}

type mockBatchStore struct {
	rows       []database.CreateBatchOrderParams
	err        error
	listPayFn  func(ctx context.Context, arg database.ListPayableOrdersByIDsParams) ([]database.Order, error)
	listedWith database.ListPayableOrdersByIDsParams
}

func (m *mockBatchStore) ListPayableOrdersByIDs(ctx context.Context, arg database.ListPayableOrdersByIDsParams) ([]database.Order, error) {
	m.listedWith = arg
	if m.listPayFn != nil {
		return m.listPayFn(ctx, arg)
	}
	return nil, nil
}

func (m *mockBatchStore) CreateBatchOrder(_ context.Context, arg database.CreateBatchOrderParams) (database.BatchOrder, error) {
	if m.err != nil {
		return database.BatchOrder{}, m.err
	}
	m.rows = append(m.rows, arg)
	return database.BatchOrder{ID: uuid.New(), BatchID: arg.BatchID, OrderID: arg.OrderID}, nil
}

func TestCreatePayment_Validation(t *testing.T) {
	gw := &mockGateway{}
	svc := NewService(gw, "server-key", nil, zap.NewNop())

	tests := []struct {
		name string
		req  CreatePaymentRequest
		want error
	}{
		{"missing order id", CreatePaymentRequest{Amount: decimal.NewFromInt(1000)}, ErrOrderIDRequired},
		{"zero amount", CreatePaymentRequest{OrderID: "ORDER-1", Amount: decimal.Zero}, ErrInvalidAmount},
		{"negative amount", CreatePaymentRequest{OrderID: "ORDER-1", Amount: decimal.NewFromInt(-5)}, ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePayment(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
	if len(gw.calls) != 0 {
		t.Errorf("gateway called %d times on invalid input", len(gw.calls))
	}
}

func TestCreatePayment_MissingServerKeyIsHardFailure(t *testing.T) {
	gw := &mockGateway{}
	svc := NewService(gw, "", nil, zap.NewNop())

	_, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{OrderID: "ORDER-1", Amount: decimal.NewFromInt(1000)})
	if !errors.Is(err, ErrServerKeyMissing) {
		t.Fatalf("got %v, want ErrServerKeyMissing", err)
	}
	if len(gw.calls) != 0 {
		t.Error("gateway should not be called without a server key")
	}
	if fe := NewFunctionError(err); fe.Type != "ConfigurationError" {
		t.Errorf("error type: got %q", fe.Type)
	}
}

func TestCreatePayment_AppliesDefaults(t *testing.T) {
	gw := &mockGateway{}
	svc := NewService(gw, "server-key", nil, zap.NewNop())

	sess, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{
		OrderID:         "ORDER-1",
		Amount:          decimal.NewFromInt(35000),
		CustomerDetails: &Customer{FirstName: "Siti"},
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if sess.Token != "snap-token" {
		t.Errorf("token: got %q", sess.Token)
	}

	got := gw.calls[0]
	if got.Customer.FirstName != "Siti" || got.Customer.Email != "customer@example.com" || got.Customer.Phone != "08123456789" {
		t.Errorf("customer: got %+v", got.Customer)
	}
	if len(got.Items) != 1 {
		t.Fatalf("items: got %d, want 1", len(got.Items))
	}
	want := Item{ID: "ORDER-1", Name: "Payment", Price: 35000, Quantity: 1}
	if got.Items[0] != want {
		t.Errorf("default item: got %+v, want %+v", got.Items[0], want)
	}
	if got.Amount != 35000 {
		t.Errorf("amount: got %d", got.Amount)
	}
}

func TestCreatePayment_ItemsMustAddUpToAmount(t *testing.T) {
	batches := &mockBatchStore{}
	gw := &mockGateway{}
	svc := NewService(gw, "server-key", batches, zap.NewNop())

	// 2 x 10000.50 rounds to 10001 per item but 20001 overall
	_, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{
		OrderID:       "BATCH-1",
		Amount:        decimal.RequireFromString("20001.00"),
		ItemDetails:   []Item{{ID: "m1", Name: "Nasi Uduk", Price: 10001, Quantity: 2}},
		BatchOrderIDs: []uuid.UUID{uuid.New()},
	})
	if !errors.Is(err, ErrItemsMismatch) {
		t.Fatalf("got %v, want ErrItemsMismatch", err)
	}
	if fe := NewFunctionError(err); fe.Type != "ValidationError" {
		t.Errorf("error type: got %q", fe.Type)
	}
	if len(gw.calls) != 0 || len(batches.rows) != 0 {
		t.Error("mismatched items must not reach the gateway or the batch mapping")
	}

	if _, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{
		OrderID:     "ORDER-1",
		Amount:      decimal.NewFromInt(20002),
		ItemDetails: []Item{{ID: "m1", Name: "Nasi Uduk", Price: 10001, Quantity: 2}},
	}); err != nil {
		t.Fatalf("matching items: %v", err)
	}
}

func TestCreatePayment_BatchMappingWrittenBeforeGateway(t *testing.T) {
	batches := &mockBatchStore{}
	var mappedAtCall int
	gw := &mockGateway{
		createSessionFn: func(ctx context.Context, req SessionRequest) (*Session, error) {
			mappedAtCall = len(batches.rows)
			return &Session{Token: "t"}, nil
		},
	}
	svc := NewService(gw, "server-key", batches, zap.NewNop())
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	_, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{
		OrderID:       "BATCH-1",
		Amount:        decimal.NewFromInt(50000),
		BatchOrderIDs: ids,
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if mappedAtCall != 2 {
		t.Errorf("mappings written before gateway call: got %d, want 2", mappedAtCall)
	}
	for i, row := range batches.rows {
		if row.BatchID != "BATCH-1" || row.OrderID != ids[i] {
			t.Errorf("row %d: got %+v", i, row)
		}
	}
}

func TestCreatePayment_BatchWithoutStoreContinues(t *testing.T) {
	gw := &mockGateway{}
	svc := NewService(gw, "server-key", nil, zap.NewNop())

	_, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{
		OrderID:       "BATCH-1",
		Amount:        decimal.NewFromInt(50000),
		BatchOrderIDs: []uuid.UUID{uuid.New()},
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if len(gw.calls) != 1 {
		t.Errorf("gateway calls: got %d, want 1", len(gw.calls))
	}
}

func TestCreatePayment_BatchStoreErrorAborts(t *testing.T) {
	gw := &mockGateway{}
	svc := NewService(gw, "server-key", &mockBatchStore{err: errors.New("insert failed")}, zap.NewNop())

	_, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{
		OrderID:       "BATCH-1",
		Amount:        decimal.NewFromInt(50000),
		BatchOrderIDs: []uuid.UUID{uuid.New()},
	})
	if !errors.Is(err, ErrBatchMappingWrite) {
		t.Fatalf("got %v, want ErrBatchMappingWrite", err)
	}
	if len(gw.calls) != 0 {
		t.Error("gateway should not be called when mapping fails")
	}
	if fe := NewFunctionError(err); fe.Type != "DatabaseError" {
		t.Errorf("error type: got %q", fe.Type)
	}
}

func orderWithTotal(id uuid.UUID, total string) database.Order {
	var n pgtype.Numeric
	_ = n.Scan(total)
	return database.Order{ID: id, TotalAmount: n, PaymentStatus: database.PaymentStatusPending}
}

func TestCreatePaymentFor_BatchOwnedAndExact(t *testing.T) {
	callerID := uuid.New()
	a, b := uuid.New(), uuid.New()
	batches := &mockBatchStore{
		listPayFn: func(ctx context.Context, arg database.ListPayableOrdersByIDsParams) ([]database.Order, error) {
			return []database.Order{orderWithTotal(a, "20000.00"), orderWithTotal(b, "15000.00")}, nil
		},
	}
	gw := &mockGateway{}
	svc := NewService(gw, "server-key", batches, zap.NewNop())

	_, err := svc.CreatePaymentFor(context.Background(), callerID, CreatePaymentRequest{
		OrderID:       "BATCH-1760857200000-abcdefghi",
		Amount:        decimal.NewFromInt(35000),
		BatchOrderIDs: []uuid.UUID{a, b, a},
	})
	if err != nil {
		t.Fatalf("CreatePaymentFor: %v", err)
	}
	if batches.listedWith.UserID != callerID || len(batches.listedWith.Ids) != 2 {
		t.Errorf("ownership lookup = %+v", batches.listedWith)
	}
	if len(gw.calls) != 1 || gw.calls[0].Amount != 35000 {
		t.Errorf("gateway calls = %+v", gw.calls)
	}
}

func TestCreatePaymentFor_RejectsUnvettedBatch(t *testing.T) {
	own := uuid.New()
	ownOnly := func(ctx context.Context, arg database.ListPayableOrdersByIDsParams) ([]database.Order, error) {
		var out []database.Order
		for _, id := range arg.Ids {
			if id == own {
				out = append(out, orderWithTotal(own, "35000"))
			}
		}
		return out, nil
	}

	tests := []struct {
		name string
		req  CreatePaymentRequest
		want error
	}{
		{"foreign order", CreatePaymentRequest{OrderID: "BATCH-1", Amount: decimal.NewFromInt(85000), BatchOrderIDs: []uuid.UUID{own, uuid.New()}}, ErrBatchOrdersNotPayable},
		{"underpaid", CreatePaymentRequest{OrderID: "BATCH-1", Amount: decimal.NewFromInt(1000), BatchOrderIDs: []uuid.UUID{own}}, ErrBatchAmountMismatch},
		{"hijacked order id", CreatePaymentRequest{OrderID: "ORDER-1760857200000-k3j9x0abc", Amount: decimal.NewFromInt(35000), BatchOrderIDs: []uuid.UUID{own}}, ErrBatchIDFormat},
		{"validation first", CreatePaymentRequest{OrderID: "BATCH-1", BatchOrderIDs: []uuid.UUID{own}}, ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := &mockBatchStore{listPayFn: ownOnly}
			gw := &mockGateway{}
			svc := NewService(gw, "server-key", batches, zap.NewNop())

			_, err := svc.CreatePaymentFor(context.Background(), uuid.New(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if fe := NewFunctionError(err); fe.Type != "ValidationError" {
				t.Errorf("error type: got %q", fe.Type)
			}
			if len(batches.rows) != 0 || len(gw.calls) != 0 {
				t.Error("rejected batch must not be mapped or charged")
			}
		})
	}
}

func TestCreatePaymentFor_SingleOrderSkipsBatchChecks(t *testing.T) {
	batches := &mockBatchStore{}
	gw := &mockGateway{}
	svc := NewService(gw, "server-key", batches, zap.NewNop())

	if _, err := svc.CreatePaymentFor(context.Background(), uuid.New(), CreatePaymentRequest{OrderID: "ORDER-1", Amount: decimal.NewFromInt(1000)}); err != nil {
		t.Fatalf("CreatePaymentFor: %v", err)
	}
	if batches.listedWith.UserID != uuid.Nil {
		t.Error("no ownership lookup expected without batch ids")
	}
	if len(gw.calls) != 1 {
		t.Errorf("gateway calls: %d", len(gw.calls))
	}
}

func TestCreatePayment_GatewayError(t *testing.T) {
	gw := &mockGateway{
		createSessionFn: func(ctx context.Context, req SessionRequest) (*Session, error) {
			return nil, &GatewayError{StatusCode: 401, Message: "unauthorized"}
		},
	}
	svc := NewService(gw, "server-key", nil, zap.NewNop())

	_, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{OrderID: "ORDER-1", Amount: decimal.NewFromInt(1000)})
	fe := NewFunctionError(err)
	if fe.Type != "GatewayError" {
		t.Errorf("error type: got %q", fe.Type)
	}
	if fe.Error != "Midtrans API error: 401 - unauthorized" {
		t.Errorf("error message: got %q", fe.Error)
	}
}

func TestMergeCustomer(t *testing.T) {
	if got := MergeCustomer(nil); got != DefaultCustomer {
		t.Errorf("nil: got %+v", got)
	}
	got := MergeCustomer(&Customer{Email: "ibu@example.com", Phone: "0812"})
	want := Customer{FirstName: "Customer", Email: "ibu@example.com", Phone: "0812"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}
