package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sekolah-catering/api/internal/database"
	"github.com/sekolah-catering/api/internal/enum"
	"github.com/sekolah-catering/api/internal/format"
	"github.com/sekolah-catering/api/internal/middleware"
	"github.com/sekolah-catering/api/internal/service"
	"github.com/shopspring/decimal"
)

// CashierStore defines the database methods needed by cashier handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CashierStore interface {
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.ListOrdersRow, error)
	ListCashPayments(ctx context.Context, arg database.ListCashPaymentsParams) ([]database.ListCashPaymentsRow, error)
}

// Settler records payments collected at the counter.
// Satisfied by *service.SettlementService.
type Settler interface {
	SettleCash(ctx context.Context, req service.SettleCashRequest) (*service.SettlementResult, error)
	MarkPaid(ctx context.Context, req service.MarkPaidRequest) (*service.SettlementResult, error)
}

// CashierHandler handles the cashier desk.
type CashierHandler struct {
	store   CashierStore
	settler Settler
	now     func() time.Time
}

// NewCashierHandler creates a new CashierHandler.
func NewCashierHandler(store CashierStore, settler Settler) *CashierHandler {
	return &CashierHandler{store: store, settler: settler, now: time.Now}
}

// RegisterRoutes registers cashier endpoints.
// Expected to be mounted at /cashier behind RequireRole(cashier).
func (h *CashierHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.ListOrders)
	r.Post("/orders/{id}/cash", h.SettleCash)
	r.Post("/orders/{id}/mark-paid", h.MarkPaid)
	r.Get("/cash-payments", h.ListCashPayments)
}

// --- Request / Response types ---

type settleCashRequest struct {
	ReceivedAmount string `json:"received_amount"`
}

type markPaidRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type cashierOrderResponse struct {
	orderResponse
	ParentName  string `json:"parent_name"`
	ParentEmail string `json:"parent_email"`
	ChildNames  string `json:"child_names"`
}

type cashPaymentResponse struct {
	ID                   uuid.UUID `json:"id"`
	OrderID              uuid.UUID `json:"order_id"`
	OrderNumber          string    `json:"order_number,omitempty"`
	CashierID            uuid.UUID `json:"cashier_id"`
	CashierName          string    `json:"cashier_name,omitempty"`
	ChildNames           string    `json:"child_names,omitempty"`
	Amount               string    `json:"amount"`
	ReceivedAmount       string    `json:"received_amount"`
	ChangeAmount         string    `json:"change_amount"`
	PaymentDate          time.Time `json:"payment_date"`
	PaymentDateFormatted string    `json:"payment_date_formatted"`
	Notes                *string   `json:"notes"`
}

type settlementResponse struct {
	Order           orderResponse        `json:"order"`
	Payment         *cashPaymentResponse `json:"payment"`
	ChangeAmount    string               `json:"change_amount"`
	ChangeFormatted string               `json:"change_formatted"`
	Message         string               `json:"message"`
}

type cashTotals struct {
	Count          int    `json:"count"`
	Amount         string `json:"total_amount"`
	ReceivedAmount string `json:"total_received"`
	ChangeAmount   string `json:"total_change"`
}

type cashPaymentListResponse struct {
	StartDate string                `json:"start_date"`
	EndDate   string                `json:"end_date"`
	Payments  []cashPaymentResponse `json:"payments"`
	Totals    cashTotals            `json:"totals"`
}

// --- Handlers ---

// ListOrders handles GET /cashier/orders?status=&payment_status=&q=.
func (h *CashierHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	params := database.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}

	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		if !enum.IsValidOrderStatus(s) {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		params.Status = textOrNull(s)
	}
	if s := q.Get("payment_status"); s != "" {
		if !enum.IsValidPaymentStatus(s) {
			writeError(w, http.StatusBadRequest, "invalid payment_status")
			return
		}
		params.PaymentStatus = textOrNull(s)
	}
	params.Search = textOrNull(strings.TrimSpace(q.Get("q")))

	rows, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		internalError(w, "list cashier orders", err)
		return
	}

	resp := make([]cashierOrderResponse, len(rows))
	for i, row := range rows {
		resp[i] = cashierOrderResponse{
			orderResponse: toOrderResponse(row.Order),
			ParentName:    row.ParentName,
			ParentEmail:   row.ParentEmail,
			ChildNames:    row.ChildNames,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders": resp,
		"limit":  limit,
		"offset": offset,
	})
}

// SettleCash handles POST /cashier/orders/{id}/cash.
func (h *CashierHandler) SettleCash(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req settleCashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	received, err := decimal.NewFromString(strings.TrimSpace(req.ReceivedAmount))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid received_amount")
		return
	}

	result, err := h.settler.SettleCash(r.Context(), service.SettleCashRequest{
		OrderID:   orderID,
		CashierID: claims.UserID,
		Received:  received,
	})
	if err != nil {
		writePaymentError(w, "settle cash", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementResponse(result))
}

// MarkPaid handles POST /cashier/orders/{id}/mark-paid for cash or transfer
// collected without change.
func (h *CashierHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req markPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.settler.MarkPaid(r.Context(), service.MarkPaidRequest{
		OrderID:   orderID,
		CashierID: claims.UserID,
		Method:    req.PaymentMethod,
	})
	if err != nil {
		writePaymentError(w, "mark order paid", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementResponse(result))
}

// ListCashPayments handles GET /cashier/cash-payments?start_date=&end_date=.
// Both dates are required; end_date is inclusive.
func (h *CashierHandler) ListCashPayments(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r, h.now(), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.store.ListCashPayments(r.Context(), database.ListCashPaymentsParams{
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		internalError(w, "list cash payments", err)
		return
	}

	amount, received, change := decimal.Zero, decimal.Zero, decimal.Zero
	payments := make([]cashPaymentResponse, len(rows))
	for i, row := range rows {
		cp := toCashPaymentResponse(row.CashPayment)
		cp.OrderNumber = row.OrderNumber
		cp.CashierName = row.CashierName
		cp.ChildNames = row.ChildNames
		payments[i] = cp

		amount = amount.Add(numericToDecimal(row.CashPayment.Amount))
		received = received.Add(numericToDecimal(row.CashPayment.ReceivedAmount))
		change = change.Add(numericToDecimal(row.CashPayment.ChangeAmount))
	}

	writeJSON(w, http.StatusOK, cashPaymentListResponse{
		StartDate: start.Format(dateLayout),
		EndDate:   end.AddDate(0, 0, -1).Format(dateLayout),
		Payments:  payments,
		Totals: cashTotals{
			Count:          len(rows),
			Amount:         amount.StringFixed(2),
			ReceivedAmount: received.StringFixed(2),
			ChangeAmount:   change.StringFixed(2),
		},
	})
}

// --- Helpers ---

func toCashPaymentResponse(cp database.CashPayment) cashPaymentResponse {
	return cashPaymentResponse{
		ID:                   cp.ID,
		OrderID:              cp.OrderID,
		CashierID:            cp.CashierID,
		Amount:               numericToString(cp.Amount),
		ReceivedAmount:       numericToString(cp.ReceivedAmount),
		ChangeAmount:         numericToString(cp.ChangeAmount),
		PaymentDate:          cp.PaymentDate,
		PaymentDateFormatted: format.DateTime(cp.PaymentDate.In(jakarta)),
		Notes:                textPtr(cp.Notes),
	}
}

func toSettlementResponse(result *service.SettlementResult) settlementResponse {
	resp := settlementResponse{
		Order:           toOrderResponse(result.Order),
		ChangeAmount:    result.Change.StringFixed(2),
		ChangeFormatted: format.Price(result.Change),
		Message:         "Pembayaran berhasil dicatat",
	}
	if result.Payment != nil {
		cp := toCashPaymentResponse(*result.Payment)
		resp.Payment = &cp
	}
	if result.Change.IsPositive() {
		resp.Message += ". Kembalian: " + format.Price(result.Change)
	}
	return resp
}
