package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sekolah-catering/api/internal/auth"
	"github.com/sekolah-catering/api/internal/cart"
	"github.com/sekolah-catering/api/internal/database"
	"github.com/sekolah-catering/api/internal/enum"
	"github.com/sekolah-catering/api/internal/events"
	"github.com/sekolah-catering/api/internal/format"
	"github.com/sekolah-catering/api/internal/logger"
	"github.com/sekolah-catering/api/internal/middleware"
	"github.com/sekolah-catering/api/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Checkouter submits a cart. Satisfied by *service.CheckoutService.
type Checkouter interface {
	Checkout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error)
}

// PaymentRetrier reissues payment sessions. Satisfied by *service.PaymentService.
type PaymentRetrier interface {
	RetryPayment(ctx context.Context, orderID, callerID uuid.UUID, staff bool) (*service.RetryResult, error)
}

// OrderStore defines the database methods needed by order read/update handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrdersByUser(ctx context.Context, arg database.ListOrdersByUserParams) ([]database.Order, error)
	ListLineItemsByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) ([]database.ListLineItemsByOrderIDsRow, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	checkout  Checkouter
	payments  PaymentRetrier
	store     OrderStore
	carts     cart.Store
	publisher events.Publisher
	limit     func(http.Handler) http.Handler
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(checkout Checkouter, payments PaymentRetrier, store OrderStore, carts cart.Store, publisher events.Publisher) *OrderHandler {
	return &OrderHandler{
		checkout:  checkout,
		payments:  payments,
		store:     store,
		carts:     carts,
		publisher: publisher,
		limit:     func(next http.Handler) http.Handler { return next },
	}
}

// WithLimiter sets the middleware guarding the endpoints that open gateway
// sessions (checkout and retry).
func (h *OrderHandler) WithLimiter(limit func(http.Handler) http.Handler) *OrderHandler {
	if limit != nil {
		h.limit = limit
	}
	return h
}

// RegisterRoutes registers the parent's order endpoints.
// Expected to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.With(h.limit).Post("/", h.Checkout)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/payment-outcome", h.PaymentOutcome)
	r.With(h.limit).Post("/{id}/payment/retry", h.RetryPayment)
}

// RegisterAdminRoutes registers order progression endpoints.
// Expected to be mounted at /admin/orders.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type checkoutRequest struct {
	Notes string `json:"notes"`
}

type paymentOutcomeRequest struct {
	Outcome string `json:"outcome"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID                   uuid.UUID          `json:"id"`
	UserID               uuid.UUID          `json:"user_id"`
	OrderNumber          string             `json:"order_number"`
	TotalAmount          string             `json:"total_amount"`
	TotalAmountFormatted string             `json:"total_amount_formatted"`
	Status               enum.Status        `json:"status"`
	PaymentStatus        enum.Status        `json:"payment_status"`
	PaymentMethod        *string            `json:"payment_method"`
	PaymentMethodLabel   string             `json:"payment_method_label,omitempty"`
	OrderDate            string             `json:"order_date"`
	ParentNotes          *string            `json:"parent_notes"`
	Notes                *string            `json:"notes"`
	SnapToken            *string            `json:"snap_token"`
	CreatedAt            time.Time          `json:"created_at"`
	CreatedAtFormatted   string             `json:"created_at_formatted"`
	UpdatedAt            time.Time          `json:"updated_at"`
	Items                []lineItemResponse `json:"items,omitempty"`
}

type lineItemResponse struct {
	ID                uuid.UUID `json:"id"`
	MenuItemID        uuid.UUID `json:"menu_item_id"`
	MenuItemName      string    `json:"menu_item_name"`
	MenuItemImageURL  *string   `json:"menu_item_image_url"`
	ChildID           uuid.UUID `json:"child_id"`
	ChildName         string    `json:"child_name"`
	ChildClass        *string   `json:"child_class"`
	DeliveryDate      string    `json:"delivery_date"`
	DeliveryDateLabel string    `json:"delivery_date_label"`
	Quantity          int32     `json:"quantity"`
	UnitPrice         string    `json:"unit_price"`
	Subtotal          string    `json:"subtotal"`
	Notes             *string   `json:"notes"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type checkoutResponse struct {
	Order       orderResponse `json:"order"`
	SnapToken   string        `json:"snap_token"`
	RedirectURL string        `json:"redirect_url"`
}

type retryResponse struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	SnapToken   string    `json:"snap_token"`
	RedirectURL string    `json:"redirect_url,omitempty"`
	Reused      bool      `json:"reused"`
}

type paymentOutcomeResponse struct {
	service.OutcomeNotice
	PaymentStatus enum.Status `json:"payment_status"`
}

// --- Handlers ---

// Checkout handles POST /orders: the caller's cart becomes one order.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	// The body is optional.
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "user not found")
			return
		}
		internalError(w, "get user for checkout", err)
		return
	}

	c, err := h.carts.Load(r.Context(), claims.UserID)
	if err != nil {
		internalError(w, "load cart", err)
		return
	}

	names := make(map[uuid.UUID]string, len(c.Items))
	for _, it := range c.Items {
		names[it.MenuItemID] = it.MenuItemName
	}

	result, err := h.checkout.Checkout(r.Context(), service.CheckoutRequest{User: user, Cart: c, Notes: req.Notes})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentSession) && result != nil:
			logger.L().Error("checkout payment session",
				zap.String("order_number", result.Order.OrderNumber), zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error":        "Pesanan dibuat, tetapi pembayaran belum dapat dimulai. Silakan coba bayar lagi dari riwayat pesanan.",
				"order_id":     result.Order.ID,
				"order_number": result.Order.OrderNumber,
			})
		case isValidationError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			internalError(w, "checkout", err)
		}
		return
	}

	resp := toOrderResponse(result.Order)
	resp.Items = make([]lineItemResponse, len(result.Lines))
	for i, li := range result.Lines {
		resp.Items[i] = toLineItemResponse(li, names[li.MenuItemID], pgtype.Text{})
	}

	out := checkoutResponse{Order: resp}
	if result.Session != nil {
		out.SnapToken = result.Session.Token
		out.RedirectURL = result.Session.RedirectURL
	}
	writeJSON(w, http.StatusCreated, out)
}

// List handles GET /orders, newest first.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit, offset := parsePagination(r)
	params := database.ListOrdersByUserParams{
		UserID: claims.UserID,
		Limit:  int32(limit),
		Offset: int32(offset),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		if !enum.IsValidOrderStatus(s) {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		params.Status = textOrNull(s)
	}

	orders, err := h.store.ListOrdersByUser(r.Context(), params)
	if err != nil {
		internalError(w, "list orders", err)
		return
	}

	resp, err := h.withLines(r.Context(), orders)
	if err != nil {
		internalError(w, "list order line items", err)
		return
	}

	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp, Limit: limit, Offset: offset})
}

// Get handles GET /orders/{id}. Parents only see their own orders.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	order, ok := h.loadOrder(w, r, claims)
	if !ok {
		return
	}

	resp, err := h.withLines(r.Context(), []database.Order{order})
	if err != nil {
		internalError(w, "get order line items", err)
		return
	}
	writeJSON(w, http.StatusOK, resp[0])
}

// PaymentOutcome handles POST /orders/{id}/payment-outcome. The pop-up result
// only drives the notice and the cart; payment_status is left to the gateway
// notification.
func (h *OrderHandler) PaymentOutcome(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req paymentOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	notice, err := service.Outcome(req.Outcome)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, ok := h.loadOrder(w, r, claims)
	if !ok {
		return
	}

	if notice.ClearCart {
		if err := h.carts.Delete(r.Context(), claims.UserID); err != nil {
			internalError(w, "clear cart after payment", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, paymentOutcomeResponse{
		OutcomeNotice: notice,
		PaymentStatus: enum.PaymentStatus(string(order.PaymentStatus)),
	})
}

// RetryPayment handles POST /orders/{id}/payment/retry.
func (h *OrderHandler) RetryPayment(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.payments.RetryPayment(r.Context(), orderID, claims.UserID, isStaff(claims))
	if err != nil {
		writePaymentError(w, "retry payment", err)
		return
	}

	writeJSON(w, http.StatusOK, retryResponse{
		OrderID:     result.Order.ID,
		OrderNumber: result.Order.OrderNumber,
		SnapToken:   result.Session.Token,
		RedirectURL: result.Session.RedirectURL,
		Reused:      result.Reused,
	})
}

// UpdateStatus handles PATCH /admin/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}
	if !enum.IsValidOrderStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	current, ok := h.loadOrder(w, r, claims)
	if !ok {
		return
	}

	next := database.OrderStatus(req.Status)
	if err := validateStatusTransition(current.Status, next); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	updated, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		ID:            current.ID,
		Status:        next,
		CurrentStatus: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusConflict, "order status changed, please retry")
			return
		}
		internalError(w, "update order status", err)
		return
	}

	h.publish(r.Context(), events.TypeOrderStatusChanged, updated)
	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}

// --- Helpers ---

// loadOrder reads {id} and hides other parents' orders behind a 404.
func (h *OrderHandler) loadOrder(w http.ResponseWriter, r *http.Request, claims *auth.Claims) (database.Order, bool) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return database.Order{}, false
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return database.Order{}, false
		}
		internalError(w, "get order", err)
		return database.Order{}, false
	}
	if !isStaff(claims) && order.UserID != claims.UserID {
		writeError(w, http.StatusNotFound, "order not found")
		return database.Order{}, false
	}
	return order, true
}

func (h *OrderHandler) withLines(ctx context.Context, orders []database.Order) ([]orderResponse, error) {
	resp := make([]orderResponse, len(orders))
	if len(orders) == 0 {
		return resp, nil
	}

	ids := make([]uuid.UUID, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		resp[i] = toOrderResponse(o)
		resp[i].Items = []lineItemResponse{}
	}

	rows, err := h.store.ListLineItemsByOrderIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		i, ok := index[row.OrderLineItem.OrderID]
		if !ok {
			continue
		}
		resp[i].Items = append(resp[i].Items, toLineItemResponse(row.OrderLineItem, row.MenuItemName, row.MenuItemImageUrl))
	}
	return resp, nil
}

func (h *OrderHandler) publish(ctx context.Context, typ string, o database.Order) {
	e := events.Event{
		Type:          typ,
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		TotalAmount:   numericToString(o.TotalAmount),
		OccurredAt:    time.Now(),
	}
	if o.PaymentMethod.Valid {
		e.PaymentMethod = string(o.PaymentMethod.PaymentMethod)
	}
	if err := h.publisher.Publish(ctx, e); err != nil {
		logger.L().Warn("publish "+typ, zap.String("order_number", o.OrderNumber), zap.Error(err))
	}
}

func isStaff(claims *auth.Claims) bool {
	return claims.Role == enum.UserRoleCashier || claims.Role == enum.UserRoleAdmin
}

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyCart) ||
		errors.Is(err, service.ErrInvalidDeliveryDate) ||
		errors.Is(err, service.ErrInvalidOutcome) ||
		errors.Is(err, service.ErrNoPayableOrders) ||
		errors.Is(err, service.ErrInvalidPaymentMethod) ||
		errors.Is(err, service.ErrInsufficientTender) ||
		errors.Is(err, service.ErrInvalidTender) ||
		errors.Is(err, cart.ErrInvalidQuantity)
}

// writePaymentError maps payment and settlement service errors to responses.
func writePaymentError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, service.ErrAlreadyPaid), errors.Is(err, service.ErrOrderCancelled):
		writeError(w, http.StatusConflict, err.Error())
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPaymentGateway):
		logger.L().Error(op, zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		internalError(w, op, err)
	}
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:                   o.ID,
		UserID:               o.UserID,
		OrderNumber:          o.OrderNumber,
		TotalAmount:          numericToString(o.TotalAmount),
		TotalAmountFormatted: format.Price(numericToDecimal(o.TotalAmount)),
		Status:               enum.OrderStatus(string(o.Status)),
		PaymentStatus:        enum.PaymentStatus(string(o.PaymentStatus)),
		OrderDate:            dateToString(o.OrderDate),
		ParentNotes:          textPtr(o.ParentNotes),
		Notes:                textPtr(o.Notes),
		SnapToken:            textPtr(o.SnapToken),
		CreatedAt:            o.CreatedAt,
		CreatedAtFormatted:   format.DateTime(o.CreatedAt.In(jakarta)),
		UpdatedAt:            o.UpdatedAt,
	}
	if o.PaymentMethod.Valid {
		m := string(o.PaymentMethod.PaymentMethod)
		resp.PaymentMethod = &m
		resp.PaymentMethodLabel = enum.PaymentMethodLabel(m)
	}
	return resp
}

func toLineItemResponse(li database.OrderLineItem, menuName string, image pgtype.Text) lineItemResponse {
	unit := numericToDecimal(li.UnitPrice)
	label := ""
	if li.DeliveryDate.Valid {
		label = format.LongDate(li.DeliveryDate.Time)
	}
	return lineItemResponse{
		ID:                li.ID,
		MenuItemID:        li.MenuItemID,
		MenuItemName:      menuName,
		MenuItemImageURL:  textPtr(image),
		ChildID:           li.ChildID,
		ChildName:         li.ChildName,
		ChildClass:        textPtr(li.ChildClass),
		DeliveryDate:      dateToString(li.DeliveryDate),
		DeliveryDateLabel: label,
		Quantity:          li.Quantity,
		UnitPrice:         unit.StringFixed(2),
		Subtotal:          unit.Mul(decimal.NewFromInt32(li.Quantity)).StringFixed(2),
		Notes:             textPtr(li.Notes),
	}
}

// allowedTransitions defines valid order status transitions.
// Key is current status, value is the set of statuses it can transition to.
var allowedTransitions = map[database.OrderStatus][]database.OrderStatus{
	database.OrderStatusPending:   {database.OrderStatusConfirmed, database.OrderStatusCancelled},
	database.OrderStatusConfirmed: {database.OrderStatusPreparing, database.OrderStatusCancelled},
	database.OrderStatusPreparing: {database.OrderStatusDelivered, database.OrderStatusCancelled},
}

// validateStatusTransition checks if the transition from current to next is allowed.
func validateStatusTransition(current, next database.OrderStatus) error {
	allowed, ok := allowedTransitions[current]
	if !ok {
		return fmt.Errorf("cannot transition from %s", current)
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("cannot transition from %s to %s", current, next)
}
