package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sekolah-catering/api/internal/format"
	"github.com/sekolah-catering/api/internal/logger"
	"github.com/sekolah-catering/api/internal/middleware"
	"github.com/sekolah-catering/api/internal/payment"
	"github.com/sekolah-catering/api/internal/service"
	"go.uber.org/zap"
)

const maxNotificationBytes = 1 << 20

// PaymentFunction creates gateway sessions. Satisfied by *payment.Service.
type PaymentFunction interface {
	CreatePaymentFor(ctx context.Context, callerID uuid.UUID, req payment.CreatePaymentRequest) (*payment.Session, error)
}

// PaymentProcessor applies gateway notifications and batch payments.
// Satisfied by *service.PaymentService.
type PaymentProcessor interface {
	HandleNotification(ctx context.Context, n payment.Notification, payload []byte) (*service.NotificationResult, error)
	BatchPay(ctx context.Context, userID uuid.UUID, orderIDs []uuid.UUID) (*service.BatchResult, error)
}

// PaymentHandler handles the create-payment function, gateway notifications
// and batch payment.
type PaymentHandler struct {
	fn  PaymentFunction
	svc PaymentProcessor
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(fn PaymentFunction, svc PaymentProcessor) *PaymentHandler {
	return &PaymentHandler{fn: fn, svc: svc}
}

// RegisterFunctionRoutes registers POST /functions/create-payment.
// Expected to be mounted behind Authenticate.
func (h *PaymentHandler) RegisterFunctionRoutes(r chi.Router) {
	r.Post("/functions/create-payment", h.CreatePayment)
}

// RegisterNotificationRoutes registers the gateway callback. It carries its
// own signature and must stay outside Authenticate.
func (h *PaymentHandler) RegisterNotificationRoutes(r chi.Router) {
	r.Post("/payments/notifications", h.Notification)
}

// RegisterRoutes registers the parent's payment endpoints.
// Expected to be mounted at /payments inside the parent group.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/batch", h.BatchPay)
}

type batchPayRequest struct {
	OrderIDs []string `json:"order_ids"`
}

type batchPayResponse struct {
	BatchID              string      `json:"batch_id"`
	OrderIDs             []uuid.UUID `json:"order_ids"`
	TotalAmount          string      `json:"total_amount"`
	TotalAmountFormatted string      `json:"total_amount_formatted"`
	SnapToken            string      `json:"snap_token"`
	RedirectURL          string      `json:"redirect_url"`
}

type notificationResponse struct {
	Status  string `json:"status"`
	Updated int    `json:"updated"`
}

// CreatePayment handles POST /functions/create-payment. Any failure is a 500
// with {error, details, type}.
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req payment.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusInternalServerError, payment.NewFunctionError(err))
		return
	}

	sess, err := h.fn.CreatePaymentFor(r.Context(), claims.UserID, req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, payment.NewFunctionError(err))
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Notification handles POST /payments/notifications from the gateway.
func (h *PaymentHandler) Notification(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxNotificationBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var n payment.Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if n.OrderID == "" {
		writeError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	result, err := h.svc.HandleNotification(r.Context(), n, payload)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidSignature):
			logger.L().Warn("rejected payment notification",
				zap.String("gateway_order_id", n.OrderID), zap.Error(err))
			writeError(w, http.StatusForbidden, "invalid signature")
		default:
			internalError(w, "handle payment notification", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, notificationResponse{
		Status:  string(result.Status),
		Updated: len(result.Updated),
	})
}

// BatchPay handles POST /payments/batch.
func (h *PaymentHandler) BatchPay(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req batchPayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ids := make([]uuid.UUID, 0, len(req.OrderIDs))
	for _, s := range req.OrderIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid order_ids")
			return
		}
		ids = append(ids, id)
	}

	result, err := h.svc.BatchPay(r.Context(), claims.UserID, ids)
	if err != nil {
		writePaymentError(w, "batch payment", err)
		return
	}

	orderIDs := make([]uuid.UUID, len(result.Orders))
	for i, o := range result.Orders {
		orderIDs[i] = o.ID
	}
	resp := batchPayResponse{
		BatchID:              result.BatchID,
		OrderIDs:             orderIDs,
		TotalAmount:          result.Total.StringFixed(2),
		TotalAmountFormatted: format.Price(result.Total),
	}
	if result.Session != nil {
		resp.SnapToken = result.Session.Token
		resp.RedirectURL = result.Session.RedirectURL
	}
	writeJSON(w, http.StatusOK, resp)
}
