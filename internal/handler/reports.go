package handler

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sekolah-catering/api/internal/database"
	"github.com/sekolah-catering/api/internal/report"
)

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	ListOrdersForReport(ctx context.Context, arg database.ListOrdersForReportParams) ([]database.Order, error)
	ListReportLineItemsByOrderDate(ctx context.Context, arg database.ReportDateRangeParams) ([]database.ReportLineItemRow, error)
	ListReportLineItemsByDeliveryDate(ctx context.Context, arg database.ReportDateRangeParams) ([]database.ReportLineItemRow, error)
}

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	store ReportsStore
	now   func() time.Time
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(store ReportsStore) *ReportsHandler {
	return &ReportsHandler{store: store, now: time.Now}
}

// RegisterCashierRoutes registers cashier report endpoints.
// Expected to be mounted at /cashier/reports.
func (h *ReportsHandler) RegisterCashierRoutes(r chi.Router) {
	r.Get("/summary", h.Summary)
}

// RegisterAdminRoutes registers admin report endpoints.
// Expected to be mounted at /admin/reports.
func (h *ReportsHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/recap", h.Recap)
}

// Summary handles GET /cashier/reports/summary. Orders are ranged by
// order_date, defaulting to month to date; cancelled orders are excluded.
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r, h.now(), false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	orders, err := h.store.ListOrdersForReport(r.Context(), database.ListOrdersForReportParams{
		StartDate: pgDate(start),
		EndDate:   pgDate(end),
	})
	if err != nil {
		internalError(w, "list orders for report", err)
		return
	}

	lines, err := h.store.ListReportLineItemsByOrderDate(r.Context(), database.ReportDateRangeParams{
		StartDate: pgDate(start),
		EndDate:   pgDate(end),
	})
	if err != nil {
		internalError(w, "list report line items", err)
		return
	}

	rep := report.BuildCashierReport(start, end.AddDate(0, 0, -1), toReportOrders(orders), toReportLines(lines))
	writeJSON(w, http.StatusOK, rep)
}

// Recap handles GET /admin/reports/recap. Lines are ranged by delivery_date
// unless by=order_date; format=html renders the printable page.
func (h *ReportsHandler) Recap(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r, h.now(), false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	params := database.ReportDateRangeParams{StartDate: pgDate(start), EndDate: pgDate(end)}
	var rows []database.ReportLineItemRow
	switch r.URL.Query().Get("by") {
	case "", "delivery_date":
		rows, err = h.store.ListReportLineItemsByDeliveryDate(r.Context(), params)
	case "order_date":
		rows, err = h.store.ListReportLineItemsByOrderDate(r.Context(), params)
	default:
		writeError(w, http.StatusBadRequest, "by must be delivery_date or order_date")
		return
	}
	if err != nil {
		internalError(w, "list recap line items", err)
		return
	}

	lines := toReportLines(rows)
	recap := report.BuildRecap(start, end.AddDate(0, 0, -1), countOrders(lines), lines)

	switch r.URL.Query().Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, recap)
	case "html":
		var buf bytes.Buffer
		if err := report.RenderHTML(&buf, recap); err != nil {
			internalError(w, "render recap", err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	default:
		writeError(w, http.StatusBadRequest, "format must be json or html")
	}
}

// --- Helpers ---

func toReportOrders(orders []database.Order) []report.Order {
	out := make([]report.Order, len(orders))
	for i, o := range orders {
		out[i] = report.Order{
			ID:            o.ID,
			OrderNumber:   o.OrderNumber,
			OrderDate:     o.OrderDate.Time,
			TotalAmount:   numericToDecimal(o.TotalAmount),
			PaymentStatus: string(o.PaymentStatus),
			Notes:         o.Notes.String,
		}
		if o.PaymentMethod.Valid {
			out[i].PaymentMethod = string(o.PaymentMethod.PaymentMethod)
		}
	}
	return out
}

func toReportLines(rows []database.ReportLineItemRow) []report.Line {
	out := make([]report.Line, len(rows))
	for i, row := range rows {
		out[i] = report.Line{
			OrderID:      row.OrderID,
			MenuItemName: row.MenuItemName,
			ChildName:    row.ChildName,
			ChildClass:   row.ChildClass.String,
			DeliveryDate: row.DeliveryDate.Time,
			OrderDate:    row.OrderDate.Time,
			Quantity:     row.Quantity,
			UnitPrice:    numericToDecimal(row.UnitPrice),
		}
	}
	return out
}

func countOrders(lines []report.Line) int {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, l := range lines {
		seen[l.OrderID] = struct{}{}
	}
	return len(seen)
}
