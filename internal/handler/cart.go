package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sekolah-catering/api/internal/cart"
	"github.com/sekolah-catering/api/internal/database"
	"github.com/sekolah-catering/api/internal/format"
	"github.com/sekolah-catering/api/internal/middleware"
)

// CartCatalog defines the lookups needed to price a cart entry.
// Satisfied by *database.Queries; narrow interface for testability.
type CartCatalog interface {
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	GetChild(ctx context.Context, arg database.GetChildParams) (database.Child, error)
}

// CartHandler handles the parent's cart.
type CartHandler struct {
	carts   cart.Store
	catalog CartCatalog
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(carts cart.Store, catalog CartCatalog) *CartHandler {
	return &CartHandler{carts: carts, catalog: catalog}
}

// RegisterRoutes registers cart endpoints.
// Expected to be mounted at /cart inside the parent group.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Delete("/", h.Clear)
	r.Post("/items", h.AddItem)
	r.Patch("/items/{key}", h.UpdateItem)
	r.Delete("/items/{key}", h.RemoveItem)
}

// --- Request / Response types ---

type addCartItemRequest struct {
	MenuItemID   string `json:"menu_item_id"`
	ChildID      string `json:"child_id"`
	DeliveryDate string `json:"delivery_date"`
	Quantity     int32  `json:"quantity"`
	Notes        string `json:"notes"`
}

type updateCartItemRequest struct {
	Quantity *int32 `json:"quantity"`
}

type cartItemResponse struct {
	cart.Item
	Subtotal          string `json:"subtotal"`
	DeliveryDateLabel string `json:"delivery_date_label"`
}

type cartResponse struct {
	Items                []cartItemResponse `json:"items"`
	TotalItems           int32              `json:"total_items"`
	TotalAmount          string             `json:"total_amount"`
	TotalAmountFormatted string             `json:"total_amount_formatted"`
}

func toCartResponse(c *cart.Cart) cartResponse {
	items := make([]cartItemResponse, len(c.Items))
	for i, it := range c.Items {
		label := it.DeliveryDate
		if d, err := time.Parse(dateLayout, it.DeliveryDate); err == nil {
			label = format.LongDate(d)
		}
		items[i] = cartItemResponse{
			Item:              it,
			Subtotal:          it.Subtotal().StringFixed(2),
			DeliveryDateLabel: label,
		}
	}
	total := c.TotalAmount()
	return cartResponse{
		Items:                items,
		TotalItems:           c.TotalItems(),
		TotalAmount:          total.StringFixed(2),
		TotalAmountFormatted: format.Price(total),
	}
}

// --- Handlers ---

// Get handles GET /cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	c, err := h.carts.Load(r.Context(), claims.UserID)
	if err != nil {
		internalError(w, "load cart", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// AddItem handles POST /cart/items. Price, names and class come from the
// database, never from the client.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	menuItemID, err := uuid.Parse(req.MenuItemID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid menu_item_id")
		return
	}
	childID, err := uuid.Parse(req.ChildID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid child_id")
		return
	}
	if _, err := time.Parse(dateLayout, req.DeliveryDate); err != nil {
		writeError(w, http.StatusBadRequest, "invalid delivery_date format, use YYYY-MM-DD")
		return
	}
	if req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, cart.ErrInvalidQuantity.Error())
		return
	}

	menuItem, err := h.catalog.GetMenuItem(r.Context(), menuItemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusBadRequest, "menu item not found")
			return
		}
		internalError(w, "get menu item for cart", err)
		return
	}
	if !menuItem.IsAvailable {
		writeError(w, http.StatusBadRequest, "menu item is not available")
		return
	}

	child, err := h.catalog.GetChild(r.Context(), database.GetChildParams{ID: childID, UserID: claims.UserID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusBadRequest, "child not found")
			return
		}
		internalError(w, "get child for cart", err)
		return
	}

	c, err := h.carts.Load(r.Context(), claims.UserID)
	if err != nil {
		internalError(w, "load cart", err)
		return
	}

	c.Add(cart.Item{
		MenuItemID:   menuItem.ID,
		MenuItemName: menuItem.Name,
		ImageURL:     menuItem.ImageUrl.String,
		ChildID:      child.ID,
		ChildName:    child.Name,
		ChildClass:   child.ClassName,
		DeliveryDate: req.DeliveryDate,
		Quantity:     req.Quantity,
		UnitPrice:    numericToDecimal(menuItem.Price),
		Notes:        req.Notes,
	})

	if err := h.carts.Save(r.Context(), claims.UserID, c); err != nil {
		internalError(w, "save cart", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// UpdateItem handles PATCH /cart/items/{key}. Quantity 0 removes the entry.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req updateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "quantity is required")
		return
	}

	c, err := h.carts.Load(r.Context(), claims.UserID)
	if err != nil {
		internalError(w, "load cart", err)
		return
	}

	if err := c.UpdateQuantity(chi.URLParam(r, "key"), *req.Quantity); err != nil {
		switch {
		case errors.Is(err, cart.ErrItemNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, cart.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			internalError(w, "update cart item", err)
		}
		return
	}

	if err := h.carts.Save(r.Context(), claims.UserID, c); err != nil {
		internalError(w, "save cart", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// RemoveItem handles DELETE /cart/items/{key}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	c, err := h.carts.Load(r.Context(), claims.UserID)
	if err != nil {
		internalError(w, "load cart", err)
		return
	}

	if !c.Remove(chi.URLParam(r, "key")) {
		writeError(w, http.StatusNotFound, cart.ErrItemNotFound.Error())
		return
	}

	if err := h.carts.Save(r.Context(), claims.UserID, c); err != nil {
		internalError(w, "save cart", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// Clear handles DELETE /cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := h.carts.Delete(r.Context(), claims.UserID); err != nil {
		internalError(w, "clear cart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
