package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sekolah-catering/api/internal/database"
	"github.com/sekolah-catering/api/internal/format"
	"github.com/shopspring/decimal"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListMenuItems(ctx context.Context, onlyAvailable bool) ([]database.MenuItem, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
}

// MenuHandler handles menu endpoints.
type MenuHandler struct {
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// RegisterRoutes registers the public menu endpoints.
// Expected to be mounted at /menu.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListAvailable)
	r.Get("/{id}", h.Get)
}

// RegisterAdminRoutes registers menu management endpoints.
// Expected to be mounted at /admin/menu.
func (h *MenuHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.ListAll)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
}

// --- Request / Response types ---

type menuItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	ImageURL    string `json:"image_url"`
	IsAvailable *bool  `json:"is_available"`
}

type menuItemResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description"`
	Price          string    `json:"price"`
	PriceFormatted string    `json:"price_formatted"`
	ImageURL       *string   `json:"image_url"`
	IsAvailable    bool      `json:"is_available"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:             m.ID,
		Name:           m.Name,
		Description:    textPtr(m.Description),
		Price:          numericToString(m.Price),
		PriceFormatted: format.Price(numericToDecimal(m.Price)),
		ImageURL:       textPtr(m.ImageUrl),
		IsAvailable:    m.IsAvailable,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// validate trims fields and parses the price.
func (req *menuItemRequest) validate() (decimal.Decimal, string) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return decimal.Zero, "name is required"
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return decimal.Zero, "invalid price"
	}
	if !price.IsPositive() {
		return decimal.Zero, "price must be > 0"
	}
	// the gateway charges whole rupiah only
	if !price.Equal(price.Truncate(0)) {
		return decimal.Zero, "price must be a whole rupiah amount"
	}
	return price, ""
}

// --- Handlers ---

// ListAvailable handles GET /menu.
func (h *MenuHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

// ListAll handles GET /admin/menu, including unavailable items.
func (h *MenuHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

func (h *MenuHandler) list(w http.ResponseWriter, r *http.Request, onlyAvailable bool) {
	items, err := h.store.ListMenuItems(r.Context(), onlyAvailable)
	if err != nil {
		internalError(w, "list menu items", err)
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /menu/{id}.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid menu item ID")
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		internalError(w, "get menu item", err)
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Create handles POST /admin/menu.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	price, msg := req.validate()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		Name:        req.Name,
		Description: textOrNull(strings.TrimSpace(req.Description)),
		Price:       decimalToNumeric(price),
		ImageUrl:    textOrNull(strings.TrimSpace(req.ImageURL)),
		IsAvailable: available,
	})
	if err != nil {
		internalError(w, "create menu item", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// Update handles PUT /admin/menu/{id}. Omitting is_available keeps the current value.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid menu item ID")
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	price, msg := req.validate()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	current, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		internalError(w, "get menu item for update", err)
		return
	}

	available := current.IsAvailable
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:          id,
		Name:        req.Name,
		Description: textOrNull(strings.TrimSpace(req.Description)),
		Price:       decimalToNumeric(price),
		ImageUrl:    textOrNull(strings.TrimSpace(req.ImageURL)),
		IsAvailable: available,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		internalError(w, "update menu item", err)
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}
