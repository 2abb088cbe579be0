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
	"github.com/sekolah-catering/api/internal/middleware"
)

// ChildStore defines the database methods needed by child handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ChildStore interface {
	ListChildrenByUser(ctx context.Context, userID uuid.UUID) ([]database.Child, error)
	GetChild(ctx context.Context, arg database.GetChildParams) (database.Child, error)
	CreateChild(ctx context.Context, arg database.CreateChildParams) (database.Child, error)
	UpdateChild(ctx context.Context, arg database.UpdateChildParams) (database.Child, error)
	DeleteChild(ctx context.Context, arg database.DeleteChildParams) (int64, error)
}

// ChildHandler handles a parent's children.
type ChildHandler struct {
	store ChildStore
}

// NewChildHandler creates a new ChildHandler.
func NewChildHandler(store ChildStore) *ChildHandler {
	return &ChildHandler{store: store}
}

// RegisterRoutes registers child endpoints.
// Expected to be mounted at /children inside the parent group.
func (h *ChildHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type childRequest struct {
	Name      string `json:"name"`
	ClassName string `json:"class_name"`
}

type childResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	ClassName string    `json:"class_name"`
	CreatedAt time.Time `json:"created_at"`
}

func toChildResponse(c database.Child) childResponse {
	return childResponse{ID: c.ID, Name: c.Name, ClassName: c.ClassName, CreatedAt: c.CreatedAt}
}

func decodeChildRequest(w http.ResponseWriter, r *http.Request) (childRequest, bool) {
	var req childRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	req.Name = strings.TrimSpace(req.Name)
	req.ClassName = strings.TrimSpace(req.ClassName)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return req, false
	}
	return req, true
}

// List handles GET /children.
func (h *ChildHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	children, err := h.store.ListChildrenByUser(r.Context(), claims.UserID)
	if err != nil {
		internalError(w, "list children", err)
		return
	}

	resp := make([]childResponse, len(children))
	for i, c := range children {
		resp[i] = toChildResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /children.
func (h *ChildHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	req, ok := decodeChildRequest(w, r)
	if !ok {
		return
	}

	child, err := h.store.CreateChild(r.Context(), database.CreateChildParams{
		UserID:    claims.UserID,
		Name:      req.Name,
		ClassName: req.ClassName,
	})
	if err != nil {
		internalError(w, "create child", err)
		return
	}
	writeJSON(w, http.StatusCreated, toChildResponse(child))
}

// Update handles PUT /children/{id}. Past line items keep the name and class
// they were ordered with.
func (h *ChildHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid child ID")
		return
	}

	req, ok := decodeChildRequest(w, r)
	if !ok {
		return
	}

	child, err := h.store.UpdateChild(r.Context(), database.UpdateChildParams{
		ID:        id,
		UserID:    claims.UserID,
		Name:      req.Name,
		ClassName: req.ClassName,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "child not found")
			return
		}
		internalError(w, "update child", err)
		return
	}
	writeJSON(w, http.StatusOK, toChildResponse(child))
}

// Delete handles DELETE /children/{id}. Children with orders cannot be removed.
func (h *ChildHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid child ID")
		return
	}

	if _, err := h.store.GetChild(r.Context(), database.GetChildParams{ID: id, UserID: claims.UserID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "child not found")
			return
		}
		internalError(w, "get child for delete", err)
		return
	}

	n, err := h.store.DeleteChild(r.Context(), database.DeleteChildParams{ID: id, UserID: claims.UserID})
	if err != nil {
		internalError(w, "delete child", err)
		return
	}
	if n == 0 {
		writeError(w, http.StatusConflict, "child already has orders")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
