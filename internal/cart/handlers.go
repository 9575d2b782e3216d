package cart

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/chariotlab/atelier-api/internal/common"
	"github.com/chariotlab/atelier-api/internal/selection"
)

var validate = validator.New()

// Handler wires cart operations to HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create allocates a fresh empty cart.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Create(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// Get returns the cart with totals derived at read time.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Count returns the summed quantity across the cart, for badge displays.
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.Count(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]int{"count": count}})
}

type addItemRequest struct {
	ProductID   string         `json:"productId" validate:"required"`
	Material    string         `json:"material"`
	Quantity    any            `json:"quantity"`
	Accessories map[string]int `json:"accessories"`
}

// AddItem appends a configured product to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	expected, ok := expectedVersion(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON", nil)
		return
	}
	if err := validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "productId is required", nil)
		return
	}
	state := selection.State{
		Material:    req.Material,
		Quantity:    selection.ParseQuantity(req.Quantity, h.svc.MaxQuantity()),
		Accessories: req.Accessories,
	}
	view, err := h.svc.AddItem(r.Context(), chi.URLParam(r, "id"), req.ProductID, state, expected)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

type updateItemRequest struct {
	Quantity any `json:"quantity"`
}

// UpdateItem changes the quantity of the line at the given position.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	expected, ok := expectedVersion(w, r)
	if !ok {
		return
	}
	index, ok := itemIndex(w, r)
	if !ok {
		return
	}
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON", nil)
		return
	}
	if req.Quantity == nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "quantity is required", nil)
		return
	}
	quantity := selection.ParseUpdateQuantity(req.Quantity, h.svc.MaxQuantity())
	view, err := h.svc.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), index, quantity, expected)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// RemoveItem deletes the line at the given position.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	expected, ok := expectedVersion(w, r)
	if !ok {
		return
	}
	index, ok := itemIndex(w, r)
	if !ok {
		return
	}
	view, err := h.svc.RemoveItem(r.Context(), chi.URLParam(r, "id"), index, expected)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func itemIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "item index must be a non-negative integer", nil)
		return 0, false
	}
	return index, true
}

// expectedVersion reads an optional If-Match header carrying the cart version
// the caller last saw. A stale version makes the mutation fail with 409
// instead of silently overwriting a concurrent change.
func expectedVersion(w http.ResponseWriter, r *http.Request) (*int64, bool) {
	raw := r.Header.Get("If-Match")
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "If-Match must be a cart version number", nil)
		return nil, false
	}
	return &v, true
}
