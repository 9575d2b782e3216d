package selection

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chariotlab/atelier-api/internal/catalog"
	"github.com/chariotlab/atelier-api/internal/common"
	"github.com/chariotlab/atelier-api/internal/pricing"
)

type Handler struct {
	catalog     *catalog.Service
	maxQuantity int
}

func NewHandler(cat *catalog.Service, maxQuantity int) *Handler {
	return &Handler{catalog: cat, maxQuantity: maxQuantity}
}

type quoteRequest struct {
	Material    string         `json:"material"`
	Quantity    any            `json:"quantity"`
	Accessories map[string]int `json:"accessories"`
	Toggle      *struct {
		Category    string `json:"category"`
		AccessoryID int    `json:"accessory_id"`
	} `json:"toggle"`
}

type quoteResponse struct {
	ProductID      string            `json:"product_id"`
	ProductName    string            `json:"product_name"`
	UnitPrice      pricing.Money     `json:"unit_price"`
	Selection      State             `json:"selection"`
	Accessories    []AccessoryChoice `json:"accessories"`
	AccessoryTotal pricing.Money     `json:"accessory_total"`
	LineTotal      pricing.Money     `json:"line_total"`
}

// Quote prices a product configuration without touching any cart. The caller
// sends the current state plus an optional toggle and gets back the
// normalized state and the derived totals.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON", nil)
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), productID)
	if err != nil {
		common.WriteError(w, err)
		return
	}

	state := State{
		Material:    req.Material,
		Quantity:    ParseQuantity(req.Quantity, h.maxQuantity),
		Accessories: req.Accessories,
	}
	if req.Toggle != nil {
		state.Toggle(req.Toggle.Category, req.Toggle.AccessoryID)
	}
	state, err = Normalize(state, h.maxQuantity)
	if err != nil {
		common.WriteError(w, err)
		return
	}

	choices := ResolveAccessories(state)
	prices := AccessoryPrices(choices)

	common.JSON(w, http.StatusOK, quoteResponse{
		ProductID:      product.ID,
		ProductName:    product.Name,
		UnitPrice:      product.Price,
		Selection:      state,
		Accessories:    choices,
		AccessoryTotal: pricing.AccessoryTotal(prices),
		LineTotal:      pricing.LineTotal(product.Price, prices, state.Quantity),
	})
}
