package selection_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chariotlab/atelier-api/internal/catalog"
	"github.com/chariotlab/atelier-api/internal/selection"
)

type staticFeed []catalog.Product

func (f staticFeed) Fetch(ctx context.Context) ([]catalog.Product, error) {
	return f, nil
}

func newQuoteRouter(t *testing.T) chi.Router {
	t.Helper()
	cat, err := catalog.NewService(catalog.ServiceConfig{Source: staticFeed{
		{ID: "module-100", Name: "Module standard", Price: 10000},
	}})
	require.NoError(t, err)
	handler := selection.NewHandler(cat, 100)
	r := chi.NewRouter()
	r.Post("/products/{id}/quote", handler.Quote)
	return r
}

func TestQuoteDerivesTotals(t *testing.T) {
	r := newQuoteRouter(t)

	payload := `{"quantity":3,"accessories":{"support":1,"fixation":7}}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products/module-100/quote", bytes.NewBufferString(payload)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		ProductID      string          `json:"product_id"`
		UnitPrice      int64           `json:"unit_price"`
		Selection      selection.State `json:"selection"`
		AccessoryTotal int64           `json:"accessory_total"`
		LineTotal      int64           `json:"line_total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "module-100", body.ProductID)
	assert.Equal(t, "AIO", body.Selection.Material)
	assert.Equal(t, int64(8000), body.AccessoryTotal)
	// (100 + 80) * 3
	assert.Equal(t, int64(54000), body.LineTotal)
}

func TestQuoteAppliesToggle(t *testing.T) {
	r := newQuoteRouter(t)

	// toggling the accessory already selected clears it
	payload := `{"quantity":1,"accessories":{"support":1},"toggle":{"category":"support","accessory_id":1}}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products/module-100/quote", bytes.NewBufferString(payload)))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		AccessoryTotal int64 `json:"accessory_total"`
		LineTotal      int64 `json:"line_total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Zero(t, body.AccessoryTotal)
	assert.Equal(t, int64(10000), body.LineTotal)
}

func TestQuoteRejectsUnknownMaterial(t *testing.T) {
	r := newQuoteRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products/module-100/quote",
		bytes.NewBufferString(`{"material":"CARDBOARD"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_MATERIAL")
}

func TestQuoteUnknownProduct(t *testing.T) {
	r := newQuoteRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products/missing/quote",
		bytes.NewBufferString(`{}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
