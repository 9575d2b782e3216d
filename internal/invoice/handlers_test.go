package invoice_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chariotlab/atelier-api/internal/cart"
	"github.com/chariotlab/atelier-api/internal/catalog"
	"github.com/chariotlab/atelier-api/internal/events"
	"github.com/chariotlab/atelier-api/internal/invoice"
)

type staticFeed []catalog.Product

func (f staticFeed) Fetch(ctx context.Context) ([]catalog.Product, error) {
	return f, nil
}

func newRouter(t *testing.T) (chi.Router, *cart.Service, *events.Bus) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cat, err := catalog.NewService(catalog.ServiceConfig{Source: staticFeed{
		{ID: "module-100", Name: "Module standard", Price: 10000},
	}})
	require.NoError(t, err)

	bus := events.NewBus()
	svc := cart.NewService(cart.NewStore(client, 0, zerolog.Nop()), cat, bus, 100, zerolog.Nop())
	gen := &invoice.Generator{
		Now:         func() time.Time { return time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC) },
		OrderNumber: func() int { return 777 },
		Logger:      zerolog.Nop(),
	}
	handler := invoice.NewHandler(svc, gen, bus, zerolog.Nop())
	cartHandler := cart.NewHandler(svc)

	r := chi.NewRouter()
	r.Post("/api/v1/carts", cartHandler.Create)
	r.Get("/api/v1/carts/{id}", cartHandler.Get)
	r.Post("/api/v1/carts/{id}/items", cartHandler.AddItem)
	r.Get("/api/v1/carts/{id}/invoice", handler.Download)
	return r, svc, bus
}

func TestDownloadFullFlow(t *testing.T) {
	r, _, bus := newRouter(t)

	var emitted []invoice.InvoiceEmitted
	require.NoError(t, bus.Subscribe(events.TopicInvoiceEmitted, func(ctx context.Context, ev events.Event) error {
		emitted = append(emitted, ev.Payload.(invoice.InvoiceEmitted))
		return nil
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/carts", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data cart.View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	cartID := created.Data.ID

	// two identical configurations: 100 € module + 180 € of accessories each
	payload := `{"productId":"module-100","material":"AIO","quantity":1,"accessories":{"support":2,"fixation":8,"eclairage":9}}`
	for i := 0; i < 2; i++ {
		rec = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/"+cartID+"/items", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/carts/"+cartID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Data cart.View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Data.Items, 2)
	// 100 + 75 + 45 + 60 = 280 € per line
	assert.Equal(t, int64(28000), got.Data.Items[0].LineTotal)
	assert.Equal(t, int64(56000), got.Data.Total)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/carts/"+cartID+"/invoice", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="bon-de-commande.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF", rec.Body.String()[:4])

	require.Len(t, emitted, 1)
	assert.Equal(t, cartID, emitted[0].CartID)
	assert.Equal(t, 777, emitted[0].OrderNumber)
}

func TestDownloadEmptyCart(t *testing.T) {
	r, svc, _ := newRouter(t)

	view, err := svc.Create(context.Background())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/carts/"+view.ID+"/invoice", nil))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "EMPTY_CART")
}
