package invoice

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/chariotlab/atelier-api/internal/cart"
	"github.com/chariotlab/atelier-api/internal/common"
	"github.com/chariotlab/atelier-api/internal/events"
	"github.com/chariotlab/atelier-api/internal/lock"
	"github.com/chariotlab/atelier-api/internal/obs"
)

const downloadFilename = "bon-de-commande.pdf"

// InvoiceEmitted is the payload published on events.TopicInvoiceEmitted.
type InvoiceEmitted struct {
	CartID      string
	OrderNumber int
	Bytes       int
}

// Handler serves the order form download endpoint.
type Handler struct {
	carts     *cart.Service
	generator *Generator
	bus       *events.Bus
	locker    *lock.Locker
	logger    zerolog.Logger
}

func NewHandler(carts *cart.Service, generator *Generator, bus *events.Bus, logger zerolog.Logger) *Handler {
	return &Handler{carts: carts, generator: generator, bus: bus, logger: logger}
}

// WithLocker serialises generation per cart, so a double download does not
// render two forms with different order numbers concurrently.
func (h *Handler) WithLocker(locker *lock.Locker) *Handler {
	h.locker = locker
	return h
}

// Download renders the cart into a PDF order form and streams it back as an
// attachment.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "id")
	view, err := h.carts.Get(r.Context(), cartID)
	if err != nil {
		common.WriteError(w, err)
		return
	}

	start := time.Now()
	var doc Document
	if h.locker != nil {
		err = h.locker.WithLock(r.Context(), "invoice:lock:"+cartID, 30*time.Second, func(ctx context.Context) error {
			var genErr error
			doc, genErr = h.generator.Generate(ctx, view)
			return genErr
		})
	} else {
		doc, err = h.generator.Generate(r.Context(), view)
	}
	if obs.InvoiceGenerateLatency != nil {
		obs.InvoiceGenerateLatency.Observe(obs.DurationMillis(time.Since(start)))
	}
	if err != nil {
		if obs.InvoiceGeneratedTotal != nil {
			obs.InvoiceGeneratedTotal.WithLabelValues(string(doc.Status)).Inc()
		}
		if !common.IsAppError(err) {
			h.logger.Error().Err(err).Str("cart_id", cartID).Msg("order form generation failed")
		}
		common.WriteError(w, err)
		return
	}
	if obs.InvoiceGeneratedTotal != nil {
		obs.InvoiceGeneratedTotal.WithLabelValues("ok").Inc()
	}

	if h.bus != nil {
		if err := h.bus.Emit(r.Context(), events.TopicInvoiceEmitted, InvoiceEmitted{
			CartID:      cartID,
			OrderNumber: doc.OrderNumber,
			Bytes:       len(doc.PDF),
		}); err != nil {
			h.logger.Warn().Err(err).Str("cart_id", cartID).Msg("invoice event delivery failed")
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+downloadFilename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.PDF)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.PDF)
}
