package cart

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chariotlab/atelier-api/internal/catalog"
	"github.com/chariotlab/atelier-api/internal/common"
	"github.com/chariotlab/atelier-api/internal/events"
	"github.com/chariotlab/atelier-api/internal/obs"
	"github.com/chariotlab/atelier-api/internal/selection"
)

// CartUpdated is the payload emitted on events.TopicCartUpdated.
type CartUpdated struct {
	CartID string
	Count  int
}

// Service owns cart lifecycle and mutation rules. Every mutation goes through
// the store's optimistic-concurrency path and broadcasts a change event so
// observers (counters, logs) pick up the new state.
type Service struct {
	store       *Store
	catalog     *catalog.Service
	bus         *events.Bus
	logger      zerolog.Logger
	maxQuantity int
}

func NewService(store *Store, cat *catalog.Service, bus *events.Bus, maxQuantity int, logger zerolog.Logger) *Service {
	if maxQuantity < 1 {
		maxQuantity = 100
	}
	return &Service{store: store, catalog: cat, bus: bus, logger: logger, maxQuantity: maxQuantity}
}

// MaxQuantity is the upper bound applied to line quantities.
func (s *Service) MaxQuantity() int {
	return s.maxQuantity
}

// Create allocates a new empty cart and returns its view.
func (s *Service) Create(ctx context.Context) (View, error) {
	id := uuid.NewString()
	rec, err := s.store.Init(ctx, id)
	if err != nil {
		return View{}, err
	}
	return buildView(id, rec), nil
}

// Get returns the cart with totals derived from the stored line inputs.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	rec, err := s.store.Load(ctx, id)
	if err != nil {
		return View{}, err
	}
	return buildView(id, rec), nil
}

// Count returns the summed quantity across all lines.
func (s *Service) Count(ctx context.Context, id string) (int, error) {
	view, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return view.Count, nil
}

// AddItem resolves a product configuration against the catalog and appends it
// as a new line.
func (s *Service) AddItem(ctx context.Context, id, productID string, state selection.State, expected *int64) (View, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return View{}, err
	}
	state, err = selection.Normalize(state, s.maxQuantity)
	if err != nil {
		return View{}, err
	}
	item := LineItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Image:       product.Image,
		UnitPrice:   product.Price,
		Material:    state.Material,
		Quantity:    state.Quantity,
		Accessories: selection.ResolveAccessories(state),
	}
	return s.mutate(ctx, id, "add", expected, func(items []LineItem) ([]LineItem, error) {
		return append(items, item), nil
	})
}

// UpdateQuantity sets the quantity of the line at index. Values below one
// leave the line untouched; values above the maximum are clamped.
func (s *Service) UpdateQuantity(ctx context.Context, id string, index, quantity int, expected *int64) (View, error) {
	return s.mutate(ctx, id, "update_quantity", expected, func(items []LineItem) ([]LineItem, error) {
		if index < 0 || index >= len(items) {
			return nil, itemNotFound(index)
		}
		if quantity < 1 {
			return items, nil
		}
		if quantity > s.maxQuantity {
			quantity = s.maxQuantity
		}
		items[index].Quantity = quantity
		return items, nil
	})
}

// RemoveItem deletes the line at index; the lines after it shift left.
func (s *Service) RemoveItem(ctx context.Context, id string, index int, expected *int64) (View, error) {
	return s.mutate(ctx, id, "remove", expected, func(items []LineItem) ([]LineItem, error) {
		if index < 0 || index >= len(items) {
			return nil, itemNotFound(index)
		}
		return append(items[:index], items[index+1:]...), nil
	})
}

func (s *Service) mutate(ctx context.Context, id, op string, expected *int64, fn func(items []LineItem) ([]LineItem, error)) (View, error) {
	rec, err := s.store.Mutate(ctx, id, expected, fn)
	if err != nil {
		if obs.CartMutationsTotal != nil {
			obs.CartMutationsTotal.WithLabelValues(op, "error").Inc()
		}
		return View{}, err
	}
	view := buildView(id, rec)
	if obs.CartMutationsTotal != nil {
		obs.CartMutationsTotal.WithLabelValues(op, "ok").Inc()
	}
	if obs.CartItemsGauge != nil {
		obs.CartItemsGauge.Set(float64(view.Count))
	}
	if s.bus != nil {
		if err := s.bus.Emit(ctx, events.TopicCartUpdated, CartUpdated{CartID: id, Count: view.Count}); err != nil {
			s.logger.Warn().Err(err).Str("cart_id", id).Msg("cart update broadcast failed")
		}
	}
	return view, nil
}

func itemNotFound(index int) error {
	err := common.NewAppError("ITEM_NOT_FOUND", "no cart item at that position", http.StatusNotFound, nil)
	err.Details = map[string]int{"index": index}
	return err
}
