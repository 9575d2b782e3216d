package cart

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chariotlab/atelier-api/internal/catalog"
	"github.com/chariotlab/atelier-api/internal/events"
	"github.com/chariotlab/atelier-api/internal/selection"
)

type staticFeed []catalog.Product

func (f staticFeed) Fetch(ctx context.Context) ([]catalog.Product, error) {
	return f, nil
}

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cat, err := catalog.NewService(catalog.ServiceConfig{Source: staticFeed{
		{ID: "module-100", Name: "Module 100", Price: 10000, Department: "montage"},
		{ID: "module-200", Name: "Module 200", Price: 20000, Department: "peinture"},
	}})
	require.NoError(t, err)

	store := NewStore(client, 0, zerolog.Nop())
	return NewService(store, cat, events.NewBus(), 100, zerolog.Nop()), mr
}

func TestCreateAndGetEmptyCart(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(1), created.Version)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.Zero(t, got.Total)
	assert.Zero(t, got.Count)
}

func TestAddItemDerivesTotals(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx)
	require.NoError(t, err)

	state := selection.State{
		Quantity: 3,
		Accessories: map[string]int{
			"support":  1, // 50 €
			"fixation": 7, // 30 €
		},
	}
	view, err := svc.AddItem(ctx, created.ID, "module-100", state, nil)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)

	item := view.Items[0]
	assert.Equal(t, "AIO", item.Material)
	assert.Equal(t, int64(8000), item.AccessoryTotal)
	assert.Equal(t, int64(54000), item.LineTotal)
	assert.Equal(t, int64(54000), view.Total)
	assert.Equal(t, 3, view.Count)
	assert.Equal(t, int64(2), view.Version)
}

func TestAddItemUnknownProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, created.ID, "missing", selection.State{Quantity: 1}, nil)
	require.Error(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestRemoveMiddleItemKeepsOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx)
	require.NoError(t, err)

	for _, pid := range []string{"module-100", "module-200", "module-100"} {
		_, err := svc.AddItem(ctx, created.ID, pid, selection.State{Quantity: 1}, nil)
		require.NoError(t, err)
	}

	view, err := svc.RemoveItem(ctx, created.ID, 1, nil)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "module-100", view.Items[0].ProductID)
	assert.Equal(t, "module-100", view.Items[1].ProductID)
}

func TestRemoveOutOfRange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.RemoveItem(ctx, created.ID, 0, nil)
	require.Error(t, err)
}

func TestUpdateQuantityRules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, created.ID, "module-100", selection.State{Quantity: 2}, nil)
	require.NoError(t, err)

	// below one leaves the line untouched
	view, err := svc.UpdateQuantity(ctx, created.ID, 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Items[0].Quantity)

	// above the maximum clamps
	view, err = svc.UpdateQuantity(ctx, created.ID, 0, 5000, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, view.Items[0].Quantity)

	view, err = svc.UpdateQuantity(ctx, created.ID, 0, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, view.Items[0].Quantity)
	assert.Equal(t, 7, view.Count)
}

func TestVersionConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx)
	require.NoError(t, err)

	// a concurrent writer bumps the version past what we saw
	_, err = svc.AddItem(ctx, created.ID, "module-100", selection.State{Quantity: 1}, nil)
	require.NoError(t, err)

	stale := created.Version
	_, err = svc.AddItem(ctx, created.ID, "module-200", selection.State{Quantity: 1}, &stale)
	require.ErrorIs(t, err, ErrConflict)

	current := int64(2)
	view, err := svc.AddItem(ctx, created.ID, "module-200", selection.State{Quantity: 1}, &current)
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
}

func TestCorruptedPayloadStartsOverEmpty(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("cart:broken", "{not json"))

	view, err := svc.Get(ctx, "broken")
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.Version)

	// the next write starts a fresh envelope
	got, err := svc.AddItem(ctx, "broken", "module-100", selection.State{Quantity: 1}, nil)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, int64(1), got.Version)
}

func TestCartUpdatedEventFires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cat, err := catalog.NewService(catalog.ServiceConfig{Source: staticFeed{
		{ID: "module-100", Name: "Module 100", Price: 10000},
	}})
	require.NoError(t, err)

	bus := events.NewBus()
	var seen []CartUpdated
	require.NoError(t, bus.Subscribe(events.TopicCartUpdated, func(ctx context.Context, ev events.Event) error {
		seen = append(seen, ev.Payload.(CartUpdated))
		return nil
	}))

	svc := NewService(NewStore(client, 0, zerolog.Nop()), cat, bus, 100, zerolog.Nop())
	ctx := context.Background()

	created, err := svc.Create(ctx)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, created.ID, "module-100", selection.State{Quantity: 4}, nil)
	require.NoError(t, err)
	_, err = svc.UpdateQuantity(ctx, created.ID, 0, 2, nil)
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, created.ID, seen[0].CartID)
	assert.Equal(t, 4, seen[0].Count)
	assert.Equal(t, 2, seen[1].Count)
}
