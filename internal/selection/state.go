package selection

import (
	"fmt"
	"net/http"

	"github.com/chariotlab/atelier-api/internal/catalog"
	"github.com/chariotlab/atelier-api/internal/common"
	"github.com/chariotlab/atelier-api/internal/pricing"
)

// State holds a configuration for a single product before it becomes a cart
// line: the chosen material, the quantity and at most one accessory per
// category.
type State struct {
	Material    string         `json:"material"`
	Quantity    int            `json:"quantity"`
	Accessories map[string]int `json:"accessories"`
}

// Toggle flips the accessory selection in a category. Selecting the accessory
// already held by the category clears it; selecting a different one replaces
// it. A category never carries more than one accessory.
func (s *State) Toggle(category string, id int) {
	if s.Accessories == nil {
		s.Accessories = make(map[string]int)
	}
	if cur, ok := s.Accessories[category]; ok && cur == id {
		delete(s.Accessories, category)
		return
	}
	s.Accessories[category] = id
}

// ParseQuantity coerces a raw quantity value into the valid range. Anything
// that is not a usable number becomes 1, and the result is clamped to
// [1, max].
func ParseQuantity(raw any, max int) int {
	if max < 1 {
		max = 1
	}
	q := coerceQuantity(raw)
	if q < 1 {
		q = 1
	}
	if q > max {
		q = max
	}
	return q
}

// ParseUpdateQuantity coerces a raw quantity for a line that already exists.
// Values below one pass through unchanged so the cart can leave the line
// untouched; only the upper bound is clamped.
func ParseUpdateQuantity(raw any, max int) int {
	if max < 1 {
		max = 1
	}
	q := coerceQuantity(raw)
	if q > max {
		q = max
	}
	return q
}

func coerceQuantity(raw any) int {
	switch v := raw.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		return common.AtoiDefault(v, 1)
	}
	return 1
}

// Normalize fills defaults and validates the state against the accessory
// catalog. The material defaults when empty and is rejected when unknown;
// every accessory reference must resolve.
func Normalize(s State, maxQty int) (State, error) {
	if s.Material == "" {
		s.Material = catalog.DefaultMaterial()
	}
	if !catalog.ValidMaterial(s.Material) {
		return State{}, common.NewAppError("INVALID_MATERIAL",
			fmt.Sprintf("unknown material %q", s.Material), http.StatusBadRequest, nil)
	}
	s.Quantity = ParseQuantity(s.Quantity, maxQty)
	for category, id := range s.Accessories {
		if _, ok := catalog.FindAccessory(category, id); !ok {
			return State{}, common.NewAppError("INVALID_ACCESSORY",
				fmt.Sprintf("no accessory %d in category %q", id, category), http.StatusBadRequest, nil)
		}
	}
	return s, nil
}

// AccessoryChoice is one resolved accessory on a configured product.
type AccessoryChoice struct {
	Category string        `json:"category"`
	ID       int           `json:"id"`
	Name     string        `json:"name"`
	Price    pricing.Money `json:"price"`
}

// ResolveAccessories looks up every selected accessory and returns the
// resolved choices in catalog category order, so two equal selections always
// serialize identically.
func ResolveAccessories(s State) []AccessoryChoice {
	var out []AccessoryChoice
	for _, cat := range catalog.AccessoryCategories() {
		id, ok := s.Accessories[cat.Key]
		if !ok {
			continue
		}
		acc, ok := catalog.FindAccessory(cat.Key, id)
		if !ok {
			continue
		}
		out = append(out, AccessoryChoice{
			Category: cat.Key,
			ID:       acc.ID,
			Name:     acc.Name,
			Price:    acc.Price,
		})
	}
	return out
}

// AccessoryPrices extracts just the prices from resolved choices, in the same
// order.
func AccessoryPrices(choices []AccessoryChoice) []pricing.Money {
	prices := make([]pricing.Money, 0, len(choices))
	for _, c := range choices {
		prices = append(prices, c.Price)
	}
	return prices
}
