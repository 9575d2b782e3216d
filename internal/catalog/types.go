package catalog

import "github.com/chariotlab/atelier-api/internal/pricing"

// Product is a normalised entry of the upstream equipment feed. A product is
// the configurable "base" the storefront sells; accessories and materials are
// attached at selection time.
type Product struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Price      pricing.Money `json:"price"`
	Image      string        `json:"image,omitempty"`
	Size       string        `json:"size,omitempty"`
	Department string        `json:"department,omitempty"`
	Material   string        `json:"material,omitempty"`
}

// Accessory is an optional add-on attached to a base, identified by a numeric
// id unique across all categories.
type Accessory struct {
	ID    int           `json:"id"`
	Name  string        `json:"name"`
	Price pricing.Money `json:"price"`
	Image string        `json:"image,omitempty"`
}

// AccessoryCategory groups accessories; at most one accessory per category
// can be attached to a selection. Items keep their insertion order, which is
// also the display order.
type AccessoryCategory struct {
	Key   string      `json:"key"`
	Name  string      `json:"name"`
	Items []Accessory `json:"items"`
}
