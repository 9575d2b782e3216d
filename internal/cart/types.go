package cart

import (
	"github.com/chariotlab/atelier-api/internal/pricing"
	"github.com/chariotlab/atelier-api/internal/selection"
)

// LineItem is a configured product as persisted in a cart. Only the priced
// inputs are stored; totals are derived whenever the cart is read.
type LineItem struct {
	ProductID   string                      `json:"productId"`
	ProductName string                      `json:"productName"`
	Image       string                      `json:"image,omitempty"`
	UnitPrice   pricing.Money               `json:"unitPrice"`
	Material    string                      `json:"material"`
	Quantity    int                         `json:"quantity"`
	Accessories []selection.AccessoryChoice `json:"accessories"`
}

func (li LineItem) accessoryPrices() []pricing.Money {
	prices := make([]pricing.Money, 0, len(li.Accessories))
	for _, acc := range li.Accessories {
		prices = append(prices, acc.Price)
	}
	return prices
}

// ItemView is a line item with its derived totals attached.
type ItemView struct {
	LineItem
	AccessoryTotal pricing.Money `json:"accessoryTotal"`
	LineTotal      pricing.Money `json:"lineTotal"`
}

// View is a full cart as returned to callers, totals computed at read time.
type View struct {
	ID           string        `json:"id"`
	Version      int64         `json:"version"`
	Items        []ItemView    `json:"items"`
	Count        int           `json:"count"`
	Total        pricing.Money `json:"total"`
	TotalDisplay string        `json:"totalDisplay"`
}

func buildView(id string, rec record) View {
	items := make([]ItemView, 0, len(rec.Items))
	count := 0
	var total pricing.Money
	for _, li := range rec.Items {
		prices := li.accessoryPrices()
		lineTotal := pricing.LineTotal(li.UnitPrice, prices, li.Quantity)
		items = append(items, ItemView{
			LineItem:       li,
			AccessoryTotal: pricing.AccessoryTotal(prices),
			LineTotal:      lineTotal,
		})
		count += li.Quantity
		total += lineTotal
	}
	return View{
		ID:           id,
		Version:      rec.Version,
		Items:        items,
		Count:        count,
		Total:        total,
		TotalDisplay: pricing.FormatEuro(total),
	}
}
