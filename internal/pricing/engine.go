package pricing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money represents a monetary value stored in minor units (euro cents).
type Money = int64

// Line describes the priced inputs of a single cart entry. Totals are always
// derived from these inputs at read time, never stored alongside them.
type Line struct {
	UnitPrice       Money
	AccessoryPrices []Money
	Quantity        int
}

// AccessoryTotal sums the accessory prices of a line.
func AccessoryTotal(prices []Money) Money {
	var sum Money
	for _, p := range prices {
		sum += p
	}
	return sum
}

// LineTotal computes (unit price + accessory prices) * quantity. Quantities
// below one contribute nothing; callers clamp input before it reaches here.
func LineTotal(unitPrice Money, accessoryPrices []Money, quantity int) Money {
	if quantity < 1 {
		return 0
	}
	return (unitPrice + AccessoryTotal(accessoryPrices)) * Money(quantity)
}

// CartTotal aggregates line totals over already-resolved line inputs.
func CartTotal(lines []Line) Money {
	var total Money
	for _, line := range lines {
		total += LineTotal(line.UnitPrice, line.AccessoryPrices, line.Quantity)
	}
	return total
}

// ParseAmount normalises an upstream price value into Money. The feed may
// deliver prices as JSON numbers or numeric strings ("99.90"); both are
// accepted. Negative amounts are rejected.
func ParseAmount(raw any) (Money, error) {
	switch v := raw.(type) {
	case nil:
		return 0, fmt.Errorf("pricing: missing amount")
	case float64:
		return fromFloat(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, fmt.Errorf("pricing: empty amount")
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, fmt.Errorf("pricing: parse amount %q: %w", trimmed, err)
		}
		return fromFloat(parsed)
	default:
		return 0, fmt.Errorf("pricing: unsupported amount type %T", raw)
	}
}

// FormatEuro renders a Money value as a French-style euro amount ("99,90").
// Whole amounts drop the decimal part, matching the storefront's display.
func FormatEuro(amount Money) string {
	euros := amount / 100
	cents := amount % 100
	if cents < 0 {
		cents = -cents
	}
	if cents == 0 {
		return strconv.FormatInt(euros, 10)
	}
	return fmt.Sprintf("%d,%02d", euros, cents)
}

func fromFloat(v float64) (Money, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("pricing: invalid amount %v", v)
	}
	if v < 0 {
		return 0, fmt.Errorf("pricing: negative amount %v", v)
	}
	return Money(math.Round(v * 100)), nil
}
