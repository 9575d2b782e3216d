package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chariotlab/atelier-api/internal/pricing"
)

func TestLineTotal(t *testing.T) {
	// base 100 €, accessories 50 € and 30 €, quantity 3 -> 540 €
	total := pricing.LineTotal(10000, []pricing.Money{5000, 3000}, 3)
	require.Equal(t, pricing.Money(54000), total)
}

func TestLineTotalNoAccessories(t *testing.T) {
	require.Equal(t, pricing.Money(20000), pricing.LineTotal(10000, nil, 2))
}

func TestLineTotalZeroQuantity(t *testing.T) {
	require.Equal(t, pricing.Money(0), pricing.LineTotal(10000, []pricing.Money{5000}, 0))
}

func TestCartTotal(t *testing.T) {
	lines := []pricing.Line{
		{UnitPrice: 10000, AccessoryPrices: []pricing.Money{7500}, Quantity: 2},
		{UnitPrice: 10000, AccessoryPrices: []pricing.Money{7500}, Quantity: 2},
	}
	require.Equal(t, pricing.Money(70000), pricing.CartTotal(lines))
}

func TestCartTotalEmpty(t *testing.T) {
	require.Equal(t, pricing.Money(0), pricing.CartTotal(nil))
}

func TestCartTotalMatchesSumOfLineTotals(t *testing.T) {
	lines := []pricing.Line{
		{UnitPrice: 9990, AccessoryPrices: []pricing.Money{4500, 6000}, Quantity: 1},
		{UnitPrice: 12000, AccessoryPrices: nil, Quantity: 4},
		{UnitPrice: 100, AccessoryPrices: []pricing.Money{1}, Quantity: 7},
	}
	var expected pricing.Money
	for _, line := range lines {
		expected += pricing.LineTotal(line.UnitPrice, line.AccessoryPrices, line.Quantity)
	}
	require.Equal(t, expected, pricing.CartTotal(lines))
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		name    string
		raw     any
		want    pricing.Money
		wantErr bool
	}{
		{name: "number", raw: float64(100), want: 10000},
		{name: "decimal number", raw: 99.9, want: 9990},
		{name: "numeric string", raw: "75", want: 7500},
		{name: "decimal string", raw: "99.90", want: 9990},
		{name: "padded string", raw: "  45 ", want: 4500},
		{name: "negative", raw: float64(-1), wantErr: true},
		{name: "garbage", raw: "abc", wantErr: true},
		{name: "missing", raw: nil, wantErr: true},
		{name: "wrong type", raw: true, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := pricing.ParseAmount(tc.raw)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestFormatEuro(t *testing.T) {
	require.Equal(t, "100", pricing.FormatEuro(10000))
	require.Equal(t, "99,90", pricing.FormatEuro(9990))
	require.Equal(t, "0,05", pricing.FormatEuro(5))
}
