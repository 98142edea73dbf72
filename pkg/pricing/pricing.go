// Package pricing is the single source of truth for the downsell offer.
// Every surface that shows a discounted price goes through DownsellPrice;
// nothing else is allowed to re-derive the discount.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/migratemate/retention-backend/pkg/enums"
)

// Fixed discount pairs for the plans currently sold, in cents. Any other
// price falls back to the generic reduction.
var fixedDiscounts = map[int64]int64{
	2500: 1500,
	2900: 1900,
}

const genericReductionCents int64 = 1000

// DownsellPrice returns the price (in cents) shown to a user on the downsell
// offer for the given variant. Variant A sees no discount.
func DownsellPrice(variant enums.DownsellVariant, monthlyPriceCents int64) int64 {
	if variant != enums.DownsellVariantB {
		return monthlyPriceCents
	}
	if discounted, ok := fixedDiscounts[monthlyPriceCents]; ok {
		return discounted
	}
	discounted := monthlyPriceCents - genericReductionCents
	if discounted < 0 {
		return 0
	}
	return discounted
}

// FormatPrice renders cents as a display amount, e.g. 2500 -> "$25.00".
func FormatPrice(cents int64) string {
	return "$" + decimal.NewFromInt(cents).Shift(-2).StringFixed(2)
}
