// Package shipping holds the storefront shipping-rate policy.
package shipping

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// DeliveryMethod is how an order reaches the customer
type DeliveryMethod string

const (
	DeliveryMethodShipping DeliveryMethod = "shipping"
	DeliveryMethodPickup   DeliveryMethod = "pickup"
)

// IsPickup reports whether the method is in-store pickup. Comparison is
// case-insensitive.
func (m DeliveryMethod) IsPickup() bool {
	return strings.EqualFold(strings.TrimSpace(string(m)), string(DeliveryMethodPickup))
}

// Flat fallback rates used when the cart carries no weight information
const (
	FallbackRateLagos int64 = 3000
	FallbackRateOther int64 = 5000
)

// lagosState is the normalized state name that gets the Lagos rate column
const lagosState = "lagos"

// Band is a weight band with an inclusive upper bound in kilograms.
// A zero MaxKg marks the open-ended last band.
type Band struct {
	MaxKg decimal.Decimal
	Lagos int64
	Other int64
}

// Unbounded reports whether the band has no upper bound
func (b Band) Unbounded() bool {
	return b.MaxKg.IsZero()
}

// Bands is the weight band table, ordered by ascending upper bound
var Bands = []Band{
	{MaxKg: decimal.NewFromInt(2), Lagos: 2500, Other: 4000},
	{MaxKg: decimal.NewFromInt(5), Lagos: 3500, Other: 5500},
	{MaxKg: decimal.NewFromInt(10), Lagos: 4500, Other: 7000},
	{Lagos: 6000, Other: 9000},
}

// Item is a cart line as seen by the rate calculator.
// WeightKg is optional; a nil weight counts as zero.
type Item struct {
	Quantity int      `json:"quantity"`
	WeightKg *float64 `json:"weightKg,omitempty"`
}

// Quote is a derived shipping quote; it is never persisted
type Quote struct {
	DeliveryMethod DeliveryMethod `json:"deliveryMethod"`
	State          string         `json:"state,omitempty"`
	TotalWeightKg  float64        `json:"totalWeightKg"`
	RateMinor      int64          `json:"rateMinor"`
}

// NormalizeState lower-cases (Unicode case folding) and trims a state name.
// A Caser is stateful, so one is built per call.
func NormalizeState(state string) string {
	return cases.Fold().String(strings.TrimSpace(state))
}

// TotalWeight returns Σ(weightKg × quantity). Items without a weight, or with a
// non-positive quantity, contribute nothing.
func TotalWeight(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.WeightKg == nil || item.Quantity <= 0 {
			continue
		}
		total = total.Add(decimal.NewFromFloat(*item.WeightKg).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// Rate returns the shipping rate in minor currency units.
//
// Policy, in order: pickup is free; a cart with no weight pays the flat
// fallback for its state; otherwise the first band whose upper bound is at
// least the total weight applies, split between Lagos and everywhere else.
func Rate(method DeliveryMethod, state string, items []Item) int64 {
	return Calculate(method, state, items).RateMinor
}

// Calculate computes the full quote for the given delivery method, state and items
func Calculate(method DeliveryMethod, state string, items []Item) Quote {
	quote := Quote{
		DeliveryMethod: method,
		State:          state,
	}
	if method.IsPickup() {
		return quote
	}

	total := TotalWeight(items)
	quote.TotalWeightKg = total.InexactFloat64()
	lagos := NormalizeState(state) == lagosState

	if total.LessThanOrEqual(decimal.Zero) {
		if lagos {
			quote.RateMinor = FallbackRateLagos
		} else {
			quote.RateMinor = FallbackRateOther
		}
		return quote
	}

	band := BandFor(total)
	if lagos {
		quote.RateMinor = band.Lagos
	} else {
		quote.RateMinor = band.Other
	}
	return quote
}

// BandFor returns the first band whose upper bound is >= weight
func BandFor(weight decimal.Decimal) Band {
	for _, band := range Bands {
		if band.Unbounded() || weight.LessThanOrEqual(band.MaxKg) {
			return band
		}
	}
	return Bands[len(Bands)-1]
}
