package service

import (
	"forwarding_portal_backend/internal/drafts/transport"
)

// haulageTotal sums the unit prices of the selected haulage legs.
func haulageTotal(legs []transport.HaulageLeg) int64 {
	var total int64
	for _, leg := range legs {
		total += leg.UnitPriceCents
	}
	return total
}

// seafreightTotal prices each leg per container and multiplies by every
// container line's quantity. With base 500, one surcharge 50 and two
// container lines of quantity 2 each, the total is (550*2)+(550*2) = 2200.
func seafreightTotal(legs []transport.SeafreightLeg) int64 {
	var total int64
	for _, leg := range legs {
		perContainer := leg.BasePriceCents
		for _, surcharge := range leg.Surcharges {
			perContainer += surcharge.AmountCents
		}
		for _, line := range leg.Containers {
			total += perContainer * int64(line.Quantity)
		}
	}
	return total
}

// miscTotal sums the selected ancillary services, preferring the unit price
// when both a unit and a total price are present. Missing prices count as 0.
func miscTotal(services []transport.MiscService) int64 {
	var total int64
	for _, svc := range services {
		switch {
		case svc.UnitPriceCents != nil:
			total += *svc.UnitPriceCents
		case svc.TotalPriceCents != nil:
			total += *svc.TotalPriceCents
		}
	}
	return total
}

// marginAmount converts the margin descriptor into an absolute amount.
func marginAmount(subtotal int64, marginType transport.MarginType, marginValue int64) int64 {
	if marginType == transport.MarginPercentage {
		return subtotal * marginValue / 100
	}
	return marginValue
}

// ComputeOptionTotals computes the deterministic cost breakdown for one
// option. It is a pure function: the same input always yields the same
// breakdown, and an option with zero selections yields all-zero totals.
// Currency is carried opaquely elsewhere and never converted here.
func ComputeOptionTotals(input transport.OptionPricingInput) transport.OptionBreakdown {
	marginType := input.MarginType
	if marginType == "" {
		marginType = transport.MarginAmount
	}

	haulage := haulageTotal(input.Haulage)
	seafreight := seafreightTotal(input.Seafreight)
	misc := miscTotal(input.Misc)
	subtotal := haulage + seafreight + misc
	margin := marginAmount(subtotal, marginType, input.MarginValue)

	return transport.OptionBreakdown{
		HaulageTotalCents:    haulage,
		SeafreightTotalCents: seafreight,
		MiscTotalCents:       misc,
		SubtotalCents:        subtotal,
		MarginAmountCents:    margin,
		GrandTotalCents:      subtotal + margin,
	}
}
