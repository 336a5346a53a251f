package service

import (
	"testing"

	"forwarding_portal_backend/internal/drafts/transport"
)

func int64ptr(v int64) *int64 { return &v }

func TestComputeOptionTotals_PercentageMargin(t *testing.T) {
	input := transport.OptionPricingInput{
		Haulage:     []transport.HaulageLeg{{UnitPriceCents: 100}},
		MarginType:  transport.MarginPercentage,
		MarginValue: 10,
	}

	got := ComputeOptionTotals(input)

	if got.HaulageTotalCents != 100 {
		t.Fatalf("expected haulage 100, got %d", got.HaulageTotalCents)
	}
	if got.SeafreightTotalCents != 0 || got.MiscTotalCents != 0 {
		t.Fatalf("expected empty seafreight/misc totals, got %d/%d", got.SeafreightTotalCents, got.MiscTotalCents)
	}
	if got.SubtotalCents != 100 {
		t.Fatalf("expected subtotal 100, got %d", got.SubtotalCents)
	}
	if got.MarginAmountCents != 10 {
		t.Fatalf("expected margin 10, got %d", got.MarginAmountCents)
	}
	if got.GrandTotalCents != 110 {
		t.Fatalf("expected grand total 110, got %d", got.GrandTotalCents)
	}
}

func TestComputeOptionTotals_AmountMargin(t *testing.T) {
	input := transport.OptionPricingInput{
		Haulage:     []transport.HaulageLeg{{UnitPriceCents: 250}, {UnitPriceCents: 150}},
		MarginType:  transport.MarginAmount,
		MarginValue: 75,
	}

	got := ComputeOptionTotals(input)

	if got.SubtotalCents != 400 {
		t.Fatalf("expected subtotal 400, got %d", got.SubtotalCents)
	}
	if got.MarginAmountCents != 75 {
		t.Fatalf("expected margin 75, got %d", got.MarginAmountCents)
	}
	if got.GrandTotalCents != 475 {
		t.Fatalf("expected grand total 475, got %d", got.GrandTotalCents)
	}
}

func TestComputeOptionTotals_SeafreightContainerAggregation(t *testing.T) {
	input := transport.OptionPricingInput{
		Seafreight: []transport.SeafreightLeg{
			{
				BasePriceCents: 500,
				Surcharges:     []transport.Surcharge{{Code: "BAF", AmountCents: 50}},
				Containers: []transport.ContainerLine{
					{ContainerType: "20GP", Quantity: 2},
					{ContainerType: "40HC", Quantity: 2},
				},
			},
		},
	}

	got := ComputeOptionTotals(input)

	if got.SeafreightTotalCents != 2200 {
		t.Fatalf("expected seafreight total 2200, got %d", got.SeafreightTotalCents)
	}
	if got.GrandTotalCents != 2200 {
		t.Fatalf("expected grand total 2200, got %d", got.GrandTotalCents)
	}
}

func TestComputeOptionTotals_MultipleSeafreightLegs(t *testing.T) {
	input := transport.OptionPricingInput{
		Seafreight: []transport.SeafreightLeg{
			{
				BasePriceCents: 1000,
				Containers:     []transport.ContainerLine{{Quantity: 1}},
			},
			{
				BasePriceCents: 300,
				Surcharges:     []transport.Surcharge{{AmountCents: 100}, {AmountCents: 50}},
				Containers:     []transport.ContainerLine{{Quantity: 3}},
			},
		},
	}

	got := ComputeOptionTotals(input)

	// 1000*1 + (300+150)*3
	if got.SeafreightTotalCents != 2350 {
		t.Fatalf("expected seafreight total 2350, got %d", got.SeafreightTotalCents)
	}
}

func TestComputeOptionTotals_MiscPrefersUnitPrice(t *testing.T) {
	input := transport.OptionPricingInput{
		Misc: []transport.MiscService{
			{UnitPriceCents: int64ptr(100), TotalPriceCents: int64ptr(999)},
			{TotalPriceCents: int64ptr(40)},
			{}, // no price at all counts as 0
		},
	}

	got := ComputeOptionTotals(input)

	if got.MiscTotalCents != 140 {
		t.Fatalf("expected misc total 140, got %d", got.MiscTotalCents)
	}
}

func TestComputeOptionTotals_EmptySelectionsYieldZero(t *testing.T) {
	got := ComputeOptionTotals(transport.OptionPricingInput{})

	if got.SubtotalCents != 0 || got.GrandTotalCents != 0 || got.MarginAmountCents != 0 {
		t.Fatalf("expected all-zero breakdown, got %+v", got)
	}
}

func TestComputeOptionTotals_GrandTotalInvariant(t *testing.T) {
	input := transport.OptionPricingInput{
		Haulage: []transport.HaulageLeg{{UnitPriceCents: 123}},
		Seafreight: []transport.SeafreightLeg{
			{BasePriceCents: 77, Containers: []transport.ContainerLine{{Quantity: 4}}},
		},
		Misc:        []transport.MiscService{{UnitPriceCents: int64ptr(55)}},
		MarginType:  transport.MarginPercentage,
		MarginValue: 13,
	}

	got := ComputeOptionTotals(input)

	sum := got.HaulageTotalCents + got.SeafreightTotalCents + got.MiscTotalCents
	if got.SubtotalCents != sum {
		t.Fatalf("subtotal %d != component sum %d", got.SubtotalCents, sum)
	}
	if got.GrandTotalCents != got.SubtotalCents+got.MarginAmountCents {
		t.Fatalf("grand total %d != subtotal %d + margin %d", got.GrandTotalCents, got.SubtotalCents, got.MarginAmountCents)
	}
	if got.MarginAmountCents != got.SubtotalCents*13/100 {
		t.Fatalf("percentage margin %d != subtotal*13/100", got.MarginAmountCents)
	}
}

func TestComputeOptionTotals_Idempotent(t *testing.T) {
	input := transport.OptionPricingInput{
		Haulage: []transport.HaulageLeg{{UnitPriceCents: 100}},
		Seafreight: []transport.SeafreightLeg{
			{BasePriceCents: 500, Surcharges: []transport.Surcharge{{AmountCents: 50}}, Containers: []transport.ContainerLine{{Quantity: 2}}},
		},
		MarginType:  transport.MarginPercentage,
		MarginValue: 10,
	}

	first := ComputeOptionTotals(input)
	second := ComputeOptionTotals(input)

	if first != second {
		t.Fatalf("totals not idempotent: %+v vs %+v", first, second)
	}
}
