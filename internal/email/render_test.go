package email

import (
	"strings"
	"testing"
)

func TestRenderOffer(t *testing.T) {
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	body, err := renderer.RenderOffer(OfferData{
		QuoteNumber:     "Q-2026-00042",
		RecipientName:   "Jan de Vries",
		Route:           "Rotterdam (NLRTM) to Singapore (SGSIN)",
		Currency:        "EUR",
		HaulageTotal:    "150.00",
		SeafreightTotal: "2200.00",
		GrandTotal:      "2585.00",
		ValidUntil:      "30 September 2026",
		SenderName:      "Forwarding Portal",
	})
	if err != nil {
		t.Fatalf("render offer: %v", err)
	}

	for _, want := range []string{"Q-2026-00042", "Jan de Vries", "NLRTM", "2585.00", "EUR", "30 September 2026"} {
		if !strings.Contains(body, want) {
			t.Fatalf("offer body missing %q", want)
		}
	}
	// Misc row has no value and must be omitted entirely.
	if strings.Contains(body, "Additional services") {
		t.Fatal("empty misc total should hide the misc row")
	}
}

func TestRenderSyncFailure(t *testing.T) {
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	body, err := renderer.RenderSyncFailure(SyncFailureData{
		DraftID:    "9b8e9f2a-1111-2222-3333-444455556666",
		Direction:  "to-db",
		Reason:     "upstream returned 502",
		OccurredAt: "2026-08-28 10:15 UTC",
		DraftURL:   "https://portal.example.com/drafts/9b8e9f2a",
	})
	if err != nil {
		t.Fatalf("render sync failure: %v", err)
	}

	for _, want := range []string{"9b8e9f2a", "to-db", "upstream returned 502", "https://portal.example.com/drafts/9b8e9f2a"} {
		if !strings.Contains(body, want) {
			t.Fatalf("alert body missing %q", want)
		}
	}
}

func TestFormatCents(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{150, "1.50"},
		{258500, "2585.00"},
		{-1234, "-12.34"},
	}
	for _, tc := range cases {
		if got := FormatCents(tc.cents); got != tc.want {
			t.Fatalf("FormatCents(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}
