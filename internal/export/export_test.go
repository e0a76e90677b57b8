package export

import (
	"strings"
	"testing"
)

func TestRenderDealHTML(t *testing.T) {
	record := DealRecord{
		ConcernID:    "con_1",
		Category:     "Health Insurance",
		Summary:      "Cashless claim denied at network hospital",
		Status:       "VERIFIED",
		OwnerName:    "Priya",
		ProviderName: "Ravi Broker",
		ProviderRole: "BROKER",
		ProposalText: "I can escalate this with the insurer's grievance cell.",
		VerifiedBy:   "Asha Admin",
		VerifiedAt:   "2026-02-11",
		Events: []DealEvent{
			{When: "2026-02-10", What: "deal_accepted", Actor: "Priya"},
			{When: "2026-02-11", What: "deal_verified", Actor: "Asha Admin"},
		},
	}

	html, err := RenderDealHTML(record)
	if err != nil {
		t.Fatalf("RenderDealHTML failed: %v", err)
	}

	for _, want := range []string{
		"Cashless claim denied at network hospital",
		"Ravi Broker",
		"Asha Admin",
		"deal_verified",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered record missing %q", want)
		}
	}
}

func TestRenderDealHTMLEscapesMarkup(t *testing.T) {
	record := DealRecord{
		ConcernID:    "con_2",
		Summary:      "<script>alert(1)</script>",
		ProposalText: "plain",
	}
	html, err := RenderDealHTML(record)
	if err != nil {
		t.Fatalf("RenderDealHTML failed: %v", err)
	}
	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Error("summary markup should be escaped")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"deal-record-con_1", "deal-record-con_1"},
		{"weird / name?", "weird--name"},
		{"", "deal-record"},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
