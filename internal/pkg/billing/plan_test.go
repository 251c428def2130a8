package billing

import "testing"

func TestParsePlanType(t *testing.T) {
	tests := []struct {
		in   string
		want PlanType
		ok   bool
	}{
		{in: "monthly", want: PlanMonthly, ok: true},
		{in: "yearly", want: PlanYearly, ok: true},
		{in: " Monthly ", want: PlanMonthly, ok: true},
		{in: "lifetime", ok: false},
		{in: "", ok: false},
	}

	for _, tt := range tests {
		got, ok := ParsePlanType(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("ParsePlanType(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestIsEntitlingStatus(t *testing.T) {
	for _, status := range []string{"active", "trialing", "Active", " TRIALING "} {
		if !isEntitlingStatus(status) {
			t.Fatalf("expected status %q to be entitling", status)
		}
	}
	for _, status := range []string{"past_due", "canceled", "incomplete", "unpaid", "paused", ""} {
		if isEntitlingStatus(status) {
			t.Fatalf("expected status %q to be non-entitling", status)
		}
	}
}
