package billing

import (
	"strings"

	"github.com/bonlog/bonlog/internal/pkg/env"
)

// PlanType is the billing interval a user checks out with. Both plans map to
// the same premium entitlement; they differ only in the provider price.
type PlanType string

const (
	PlanMonthly PlanType = "monthly"
	PlanYearly  PlanType = "yearly"
)

// ParsePlanType validates a user-supplied plan string.
func ParsePlanType(raw string) (PlanType, bool) {
	switch PlanType(strings.ToLower(strings.TrimSpace(raw))) {
	case PlanMonthly:
		return PlanMonthly, true
	case PlanYearly:
		return PlanYearly, true
	default:
		return "", false
	}
}

// PriceIDForPlan resolves the provider price for a plan from the environment.
func PriceIDForPlan(plan PlanType) string {
	switch plan {
	case PlanYearly:
		return strings.TrimSpace(env.GetEnv("STRIPE_PRICE_YEARLY", ""))
	case PlanMonthly:
		return strings.TrimSpace(env.GetEnv("STRIPE_PRICE_MONTHLY", ""))
	default:
		return ""
	}
}

// isEntitlingStatus reports whether a provider subscription status grants
// premium. Grace handling for past_due is left to the provider's own dunning
// window; locally the flag drops as soon as the status does.
func isEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing":
		return true
	default:
		return false
	}
}
