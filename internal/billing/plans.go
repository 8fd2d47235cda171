// Package billing provides the plan catalog and plan-limit enforcement.
package billing

import (
	"strings"

	"qrfeedback/internal/types"
)

// Catalog is the authoritative source for plan definitions and limits.
// This is the single source of truth for what each tier allows.
type Catalog interface {
	// Plans returns all plans in display order (cheapest first).
	Plans() []types.Plan

	// PlanFor returns the plan definition for the given tier.
	// Unknown or empty tiers resolve to the Free plan to fail safely.
	PlanFor(tier types.PlanTier) types.Plan

	// LimitsFor returns the resource limits for the given tier,
	// falling back to Free limits for unknown tiers.
	LimitsFor(tier types.PlanTier) types.PlanLimits

	// PlanByPriceID resolves a Stripe price ID back to its plan.
	// Used by the checkout webhook to map a completed session to a tier.
	PlanByPriceID(priceID string) (types.Plan, bool)
}

// staticCatalog is a compile-time catalog backed by an in-memory slice.
// It implements Catalog and is the standard implementation for production use.
type staticCatalog struct {
	plans   []types.Plan
	byTier  map[types.PlanTier]types.Plan
	byPrice map[string]types.Plan
}

// planDefaults defines the hardcoded plan tiers:
//
//	| Plan     | Price/mo | Forms     | Responses/mo |
//	|----------|----------|-----------|--------------|
//	| Free     | $0       | 3         | 50           |
//	| Pro      | $19      | unlimited | 1,000        |
//	| Business | $49      | unlimited | unlimited    |
//
// Unlimited uses 0 -- enforcement code must treat 0 as no limit.
var planDefaults = []types.Plan{
	{
		Tier:          types.PlanFree,
		Name:          "Free",
		StripePriceID: "price_1SJcpn04KnTBJoOrKtEQjQM7",
		PriceMonthly:  0,
		Features: []string{
			"3 feedback forms",
			"50 responses per month",
			"QR code generation",
			"Basic analytics dashboard",
			"Email support",
		},
		Limits: types.PlanLimits{Forms: 3, Responses: 50},
	},
	{
		Tier:          types.PlanPro,
		Name:          "Pro",
		StripePriceID: "price_1SJcqG04KnTBJoOrVzcOJ1jB",
		PriceMonthly:  19,
		Popular:       true,
		Features: []string{
			"Unlimited feedback forms",
			"1,000 responses per month",
			"Advanced analytics & insights",
			"QR code customization",
			"Email notifications",
			"Priority email support",
			"Export data (CSV/Excel)",
			"Custom branding options",
		},
		Limits: types.PlanLimits{Forms: types.Unlimited, Responses: 1000},
	},
	{
		Tier:          types.PlanBusiness,
		Name:          "Business",
		StripePriceID: "price_1SJcvI04KnTBJoOr8jJ5uVnX",
		PriceMonthly:  49,
		Features: []string{
			"Everything in Pro",
			"Unlimited responses",
			"White-label feedback forms",
			"API access for integrations",
			"Custom domain support",
			"Dedicated account manager",
			"Phone & priority support",
		},
		Limits: types.PlanLimits{Forms: types.Unlimited, Responses: types.Unlimited},
	},
}

// NewStaticCatalog returns a Catalog backed by the hardcoded plan defaults.
// This is the standard production implementation; no database or external
// service is required.
func NewStaticCatalog() Catalog {
	// Copy the defaults so callers cannot mutate the package-level variable.
	plans := make([]types.Plan, len(planDefaults))
	copy(plans, planDefaults)

	byTier := make(map[types.PlanTier]types.Plan, len(plans))
	byPrice := make(map[string]types.Plan, len(plans))
	for _, p := range plans {
		byTier[p.Tier] = p
		if p.StripePriceID != "" {
			byPrice[p.StripePriceID] = p
		}
	}
	return &staticCatalog{plans: plans, byTier: byTier, byPrice: byPrice}
}

// Plans returns all plans in display order.
func (c *staticCatalog) Plans() []types.Plan {
	out := make([]types.Plan, len(c.plans))
	copy(out, c.plans)
	return out
}

// PlanFor returns the plan for the given tier, or Free for unknown tiers.
func (c *staticCatalog) PlanFor(tier types.PlanTier) types.Plan {
	if p, ok := c.byTier[normalizeTier(tier)]; ok {
		return p
	}
	return c.byTier[types.PlanFree]
}

// LimitsFor returns the limits for the given tier, or Free limits for
// unknown tiers. Fallback is a safe default, not an error.
func (c *staticCatalog) LimitsFor(tier types.PlanTier) types.PlanLimits {
	return c.PlanFor(tier).Limits
}

// PlanByPriceID resolves a Stripe price ID to its plan.
func (c *staticCatalog) PlanByPriceID(priceID string) (types.Plan, bool) {
	p, ok := c.byPrice[priceID]
	return p, ok
}

// normalizeTier lowercases the tier so profile rows with legacy casing still
// resolve.
func normalizeTier(tier types.PlanTier) types.PlanTier {
	return types.PlanTier(strings.ToLower(string(tier)))
}

// FormatPlanName renders a tier for user-facing messages: the catalog display
// name when the tier is known, otherwise the raw tier title-cased.
func FormatPlanName(c Catalog, tier types.PlanTier) string {
	norm := normalizeTier(tier)
	for _, p := range c.Plans() {
		if p.Tier == norm {
			return p.Name
		}
	}
	s := string(tier)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
