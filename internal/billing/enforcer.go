package billing

import (
	"context"
	"fmt"

	"qrfeedback/internal/types"
)

// PlanLookup provides the minimal profile data needed for limit checks.
// This is a focused interface to avoid depending on the full ProfileRepository.
type PlanLookup interface {
	// GetPlan returns the plan tier for the given user.
	GetPlan(ctx context.Context, userID string) (types.PlanTier, error)
}

// UsageCounter provides the live counts limit checks compare against.
// Implemented by the form and response repositories in internal/db.
type UsageCounter interface {
	// CountForms returns the number of forms owned by the user.
	CountForms(ctx context.Context, userID string) (int, error)

	// CountResponsesThisMonth returns the number of responses received this
	// calendar month across all forms owned by the user.
	CountResponsesThisMonth(ctx context.Context, userID string) (int, error)
}

// UsageEnforcer checks plan limits before resource creation.
// Denial happens before any write; a denied check never mutates state.
type UsageEnforcer interface {
	// CheckFormLimit verifies the user can create one more form.
	// Returns nil if allowed, a limit AppError if the plan ceiling is reached.
	CheckFormLimit(ctx context.Context, userID string) error

	// CheckResponseLimit verifies the form owner can receive one more
	// response this month. Returns nil if allowed, a limit AppError otherwise.
	CheckResponseLimit(ctx context.Context, ownerID string) error
}

// usageEnforcerImpl implements UsageEnforcer against a catalog and live counts.
type usageEnforcerImpl struct {
	planLookup PlanLookup
	counter    UsageCounter
	catalog    Catalog
}

// NewUsageEnforcer creates the standard UsageEnforcer implementation.
func NewUsageEnforcer(planLookup PlanLookup, counter UsageCounter, catalog Catalog) UsageEnforcer {
	return &usageEnforcerImpl{
		planLookup: planLookup,
		counter:    counter,
		catalog:    catalog,
	}
}

// Compile-time interface assertion.
var _ UsageEnforcer = (*usageEnforcerImpl)(nil)

// CheckFormLimit verifies the user can create one more form without exceeding
// the plan ceiling.
//
//  1. Resolve the user's plan (unknown tiers fall back to Free limits).
//  2. Unlimited plans pass without counting.
//  3. Direct count against the forms table, strict less-than comparison.
func (e *usageEnforcerImpl) CheckFormLimit(ctx context.Context, userID string) error {
	tier, err := e.planLookup.GetPlan(ctx, userID)
	if err != nil {
		return err
	}
	limits := e.catalog.LimitsFor(tier)
	if limits.Forms.IsUnlimited() {
		return nil
	}

	current, err := e.counter.CountForms(ctx, userID)
	if err != nil {
		return err
	}
	if !limits.Forms.Allows(current) {
		return types.NewAppErrorWithDetails(
			types.ErrCodeLimitForms,
			fmt.Sprintf("Your %s plan allows only %s forms. Please upgrade!",
				tierLabel(tier), limits.Forms),
			nil,
			map[string]any{
				"current": current,
				"limit":   int(limits.Forms),
				"plan":    string(tier),
			},
		)
	}
	return nil
}

// CheckResponseLimit verifies the form owner can receive one more response
// this calendar month. Response limits are monthly; the count resets with
// the calendar, not a billing anchor.
func (e *usageEnforcerImpl) CheckResponseLimit(ctx context.Context, ownerID string) error {
	tier, err := e.planLookup.GetPlan(ctx, ownerID)
	if err != nil {
		return err
	}
	limits := e.catalog.LimitsFor(tier)
	if limits.Responses.IsUnlimited() {
		return nil
	}

	current, err := e.counter.CountResponsesThisMonth(ctx, ownerID)
	if err != nil {
		return err
	}
	if !limits.Responses.Allows(current) {
		return types.NewAppErrorWithDetails(
			types.ErrCodeLimitResponses,
			fmt.Sprintf("This form has reached its %s plan limit of %s responses this month.",
				tierLabel(tier), limits.Responses),
			nil,
			map[string]any{
				"current": current,
				"limit":   int(limits.Responses),
				"plan":    string(tier),
			},
		)
	}
	return nil
}

// tierLabel renders the tier for limit messages; empty tiers read as free
// since that is the limit set actually applied.
func tierLabel(tier types.PlanTier) string {
	if tier == "" {
		return string(types.PlanFree)
	}
	return string(normalizeTier(tier))
}
