package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"qrfeedback/internal/types"
)

// ProfileRepository provides data access for the profiles table. Profile rows
// mirror the auth provider's accounts; the plan column is the single source
// of truth for limit enforcement.
type ProfileRepository struct {
	db DBTX
}

// NewProfileRepository creates a new ProfileRepository backed by the given
// database connection (pool or transaction).
func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `p.id, p.email, p.full_name, p.plan, p.stripe_customer_id, p.created_at`

func scanProfile(row pgx.Row) (*types.Profile, error) {
	var profile types.Profile
	var fullName, stripeCustomerID *string

	err := row.Scan(
		&profile.ID,
		&profile.Email,
		&fullName,
		&profile.Plan,
		&stripeCustomerID,
		&profile.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if fullName != nil {
		profile.FullName = *fullName
	}
	if stripeCustomerID != nil {
		profile.StripeCustomerID = *stripeCustomerID
	}
	return &profile, nil
}

// GetByID retrieves a profile by user ID.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*types.Profile, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+profileColumns+`
		 FROM profiles p
		 WHERE p.id = $1`,
		id,
	)

	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundProfile, "profile not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve profile", err)
	}
	return profile, nil
}

// GetPlan returns just the plan tier for a user. Limit enforcement calls this
// on every guarded write, so it avoids pulling the full row.
func (r *ProfileRepository) GetPlan(ctx context.Context, userID string) (types.PlanTier, error) {
	var plan types.PlanTier
	err := r.db.QueryRow(ctx,
		`SELECT plan FROM profiles WHERE id = $1`,
		userID,
	).Scan(&plan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", types.NewAppError(types.ErrCodeNotFoundProfile, "profile not found", nil)
		}
		return "", types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve plan", err)
	}
	return plan, nil
}

// Ensure inserts a profile row for a newly authenticated user if one does not
// exist yet. New accounts start on the free plan. Existing rows are left
// untouched.
func (r *ProfileRepository) Ensure(ctx context.Context, id, email, fullName string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO profiles (id, email, full_name, plan, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (id) DO NOTHING`,
		id,
		email,
		nilIfEmpty(fullName),
		types.PlanFree,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to ensure profile", err)
	}
	return nil
}

// UpdatePlan sets the user's plan tier. Called by the Stripe webhook handler
// when a checkout completes.
func (r *ProfileRepository) UpdatePlan(ctx context.Context, userID string, plan types.PlanTier) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE profiles SET plan = $1 WHERE id = $2`,
		plan,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update plan", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundProfile, "profile not found", nil)
	}
	return nil
}

// UpdateStripeCustomerID records the Stripe customer associated with the
// user after their first checkout session completes.
func (r *ProfileRepository) UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE profiles SET stripe_customer_id = $1 WHERE id = $2`,
		nilIfEmpty(customerID),
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update stripe customer", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundProfile, "profile not found", nil)
	}
	return nil
}
