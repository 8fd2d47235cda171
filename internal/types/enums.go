package types

// PlanTier identifies a subscription plan. Stored in profiles.plan.
type PlanTier string

const (
	PlanFree     PlanTier = "free"
	PlanPro      PlanTier = "pro"
	PlanBusiness PlanTier = "business"
)

// QuestionType is the fixed set of question variants a form may contain.
type QuestionType string

const (
	// QuestionRating collects an integer score from 1 to 5.
	QuestionRating QuestionType = "rating"
	// QuestionText collects a free-form string.
	QuestionText QuestionType = "text"
	// QuestionMultiple collects one choice from owner-defined options.
	QuestionMultiple QuestionType = "multiple"
)

// Valid reports whether t is one of the three supported variants.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionRating, QuestionText, QuestionMultiple:
		return true
	}
	return false
}
