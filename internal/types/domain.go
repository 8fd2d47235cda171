package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Limit is a resource ceiling: a positive count, or Unlimited.
// Unlimited is represented as 0 -- enforcement code must treat 0 as no limit.
type Limit int

// Unlimited means the plan imposes no ceiling on the resource.
const Unlimited Limit = 0

// Allows reports whether one more item may be created given the current
// count. The comparison is strictly less-than: the check runs before the
// action that would create the next item, so current == limit denies.
func (l Limit) Allows(current int) bool {
	return l == Unlimited || current < int(l)
}

// IsUnlimited reports whether the limit is the Unlimited sentinel.
func (l Limit) IsUnlimited() bool { return l == Unlimited }

// String renders the limit for user-facing messages.
func (l Limit) String() string {
	if l == Unlimited {
		return "unlimited"
	}
	return strconv.Itoa(int(l))
}

// MarshalJSON renders Unlimited as the string "unlimited" and bounded limits
// as plain numbers, matching the pricing payload the dashboard consumes.
func (l Limit) MarshalJSON() ([]byte, error) {
	if l == Unlimited {
		return json.Marshal("unlimited")
	}
	return json.Marshal(int(l))
}

// UnmarshalJSON accepts either a number or the string "unlimited".
func (l *Limit) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*l = Limit(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("limit: expected number or \"unlimited\", got %s", data)
	}
	if s != "unlimited" {
		return fmt.Errorf("limit: unrecognized sentinel %q", s)
	}
	*l = Unlimited
	return nil
}

// PlanLimits defines the resource ceilings of a plan tier.
type PlanLimits struct {
	Forms     Limit `json:"forms"`
	Responses Limit `json:"responses"` // per calendar month
}

// Plan is one subscription tier. Plans are immutable, process-wide static
// configuration loaded once at startup; they are never created or destroyed
// at runtime.
type Plan struct {
	Tier          PlanTier   `json:"tier"`
	Name          string     `json:"name"`
	StripePriceID string     `json:"price_id,omitempty"`
	PriceMonthly  int        `json:"price_monthly"` // USD
	Popular       bool       `json:"popular,omitempty"`
	Features      []string   `json:"features"`
	Limits        PlanLimits `json:"limits"`
}

// Question belongs to exactly one Form. IDs are server-generated random
// identifiers; uniqueness is only required within the parent form.
type Question struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"type"`
	Text    string       `json:"text"`
	Options []string     `json:"options,omitempty"` // multiple-choice only
}

// QuestionList is the ordered question sequence of a form, stored as a JSONB
// column on the forms row. Order is display and collection order.
type QuestionList []Question

// ByID returns the question with the given ID, if present.
func (ql QuestionList) ByID(id string) (Question, bool) {
	for _, q := range ql {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Form is an owner-authored feedback questionnaire.
type Form struct {
	ID          string       `json:"id" db:"id"`
	UserID      string       `json:"user_id" db:"user_id"`
	Title       string       `json:"title" db:"title"`
	Description string       `json:"description,omitempty" db:"description"`
	Questions   QuestionList `json:"questions" db:"questions"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}

// Answer references a question within the parent form. The value shape
// depends on the referenced question's type.
type Answer struct {
	QuestionID string      `json:"questionId"`
	Value      AnswerValue `json:"value"`
}

// AnswerList is the ordered answer collection of a response, stored as a
// JSONB column on the responses row.
type AnswerList []Answer

// ByQuestionID returns the answer referencing the given question, if present.
func (al AnswerList) ByQuestionID(id string) (Answer, bool) {
	for _, a := range al {
		if a.QuestionID == id {
			return a, true
		}
	}
	return Answer{}, false
}

// Response is one respondent's complete submission to a form. Created once;
// never mutated or deleted by the application.
type Response struct {
	ID          string     `json:"id" db:"id"`
	FormID      string     `json:"form_id" db:"form_id"`
	Answers     AnswerList `json:"answers" db:"answers"`
	SubmittedAt time.Time  `json:"submitted_at" db:"submitted_at"`
}

// Profile mirrors the authenticated account. One per account; the plan field
// is mutated by the billing flow when a checkout completes.
type Profile struct {
	ID               string    `json:"id" db:"id"`
	Email            string    `json:"email" db:"email"`
	FullName         string    `json:"full_name" db:"full_name"`
	Plan             PlanTier  `json:"plan" db:"plan"`
	StripeCustomerID string    `json:"-" db:"stripe_customer_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
