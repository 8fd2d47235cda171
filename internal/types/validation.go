package types

import (
	"fmt"
	"strings"
)

// Validation constraint constants.
const (
	MinRating      = 1
	MaxRating      = 5
	MinOptions     = 2
	MaxTitleLength = 200
	MaxTextLength  = 5000
)

// ValidateQuestions applies the builder save rules to an ordered question
// list. Every question needs non-empty text, a supported type, at least
// MinOptions non-empty options when multiple-choice, and an ID unique within
// the form. An empty list is valid (forms start with zero questions).
func ValidateQuestions(questions QuestionList) *AppError {
	seen := make(map[string]struct{}, len(questions))
	for i, q := range questions {
		if strings.TrimSpace(q.Text) == "" {
			return NewAppErrorWithDetails(ErrCodeValidationQuestionText,
				fmt.Sprintf("question %d has no text", i+1), nil,
				map[string]any{"index": i})
		}
		if !q.Type.Valid() {
			return NewAppErrorWithDetails(ErrCodeValidationQuestionType,
				fmt.Sprintf("question %d has unsupported type %q", i+1, q.Type), nil,
				map[string]any{"index": i, "type": string(q.Type)})
		}
		if q.Type == QuestionMultiple {
			usable := 0
			for _, opt := range q.Options {
				if strings.TrimSpace(opt) != "" {
					usable++
				}
			}
			if usable < MinOptions {
				return NewAppErrorWithDetails(ErrCodeValidationQuestionOptions,
					fmt.Sprintf("question %d needs at least %d options", i+1, MinOptions), nil,
					map[string]any{"index": i})
			}
		}
		if _, dup := seen[q.ID]; dup {
			return NewAppErrorWithDetails(ErrCodeValidationDuplicateQuestion,
				fmt.Sprintf("duplicate question id %q", q.ID), nil,
				map[string]any{"question_id": q.ID})
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}

// CheckAnswer validates one answer against the question it references:
// the value must be present (non-zero) and type-correct. Ratings must be
// integers in [MinRating, MaxRating]; multiple-choice values must match one
// of the question's options exactly.
func (q Question) CheckAnswer(v AnswerValue) *AppError {
	if v.IsZero() {
		return NewAppErrorWithDetails(ErrCodeValidationUnanswered,
			fmt.Sprintf("question %q has no answer", q.Text), nil,
			map[string]any{"question_id": q.ID})
	}
	switch q.Type {
	case QuestionRating:
		n, ok := v.Rating()
		if !ok {
			return NewAppErrorWithDetails(ErrCodeValidationAnswerType,
				fmt.Sprintf("question %q expects a rating", q.Text), nil,
				map[string]any{"question_id": q.ID})
		}
		if n < MinRating || n > MaxRating {
			return NewAppErrorWithDetails(ErrCodeValidationAnswerRange,
				fmt.Sprintf("rating for %q must be between %d and %d", q.Text, MinRating, MaxRating), nil,
				map[string]any{"question_id": q.ID, "value": n})
		}
	case QuestionText:
		s, ok := v.Text()
		if !ok {
			return NewAppErrorWithDetails(ErrCodeValidationAnswerType,
				fmt.Sprintf("question %q expects text", q.Text), nil,
				map[string]any{"question_id": q.ID})
		}
		if len(s) > MaxTextLength {
			return NewAppErrorWithDetails(ErrCodeValidationAnswerRange,
				fmt.Sprintf("answer for %q is too long", q.Text), nil,
				map[string]any{"question_id": q.ID})
		}
	case QuestionMultiple:
		s, ok := v.Text()
		if !ok {
			return NewAppErrorWithDetails(ErrCodeValidationAnswerType,
				fmt.Sprintf("question %q expects a selected option", q.Text), nil,
				map[string]any{"question_id": q.ID})
		}
		found := false
		for _, opt := range q.Options {
			if opt == s {
				found = true
				break
			}
		}
		if !found {
			return NewAppErrorWithDetails(ErrCodeValidationAnswerRange,
				fmt.Sprintf("answer for %q is not one of the options", q.Text), nil,
				map[string]any{"question_id": q.ID, "value": s})
		}
	}
	return nil
}

// ValidateSubmission cross-checks a full answer set against a form: every
// question must be answered with a type-correct value, and no answer may
// reference a question the form does not contain. Validation is all-or-
// nothing; the first violation aborts the submission.
func ValidateSubmission(form *Form, answers AnswerList) *AppError {
	for _, a := range answers {
		if _, ok := form.Questions.ByID(a.QuestionID); !ok {
			return NewAppErrorWithDetails(ErrCodeValidationUnknownQuestion,
				fmt.Sprintf("answer references unknown question %q", a.QuestionID), nil,
				map[string]any{"question_id": a.QuestionID})
		}
	}
	for _, q := range form.Questions {
		a, ok := answers.ByQuestionID(q.ID)
		if !ok {
			return NewAppErrorWithDetails(ErrCodeValidationUnanswered,
				fmt.Sprintf("question %q has no answer", q.Text), nil,
				map[string]any{"question_id": q.ID})
		}
		if err := q.CheckAnswer(a.Value); err != nil {
			return err
		}
	}
	return nil
}
