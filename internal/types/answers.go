package types

import (
	"encoding/json"
	"fmt"
)

// AnswerKind discriminates the variants of AnswerValue.
type AnswerKind int

const (
	// AnswerKindNone is the zero value: the question has not been answered.
	AnswerKindNone AnswerKind = iota
	// AnswerKindRating carries an integer score.
	AnswerKindRating
	// AnswerKindText carries a string (free text or a selected option).
	AnswerKindText
)

// AnswerValue is a tagged union: a rating integer or a text string, decided
// by the type of the question it answers. The zero value means unanswered.
//
// The wire and storage encoding is the raw JSON scalar (number for ratings,
// string for text and multiple choice); the kind is recovered from the JSON
// type on decode and re-checked against the question during validation.
type AnswerValue struct {
	kind   AnswerKind
	rating int
	text   string
}

// RatingAnswer builds a rating-valued answer.
func RatingAnswer(n int) AnswerValue {
	return AnswerValue{kind: AnswerKindRating, rating: n}
}

// TextAnswer builds a text-valued answer.
func TextAnswer(s string) AnswerValue {
	return AnswerValue{kind: AnswerKindText, text: s}
}

// Kind returns the discriminant.
func (v AnswerValue) Kind() AnswerKind { return v.kind }

// Rating returns the rating value and whether this is a rating answer.
func (v AnswerValue) Rating() (int, bool) {
	return v.rating, v.kind == AnswerKindRating
}

// Text returns the string value and whether this is a text answer.
func (v AnswerValue) Text() (string, bool) {
	return v.text, v.kind == AnswerKindText
}

// IsZero reports whether the answer counts as unanswered: no value at all,
// a zero rating, or an empty string. Zero ratings and empty strings are the
// pre-submission placeholders and must not pass validation.
func (v AnswerValue) IsZero() bool {
	switch v.kind {
	case AnswerKindRating:
		return v.rating == 0
	case AnswerKindText:
		return v.text == ""
	default:
		return true
	}
}

// String renders the answer for display and CSV export. Unanswered values
// render as the empty string.
func (v AnswerValue) String() string {
	switch v.kind {
	case AnswerKindRating:
		if v.rating == 0 {
			return ""
		}
		return fmt.Sprintf("%d", v.rating)
	case AnswerKindText:
		return v.text
	default:
		return ""
	}
}

// MarshalJSON encodes the underlying scalar. Unanswered encodes as the empty
// string, mirroring the placeholder the submission form initializes with.
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case AnswerKindRating:
		return json.Marshal(v.rating)
	case AnswerKindText:
		return json.Marshal(v.text)
	default:
		return json.Marshal("")
	}
}

// UnmarshalJSON decodes a JSON number as a rating and a JSON string as text.
// Any other JSON type is rejected; the question-type cross-check happens
// later, during submission validation.
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*v = AnswerValue{kind: AnswerKindRating, rating: n}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("answer value: expected number or string, got %s", data)
	}
	*v = AnswerValue{kind: AnswerKindText, text: s}
	return nil
}
