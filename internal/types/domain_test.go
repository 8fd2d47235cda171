package types

import (
	"encoding/json"
	"testing"
)

// TestLimitAllows verifies the strict less-than semantics and the unlimited
// sentinel.
func TestLimitAllows(t *testing.T) {
	tests := []struct {
		name    string
		limit   Limit
		current int
		want    bool
	}{
		{"below limit", Limit(3), 2, true},
		{"at limit", Limit(3), 3, false},
		{"above limit", Limit(3), 4, false},
		{"zero current", Limit(1), 0, true},
		{"unlimited small", Unlimited, 0, true},
		{"unlimited huge", Unlimited, 1_000_000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.limit.Allows(tt.current); got != tt.want {
				t.Errorf("Limit(%d).Allows(%d) = %v, want %v", tt.limit, tt.current, got, tt.want)
			}
		})
	}
}

// TestLimitJSON verifies the "unlimited" sentinel round-trips through JSON.
func TestLimitJSON(t *testing.T) {
	data, err := json.Marshal(PlanLimits{Forms: Limit(3), Responses: Unlimited})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"forms":3,"responses":"unlimited"}`
	if string(data) != want {
		t.Errorf("marshal = %s, want %s", data, want)
	}

	var pl PlanLimits
	if err := json.Unmarshal(data, &pl); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if pl.Forms != Limit(3) || pl.Responses != Unlimited {
		t.Errorf("round-trip = %+v", pl)
	}

	var bad PlanLimits
	if err := json.Unmarshal([]byte(`{"forms":"lots"}`), &bad); err == nil {
		t.Error("expected error for unrecognized sentinel")
	}
}

// TestQuestionListByID verifies lookup by question ID.
func TestQuestionListByID(t *testing.T) {
	ql := QuestionList{
		{ID: "q_1", Type: QuestionRating, Text: "How was it?"},
		{ID: "q_2", Type: QuestionText, Text: "Tell us more"},
	}

	q, ok := ql.ByID("q_2")
	if !ok || q.Text != "Tell us more" {
		t.Errorf("ByID(q_2) = %+v, %v", q, ok)
	}
	if _, ok := ql.ByID("q_9"); ok {
		t.Error("ByID should miss unknown IDs")
	}
}

// TestQuestionTypeValid covers the enum guard.
func TestQuestionTypeValid(t *testing.T) {
	for _, valid := range []QuestionType{QuestionRating, QuestionText, QuestionMultiple} {
		if !valid.Valid() {
			t.Errorf("%q should be valid", valid)
		}
	}
	if QuestionType("checkbox").Valid() {
		t.Error("checkbox should not be valid")
	}
	if QuestionType("").Valid() {
		t.Error("empty type should not be valid")
	}
}
