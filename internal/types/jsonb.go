package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Compile-time interface assertions.
// These ensure all JSONB types implement both sql.Scanner and driver.Valuer,
// catching any method signature drift at compile time rather than at runtime.
// Scan is on pointer receivers; Value is on value receivers.
var (
	_ sql.Scanner   = (*QuestionList)(nil)
	_ driver.Valuer = QuestionList(nil)
	_ sql.Scanner   = (*AnswerList)(nil)
	_ driver.Valuer = AnswerList(nil)
)

// scanJSONB is a generic helper that scans a JSONB database value into a Go pointer.
// It handles nil values, []byte, and string representations from different database drivers.
func scanJSONB(dest interface{}, value interface{}) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, dest)
}

// valueJSONB is a generic helper that converts a Go value to a JSONB-compatible driver.Value.
// Returns nil for nil interface values; otherwise marshals to JSON bytes.
func valueJSONB(v interface{}) (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// ---------------------------------------------------------------------------
// QuestionList
// ---------------------------------------------------------------------------

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (ql *QuestionList) Scan(value interface{}) error {
	if value == nil {
		*ql = nil
		return nil
	}
	return scanJSONB(ql, value)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
// A nil list is stored as the empty array so freshly created forms scan back
// as zero questions rather than SQL NULL.
func (ql QuestionList) Value() (driver.Value, error) {
	if ql == nil {
		return json.Marshal([]Question{})
	}
	return valueJSONB(ql)
}

// ---------------------------------------------------------------------------
// AnswerList
// ---------------------------------------------------------------------------

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (al *AnswerList) Scan(value interface{}) error {
	if value == nil {
		*al = nil
		return nil
	}
	return scanJSONB(al, value)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (al AnswerList) Value() (driver.Value, error) {
	if al == nil {
		return json.Marshal([]Answer{})
	}
	return valueJSONB(al)
}
