package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// OptionList stores a question's answer options as a JSON array in a TEXT column.
type OptionList []string

// Value implements driver.Valuer for database storage
func (o OptionList) Value() (driver.Value, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (o *OptionList) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, o)
	case string:
		return json.Unmarshal([]byte(v), o)
	case nil:
		*o = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into OptionList", src)
	}
}

// Question is a single quiz question. Rows are seeded at content-authoring
// time; only the used flag changes afterwards.
type Question struct {
	ID           int        `json:"id" db:"id"`
	QuizID       int        `json:"quiz_id" db:"quiz_id"`
	Type         string     `json:"type" db:"type"` // e.g. "Convection", "Radiation"; "" = untyped
	Text         string     `json:"text" db:"text"`
	Options      OptionList `json:"options" db:"options"`
	CorrectIndex int        `json:"correct_index" db:"correct_index"`
	Used         bool       `json:"-" db:"used"`
}
