package model

import (
	"database/sql/driver"
	"fmt"

	json "github.com/goccy/go-json"
)

// Payload is the free-form JSON object a form submission carries.
// It's stored as a JSON text column so it works on both sqlite and postgres.
type Payload map[string]any

// Value implements the driver.Valuer interface.
func (p Payload) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}

	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload, %w", err)
	}

	return string(b), nil
}

// Scan implements the sql.Scanner interface.
func (p *Payload) Scan(value any) error {
	if value == nil {
		*p = Payload{}
		return nil
	}

	var b []byte
	switch v := value.(type) {
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return fmt.Errorf("failed to scan Payload, %v", value)
	}

	out := Payload{}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &out); err != nil {
			return fmt.Errorf("failed to unmarshal payload, %w", err)
		}
	}

	*p = out
	return nil
}

// GormDataType tells gorm which column type to use for migrations
func (Payload) GormDataType() string {
	return "text"
}
