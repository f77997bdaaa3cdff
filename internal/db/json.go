package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList stores a []string as a jsonb column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	payload, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return string(payload), nil
}

func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}

	var payload []byte
	switch value := src.(type) {
	case []byte:
		payload = value
	case string:
		payload = []byte(value)
	default:
		return fmt.Errorf("unsupported string list source %T", src)
	}

	if len(payload) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(payload, (*[]string)(l))
}

// JSONMap stores an opaque JSON object as a jsonb column. The core reads
// specific keys only where documented; everything else passes through.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	payload, err := json.Marshal(map[string]any(m))
	if err != nil {
		return nil, fmt.Errorf("marshal json map: %w", err)
	}
	return string(payload), nil
}

func (m *JSONMap) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}

	var payload []byte
	switch value := src.(type) {
	case []byte:
		payload = value
	case string:
		payload = []byte(value)
	default:
		return fmt.Errorf("unsupported json map source %T", src)
	}

	if len(payload) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(payload, (*map[string]any)(m))
}
